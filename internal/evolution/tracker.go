package evolution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"prokaryote/internal/logging"
)

// Fallback actions returned by RecordFailure.
const (
	ActionDeprioritize = "deprioritize"
	ActionBoostPrereqs = "boost_prereqs"
	ActionLongCooldown = "long_cooldown"
)

// FallbackAction describes how the tracker reacted to a reported failure.
type FallbackAction struct {
	Action         string             `json:"action"`
	CooldownRounds int                `json:"cooldown_rounds,omitempty"`
	UntilRound     int                `json:"until_round,omitempty"`
	Penalty        float64            `json:"penalty,omitempty"`
	BoostTargets   map[string]float64 `json:"boost_targets,omitempty"`
}

// FailureRecord is the durable per-skill failure state.
type FailureRecord struct {
	ConsecutiveFailures int                `json:"consecutive_failures"`
	TotalFailures       int                `json:"total_failures"`
	CooldownUntil       int                `json:"cooldown_until,omitempty"`
	LastFailedLevel     int                `json:"last_failed_level,omitempty"`
	FailureReasons      []string           `json:"failure_reasons,omitempty"`
	BoostPrerequisites  map[string]float64 `json:"boost_prerequisites,omitempty"`
}

// trackerFile is the persisted layout of the failure tracker.
type trackerFile struct {
	EvolutionRound int                       `json:"evolution_round"`
	Skills         map[string]*FailureRecord `json:"skills"`
}

// FailureTracker keeps the round counter and per-skill failure records,
// persisting the whole file after every mutation. The round counter is the
// only clock: cooldown expiry is a live comparison against it, never a
// one-time transition.
type FailureTracker struct {
	path   string
	policy Policy

	round  int
	skills map[string]*FailureRecord
}

// LoadFailureTracker reads tracker state from path. A missing or corrupt
// file yields a fresh tracker at round 0.
func LoadFailureTracker(path string, policy Policy) *FailureTracker {
	ft := &FailureTracker{
		path:   path,
		policy: policy,
		skills: make(map[string]*FailureRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.TrackerWarn("failed to read tracker at %s: %v", path, err)
		}
		return ft
	}

	var tf trackerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		logging.TrackerWarn("corrupt failure tracker at %s, resetting: %v", path, err)
		return ft
	}

	ft.round = tf.EvolutionRound
	if tf.Skills != nil {
		ft.skills = tf.Skills
	}
	return ft
}

// Save rewrites the tracker file in full.
func (ft *FailureTracker) Save() error {
	if err := os.MkdirAll(filepath.Dir(ft.path), 0755); err != nil {
		return fmt.Errorf("failed to create tracker directory: %w", err)
	}
	data, err := json.MarshalIndent(trackerFile{
		EvolutionRound: ft.round,
		Skills:         ft.skills,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode failure tracker: %w", err)
	}
	if err := os.WriteFile(ft.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write failure tracker: %w", err)
	}
	return nil
}

// Round returns the current evolution round.
func (ft *FailureTracker) Round() int {
	return ft.round
}

// AdvanceRound increments the round counter by one and persists. Called
// once per skill selection.
func (ft *FailureTracker) AdvanceRound() int {
	ft.round++
	if err := ft.Save(); err != nil {
		logging.TrackerWarn("failed to persist round advance: %v", err)
	}
	return ft.round
}

// Record returns the failure record for a skill, or nil.
func (ft *FailureTracker) Record(skillID string) *FailureRecord {
	return ft.skills[skillID]
}

// Cooling reports whether the skill is inside an active cooldown window.
func (ft *FailureTracker) Cooling(skillID string) bool {
	rec, ok := ft.skills[skillID]
	return ok && rec.CooldownUntil > ft.round
}

// Penalty returns the selection score penalty for a skill's consecutive
// failures, capped at the policy maximum.
func (ft *FailureTracker) Penalty(skillID string) float64 {
	rec, ok := ft.skills[skillID]
	if !ok {
		return 0
	}
	penalty := float64(rec.ConsecutiveFailures) * ft.policy.FailurePenaltyStep
	if penalty > ft.policy.FailurePenaltyMax {
		penalty = ft.policy.FailurePenaltyMax
	}
	return penalty
}

// RecordFailure registers one more consecutive failure for a skill and
// applies the escalation ladder: failures 1-2 only deprioritize; the 3rd
// starts a short cooldown and redirects effort to prerequisites; the 5th
// and beyond start a long cooldown. A 4th failure keeps the short-cooldown
// state without extending it. Persists before returning.
func (ft *FailureTracker) RecordFailure(skillID string, level int, reason string, tree *SkillTree) FallbackAction {
	rec, ok := ft.skills[skillID]
	if !ok {
		rec = &FailureRecord{}
		ft.skills[skillID] = rec
	}

	rec.ConsecutiveFailures++
	rec.TotalFailures++
	rec.LastFailedLevel = level
	if reason != "" {
		rec.FailureReasons = appendReason(rec.FailureReasons, reason)
	}

	consec := rec.ConsecutiveFailures
	var action FallbackAction

	switch {
	case consec >= 5:
		rec.CooldownUntil = ft.round + ft.policy.CooldownLong
		action = FallbackAction{
			Action:         ActionLongCooldown,
			CooldownRounds: ft.policy.CooldownLong,
			UntilRound:     rec.CooldownUntil,
		}
		logging.TrackerWarn("skill %s failed %d times in a row, cooling down for %d rounds",
			skillID, consec, ft.policy.CooldownLong)

	case consec == 3:
		rec.CooldownUntil = ft.round + ft.policy.CooldownShort
		boost := ft.findPrereqBoostTargets(skillID, tree)
		rec.BoostPrerequisites = boost
		action = FallbackAction{
			Action:         ActionBoostPrereqs,
			CooldownRounds: ft.policy.CooldownShort,
			UntilRound:     rec.CooldownUntil,
			BoostTargets:   boost,
		}
		logging.Tracker("skill %s failed %d times, cooling %d rounds, boosting prereqs %v",
			skillID, consec, ft.policy.CooldownShort, keysOf(boost))

	case consec == 4:
		// Cooldown escalates only at the 3rd and 5th failure; refresh the
		// boost targets but leave the existing window alone.
		boost := ft.findPrereqBoostTargets(skillID, tree)
		rec.BoostPrerequisites = boost
		action = FallbackAction{
			Action:       ActionBoostPrereqs,
			UntilRound:   rec.CooldownUntil,
			BoostTargets: boost,
		}

	default:
		action = FallbackAction{
			Action:  ActionDeprioritize,
			Penalty: ft.Penalty(skillID),
		}
	}

	if err := ft.Save(); err != nil {
		logging.TrackerWarn("failed to persist failure record: %v", err)
	}
	return action
}

// ClearFailure deletes a skill's failure record entirely - a success is a
// full reset, not a decrement. Persists.
func (ft *FailureTracker) ClearFailure(skillID string) {
	if _, ok := ft.skills[skillID]; !ok {
		return
	}
	delete(ft.skills, skillID)
	if err := ft.Save(); err != nil {
		logging.TrackerWarn("failed to persist failure reset: %v", err)
	}
	logging.Tracker("cleared failure record for %s", skillID)
}

// findPrereqBoostTargets walks the failing skill's prerequisite chain two
// hops deep: direct prerequisites get the full bonus, prerequisites of
// prerequisites the smaller one. A prerequisite already at half its ceiling
// gains nothing - pushing it further would not unblock the failing skill.
func (ft *FailureTracker) findPrereqBoostTargets(skillID string, tree *SkillTree) map[string]float64 {
	boost := make(map[string]float64)
	if tree == nil {
		return boost
	}
	target, ok := tree.Skills[skillID]
	if !ok {
		return boost
	}

	for _, pid := range target.Prerequisites {
		prereq, ok := tree.Skills[pid]
		if !ok {
			continue
		}
		if !prereq.Mastered() {
			boost[pid] = ft.policy.PrereqBonusDirect
		}

		for _, ppid := range prereq.Prerequisites {
			pp, ok := tree.Skills[ppid]
			if !ok {
				continue
			}
			if !pp.Mastered() {
				if _, seen := boost[ppid]; !seen {
					boost[ppid] = ft.policy.PrereqBonusIndirect
				}
			}
		}
	}
	return boost
}

// BoostTargets merges the boost targets of every skill with an active
// cooldown, keeping the largest bonus per prerequisite.
func (ft *FailureTracker) BoostTargets() map[string]float64 {
	boost := make(map[string]float64)
	for _, rec := range ft.skills {
		if rec.CooldownUntil <= ft.round {
			continue
		}
		for pid, val := range rec.BoostPrerequisites {
			if val > boost[pid] {
				boost[pid] = val
			}
		}
	}
	return boost
}

// CoolingSkill is one entry of the failure summary's cooling list.
type CoolingSkill struct {
	SkillID             string `json:"skill_id"`
	RemainingRounds     int    `json:"remaining"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// StrugglingSkill is a failing skill that has not yet reached cooldown.
type StrugglingSkill struct {
	SkillID             string `json:"skill_id"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// FailureSummary is the tracker's read surface.
type FailureSummary struct {
	EvolutionRound   int                `json:"evolution_round"`
	CoolingSkills    []CoolingSkill     `json:"cooling_skills"`
	StrugglingSkills []StrugglingSkill  `json:"struggling_skills"`
	BoostTargets     map[string]float64 `json:"boost_targets"`
}

// Summary partitions tracked skills into currently-cooling and
// currently-struggling.
func (ft *FailureTracker) Summary() FailureSummary {
	summary := FailureSummary{
		EvolutionRound:   ft.round,
		CoolingSkills:    []CoolingSkill{},
		StrugglingSkills: []StrugglingSkill{},
	}
	for sid, rec := range ft.skills {
		if rec.CooldownUntil > ft.round {
			summary.CoolingSkills = append(summary.CoolingSkills, CoolingSkill{
				SkillID:             sid,
				RemainingRounds:     rec.CooldownUntil - ft.round,
				ConsecutiveFailures: rec.ConsecutiveFailures,
			})
		} else if rec.ConsecutiveFailures > 0 {
			summary.StrugglingSkills = append(summary.StrugglingSkills, StrugglingSkill{
				SkillID:             sid,
				ConsecutiveFailures: rec.ConsecutiveFailures,
			})
		}
	}
	summary.BoostTargets = ft.BoostTargets()
	return summary
}

// appendReason keeps the most recent five distinct failure reasons.
func appendReason(reasons []string, reason string) []string {
	for _, r := range reasons {
		if r == reason {
			return reasons
		}
	}
	reasons = append(reasons, reason)
	if len(reasons) > 5 {
		reasons = reasons[len(reasons)-5:]
	}
	return reasons
}

func keysOf(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
