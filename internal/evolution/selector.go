package evolution

import (
	"math/rand"
	"sort"

	"prokaryote/internal/logging"
)

// EvolvableSkills returns the ids of skills in the tree that can receive an
// evolution attempt right now: unlocked, below their ceiling, and not inside
// a cooldown window. Order is deterministic.
func EvolvableSkills(tree *SkillTree, tracker *FailureTracker) []string {
	var ids []string
	for id, skill := range tree.Skills {
		if !skill.Unlocked || skill.AtCeiling() {
			continue
		}
		if tracker != nil && tracker.Cooling(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scoredSkill pairs a candidate with its selection score. Lower scores are
// more urgent: a low-level basic skill with boosted prerequisites beats a
// nearly-capped master skill with a failure streak.
type scoredSkill struct {
	ID    string
	Score float64
}

// Selector ranks evolvable skills and picks one of the best few at random,
// so repeated selections spread effort instead of hammering the single
// top-ranked skill.
type Selector struct {
	policy Policy
	rng    *rand.Rand
}

// NewSelector builds a selector. A nil rng falls back to the global source.
func NewSelector(policy Policy, rng *rand.Rand) *Selector {
	return &Selector{policy: policy, rng: rng}
}

// PickTree chooses between the general and domain tree by the stage's
// priority split.
func (s *Selector) PickTree(pri Priority) TreeType {
	if s.randFloat() < pri.General {
		return TreeGeneral
	}
	return TreeDomain
}

// Score computes the selection score for a single skill. Progress toward
// the ceiling dominates, higher tiers are mildly discouraged, failure
// penalties push a skill down and prerequisite boosts pull it up.
func (s *Selector) Score(skill *Skill, penalty, boost float64) float64 {
	progress := 1.0
	if c := skill.Ceiling(); c > 0 {
		progress = float64(skill.Level) / float64(c)
	}
	return progress + float64(skill.Tier.Order())*0.05 + penalty - boost
}

// Select scores every evolvable skill in the tree and returns one of the
// TopK lowest-scoring candidates, chosen uniformly. Returns false when the
// tree has no evolvable skill.
func (s *Selector) Select(tree *SkillTree, tracker *FailureTracker) (string, bool) {
	candidates := EvolvableSkills(tree, tracker)
	if len(candidates) == 0 {
		return "", false
	}

	var boost map[string]float64
	if tracker != nil {
		boost = tracker.BoostTargets()
	}

	scored := make([]scoredSkill, 0, len(candidates))
	for _, id := range candidates {
		var penalty float64
		if tracker != nil {
			penalty = tracker.Penalty(id)
		}
		scored = append(scored, scoredSkill{
			ID:    id,
			Score: s.Score(tree.Skills[id], penalty, boost[id]),
		})
	}

	// Stable by construction: candidates are sorted by id, and SliceStable
	// preserves that order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	k := s.policy.TopK
	if k <= 0 {
		k = 1
	}
	if k > len(scored) {
		k = len(scored)
	}
	pick := scored[s.randIntn(k)]
	logging.SelectorDebug("picked %s (score %.3f) from top %d of %d candidates",
		pick.ID, pick.Score, k, len(scored))
	return pick.ID, true
}

func (s *Selector) randFloat() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

func (s *Selector) randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	if s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}
