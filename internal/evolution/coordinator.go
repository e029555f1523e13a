package evolution

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	"prokaryote/internal/logging"
)

// EvolutionContext is the snapshot handed to the tree optimizer when it is
// asked to propose new skills.
type EvolutionContext struct {
	Round          int      `json:"round"`
	Stage          Stage    `json:"stage"`
	Index          float64  `json:"index"`
	EvolvableIDs   []string `json:"evolvable_ids"`
	RecentSuccess  string   `json:"recent_success,omitempty"`
	TotalEvolution int      `json:"total_evolutions"`
}

// ProposedSkill is one skill suggested by the optimizer for the general tree.
type ProposedSkill struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Tier            Tier     `json:"tier"`
	MaxLevel        int      `json:"max_level,omitempty"`
	Prerequisites   []string `json:"prerequisites,omitempty"`
	UnlockCondition string   `json:"unlock_condition,omitempty"`
	Description     string   `json:"description,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

// TreeOptimizer proposes new skills for the general tree. Implementations
// live outside this package; the coordinator swallows their errors.
type TreeOptimizer interface {
	ProposeSkills(ctx context.Context, tree *SkillTree, ec EvolutionContext) ([]ProposedSkill, error)
}

// maxOptimizationHistory caps the per-tree record of optimizer runs.
const maxOptimizationHistory = 20

// Selection is the result of SelectNextSkill. Tree is TreeNone when no
// skill is currently evolvable.
type Selection struct {
	Tree    TreeType `json:"tree"`
	SkillID string   `json:"skill_id,omitempty"`
	Skill   *Skill   `json:"skill,omitempty"`
	Round   int      `json:"round"`
	Stage   Stage    `json:"stage"`
	Index   float64  `json:"index"`
}

// None reports whether the selection carries no skill.
func (s Selection) None() bool {
	return s.Tree == TreeNone
}

// TreeStats is the per-tree slice of the stats surface.
type TreeStats struct {
	TotalSkills    int `json:"total_skills"`
	UnlockedSkills int `json:"unlocked_skills"`
	LevelSum       int `json:"level_sum"`
}

// Stats is the read surface consumed by presentation layers.
type Stats struct {
	Stage              Stage                  `json:"stage"`
	StageName          string                 `json:"stage_name"`
	EvolutionIndex     EvolutionIndex         `json:"evolution_index"`
	TotalSkills        int                    `json:"total_skills"`
	UnlockedSkills     int                    `json:"unlocked_skills"`
	MasteredSkills     int                    `json:"mastered_skills"`
	EvolutionRound     int                    `json:"evolution_round"`
	CategoryEvolutions map[string]int         `json:"category_evolutions"`
	Trees              map[TreeType]TreeStats `json:"trees"`
}

// Coordinator owns the two skill trees and the failure tracker and exposes
// the select/record cycle. It is built for a single mutating goroutine; the
// caller serializes access.
type Coordinator struct {
	store   *TreeStore
	tracker *FailureTracker
	sel     *Selector
	policy  Policy

	trees map[TreeType]*SkillTree

	optimizer TreeOptimizer
	rng       *rand.Rand

	// Session counters, not persisted.
	generalSuccesses   int
	categoryEvolutions map[string]int
}

// Option tweaks coordinator construction.
type Option func(*Coordinator)

// WithPolicy replaces the default policy constants.
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithOptimizer attaches a tree optimizer, invoked every OptimizeEvery
// successful general-tree evolutions.
func WithOptimizer(o TreeOptimizer) Option {
	return func(c *Coordinator) { c.optimizer = o }
}

// WithRand injects a deterministic random source for tree and top-K picks.
func WithRand(rng *rand.Rand) Option {
	return func(c *Coordinator) { c.rng = rng }
}

// New loads both trees and the failure tracker from the workspace state
// directory and returns a ready coordinator. Missing state files start
// empty; New never fails on absent or corrupt state.
func New(stateDir string, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy:             DefaultPolicy(),
		categoryEvolutions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.store = NewTreeStore(
		filepath.Join(stateDir, "trees", "general.json"),
		filepath.Join(stateDir, "trees", "domain.json"),
	)
	c.trees = map[TreeType]*SkillTree{
		TreeGeneral: c.store.Load(TreeGeneral),
		TreeDomain:  c.store.Load(TreeDomain),
	}
	c.tracker = LoadFailureTracker(filepath.Join(stateDir, "config", "failure_tracker.json"), c.policy)
	c.sel = NewSelector(c.policy, c.rng)

	logging.Boot("coordinator ready: %d general + %d domain skills, round %d",
		len(c.trees[TreeGeneral].Skills), len(c.trees[TreeDomain].Skills), c.tracker.Round())
	return c
}

// Tree returns the in-memory tree of the given type, or nil for TreeNone.
func (c *Coordinator) Tree(t TreeType) *SkillTree {
	return c.trees[t]
}

// Round returns the current evolution round.
func (c *Coordinator) Round() int {
	return c.tracker.Round()
}

// SelectNextSkill advances the round, refreshes unlocks on both trees, and
// picks exactly one skill to attempt next. When every skill is locked,
// capped, or cooling it returns a TreeNone selection rather than an error.
func (c *Coordinator) SelectNextSkill() Selection {
	round := c.tracker.AdvanceRound()
	c.refreshUnlocks()

	idx := CalculateIndex(c.treePair(), c.policy.IndexWeights)
	stage := StageForIndex(idx.Index)

	sel := Selection{Tree: TreeNone, Round: round, Stage: stage, Index: idx.Index}

	generalIDs := EvolvableSkills(c.trees[TreeGeneral], c.tracker)
	domainIDs := EvolvableSkills(c.trees[TreeDomain], c.tracker)
	if len(generalIDs) == 0 && len(domainIDs) == 0 {
		logging.Selector("round %d: no evolvable skills", round)
		return sel
	}

	tree := c.sel.PickTree(c.policy.PriorityFor(stage))
	if tree == TreeGeneral && len(generalIDs) == 0 {
		tree = TreeDomain
	} else if tree == TreeDomain && len(domainIDs) == 0 {
		tree = TreeGeneral
	}

	id, ok := c.sel.Select(c.trees[tree], c.tracker)
	if !ok {
		return sel
	}

	sel.Tree = tree
	sel.SkillID = id
	sel.Skill = c.trees[tree].Skills[id].Clone()
	logging.Selector("round %d: selected %s/%s (stage %s, index %.1f)",
		round, tree, id, stage, idx.Index)
	return sel
}

// RecordEvolutionSuccess writes the new level into the tree, re-runs the
// unlock pass, clears the skill's failure record, and persists. Every
// OptimizeEvery successful general-tree evolutions the optimizer is asked
// for new skills; its failure never propagates.
func (c *Coordinator) RecordEvolutionSuccess(tree TreeType, skillID string, newLevel int) {
	t, ok := c.trees[tree]
	if !ok {
		logging.EvolutionWarn("success reported for unknown tree %q", tree)
		return
	}
	skill, ok := t.Skills[skillID]
	if !ok {
		logging.EvolutionWarn("success reported for unknown skill %s/%s", tree, skillID)
		return
	}

	if newLevel < 0 {
		newLevel = 0
	}
	if ceil := skill.Ceiling(); newLevel > ceil {
		newLevel = ceil
	}
	skill.Level = newLevel

	c.refreshUnlocks()
	if err := c.store.Save(tree, t); err != nil {
		logging.StorageWarn("failed to persist %s tree: %v", tree, err)
	}
	c.tracker.ClearFailure(skillID)

	c.categoryEvolutions[skill.Category]++
	logging.Evolution("%s/%s advanced to level %d", tree, skillID, newLevel)

	if tree == TreeGeneral {
		c.generalSuccesses++
		if c.optimizer != nil && c.policy.OptimizeEvery > 0 &&
			c.generalSuccesses%c.policy.OptimizeEvery == 0 {
			c.runOptimizer(skillID)
		}
	}
}

// RecordEvolutionFailure registers a failed attempt and returns the
// tracker's chosen fallback action. Unknown skills still get a record;
// the method never fails.
func (c *Coordinator) RecordEvolutionFailure(tree TreeType, skillID string, level int, reason string) FallbackAction {
	return c.tracker.RecordFailure(skillID, level, reason, c.trees[tree])
}

// GetEvolvableSkills returns the ids of currently evolvable skills in the
// given tree.
func (c *Coordinator) GetEvolvableSkills(tree TreeType) []string {
	t, ok := c.trees[tree]
	if !ok {
		return nil
	}
	return EvolvableSkills(t, c.tracker)
}

// GetStats recomputes the evolution index and returns the full read surface.
func (c *Coordinator) GetStats() Stats {
	idx := CalculateIndex(c.treePair(), c.policy.IndexWeights)
	stage := StageForIndex(idx.Index)

	cat := make(map[string]int, len(c.categoryEvolutions))
	for k, v := range c.categoryEvolutions {
		cat[k] = v
	}

	trees := make(map[TreeType]TreeStats, 2)
	for tt, tree := range c.trees {
		trees[tt] = TreeStats{
			TotalSkills:    len(tree.Skills),
			UnlockedSkills: len(tree.Unlocked()),
			LevelSum:       tree.LevelSum(),
		}
	}

	return Stats{
		Stage:              stage,
		StageName:          stage.DisplayName(),
		EvolutionIndex:     idx,
		TotalSkills:        idx.Detail.TotalSkills,
		UnlockedSkills:     idx.Detail.UnlockedSkills,
		MasteredSkills:     idx.Detail.MasteredSkills,
		EvolutionRound:     c.tracker.Round(),
		CategoryEvolutions: cat,
		Trees:              trees,
	}
}

// GetFailureSummary returns the tracker's cooling/struggling partition.
func (c *Coordinator) GetFailureSummary() FailureSummary {
	return c.tracker.Summary()
}

// GetEvolutionContext snapshots the state handed to the optimizer: round,
// stage, index, and the current general-tree candidate set.
func (c *Coordinator) GetEvolutionContext() EvolutionContext {
	idx := CalculateIndex(c.treePair(), c.policy.IndexWeights)
	return EvolutionContext{
		Round:          c.tracker.Round(),
		Stage:          StageForIndex(idx.Index),
		Index:          idx.Index,
		EvolvableIDs:   EvolvableSkills(c.trees[TreeGeneral], c.tracker),
		TotalEvolution: c.generalSuccesses,
	}
}

func (c *Coordinator) treePair() []*SkillTree {
	return []*SkillTree{c.trees[TreeGeneral], c.trees[TreeDomain]}
}

// refreshUnlocks runs the unlock pass on both trees, letting each see the
// other's levels, and persists any tree that changed.
func (c *Coordinator) refreshUnlocks() {
	generalLevels := c.trees[TreeGeneral].Levels()
	domainLevels := c.trees[TreeDomain].Levels()

	if newly := CheckAndUnlock(c.trees[TreeGeneral], domainLevels); len(newly) > 0 {
		logging.Unlock("general tree unlocked %v", newly)
		if err := c.store.Save(TreeGeneral, c.trees[TreeGeneral]); err != nil {
			logging.StorageWarn("failed to persist general tree: %v", err)
		}
	}
	if newly := CheckAndUnlock(c.trees[TreeDomain], generalLevels); len(newly) > 0 {
		logging.Unlock("domain tree unlocked %v", newly)
		if err := c.store.Save(TreeDomain, c.trees[TreeDomain]); err != nil {
			logging.StorageWarn("failed to persist domain tree: %v", err)
		}
	}
}

// runOptimizer asks the attached optimizer for new general-tree skills and
// merges accepted proposals. Best effort: every error is logged and
// swallowed so the evolution loop keeps running.
func (c *Coordinator) runOptimizer(recentSkill string) {
	tree := c.trees[TreeGeneral]
	ec := c.GetEvolutionContext()
	ec.RecentSuccess = recentSkill

	proposals, err := c.optimizer.ProposeSkills(context.Background(), tree, ec)
	if err != nil {
		logging.OptimizerWarn("tree optimization skipped: %v", err)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var changes []TreeChange
	for _, p := range proposals {
		if p.ID == "" || !p.Tier.Valid() {
			continue
		}
		if _, exists := tree.Skills[p.ID]; exists {
			continue
		}
		tree.Skills[p.ID] = &Skill{
			Name:            p.Name,
			Category:        p.Category,
			Tier:            p.Tier,
			MaxLevel:        p.MaxLevel,
			Prerequisites:   p.Prerequisites,
			UnlockCondition: p.UnlockCondition,
			Description:     p.Description,
			Capabilities:    p.Capabilities,
			AIGenerated:     true,
			GeneratedAt:     now,
		}
		changes = append(changes, TreeChange{Type: "add_skill", SkillID: p.ID, Reason: p.Reason})
	}
	if len(changes) == 0 {
		return
	}

	var triggerLevel int
	if s, ok := tree.Skills[recentSkill]; ok {
		triggerLevel = s.Level
	}
	tree.OptimizationHistory = append(tree.OptimizationHistory, OptimizationRecord{
		Timestamp:    now,
		TriggerSkill: recentSkill,
		TriggerLevel: triggerLevel,
		Changes:      changes,
	})
	if n := len(tree.OptimizationHistory); n > maxOptimizationHistory {
		tree.OptimizationHistory = tree.OptimizationHistory[n-maxOptimizationHistory:]
	}
	tree.LastOptimized = now

	if err := c.store.Save(TreeGeneral, tree); err != nil {
		logging.StorageWarn("failed to persist optimized general tree: %v", err)
	}
	logging.Optimizer("merged %d new skills into general tree", len(changes))
}
