package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prokaryote/internal/evolution"
	"prokaryote/internal/history"
)

var (
	evolveRounds      int
	evolveSuccessRate float64
)

// evolveCmd drives the select -> attempt -> report loop
var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run the evolution loop for a number of rounds",
	Long: `Repeatedly selects a skill, attempts it, and reports the outcome
back to the coordinator.

The real capability generator lives outside this tool, so attempts are
simulated: each one succeeds with --success-rate probability and raises
the skill's level by one. Use this to exercise the scheduling policy -
cooldowns, prerequisite boosting, and stage transitions behave exactly
as they would under a real generator.`,
	RunE: runEvolve,
}

func init() {
	evolveCmd.Flags().IntVarP(&evolveRounds, "rounds", "n", 10, "number of evolution rounds")
	evolveCmd.Flags().Float64Var(&evolveSuccessRate, "success-rate", 0.7, "simulated attempt success probability")
}

// attemptRunner turns a selected skill into an outcome. The simulated
// runner stands in for the external capability generator.
type attemptRunner interface {
	Attempt(sel evolution.Selection) (success bool, newLevel int, reason string)
}

type simulatedRunner struct {
	rng         *rand.Rand
	successRate float64
}

func (r *simulatedRunner) Attempt(sel evolution.Selection) (bool, int, string) {
	if r.rng.Float64() < r.successRate {
		return true, sel.Skill.Level + 1, ""
	}
	return false, sel.Skill.Level, "simulated attempt failed"
}

func runEvolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg)
	journal := openJournal(cfg)
	if journal != nil {
		defer journal.Close()
	}

	src := rand.NewSource(time.Now().UnixNano())
	if randSeed != 0 {
		src = rand.NewSource(randSeed)
	}
	runner := &simulatedRunner{rng: rand.New(src), successRate: evolveSuccessRate}

	successes, failures, idle := 0, 0, 0
	for i := 0; i < evolveRounds; i++ {
		sel := coord.SelectNextSkill()
		journalSelection(journal, sel)
		if sel.None() {
			idle++
			fmt.Printf("round %d: idle (nothing evolvable)\n", sel.Round)
			continue
		}

		ok, newLevel, reason := runner.Attempt(sel)
		if ok {
			coord.RecordEvolutionSuccess(sel.Tree, sel.SkillID, newLevel)
			journalSuccess(journal, coord.Round(), sel.Tree, sel.SkillID, newLevel)
			successes++
			fmt.Printf("round %d: %s/%s -> level %d\n", sel.Round, sel.Tree, sel.SkillID, newLevel)
		} else {
			action := coord.RecordEvolutionFailure(sel.Tree, sel.SkillID, sel.Skill.Level, reason)
			journalFailure(journal, coord.Round(), sel.Tree, sel.SkillID, sel.Skill.Level, reason, action)
			failures++
			fmt.Printf("round %d: %s/%s failed (%s)\n", sel.Round, sel.Tree, sel.SkillID, action.Action)
		}
	}

	stats := coord.GetStats()
	fmt.Printf("\n%d rounds: %d succeeded, %d failed, %d idle\n", evolveRounds, successes, failures, idle)
	fmt.Printf("Stage: %s, index %.1f, %d/%d skills unlocked\n",
		stats.StageName, stats.EvolutionIndex.Index, stats.UnlockedSkills, stats.TotalSkills)
	return nil
}

func journalSelection(j *history.Journal, sel evolution.Selection) {
	if j == nil {
		return
	}
	if err := j.RecordSelection(sel); err != nil {
		logger.Warn("failed to journal selection", zap.Error(err))
	}
}

func journalSuccess(j *history.Journal, round int, tree evolution.TreeType, skillID string, level int) {
	if j == nil {
		return
	}
	if err := j.RecordSuccess(round, tree, skillID, level); err != nil {
		logger.Warn("failed to journal success", zap.Error(err))
	}
}

func journalFailure(j *history.Journal, round int, tree evolution.TreeType, skillID string, level int, reason string, action evolution.FallbackAction) {
	if j == nil {
		return
	}
	if err := j.RecordFailure(round, tree, skillID, level, reason, action); err != nil {
		logger.Warn("failed to journal failure", zap.Error(err))
	}
}
