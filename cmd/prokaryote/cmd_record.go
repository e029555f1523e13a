package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var failureReason string

// recordCmd reports an attempt outcome back to the coordinator
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Report an evolution attempt outcome",
}

var recordSuccessCmd = &cobra.Command{
	Use:   "success [tree] [skill] [new-level]",
	Short: "Report a successful evolution attempt",
	Long: `Writes the new level into the tree, re-evaluates unlocks, and
clears the skill's failure record.

Every 5th successful general-tree evolution asks the AI optimizer for
new skills (when configured). The success counter is per process, so
that cadence only applies within a single evolve run; one-shot record
invocations never reach it.`,
	Args: cobra.ExactArgs(3),
	RunE: runRecordSuccess,
}

var recordFailureCmd = &cobra.Command{
	Use:   "failure [tree] [skill] [level]",
	Short: "Report a failed evolution attempt",
	Long: `Registers one more consecutive failure. The third failure in a
row cools the skill down for 3 rounds and boosts its prerequisites;
the fifth cools it for 10.`,
	Args: cobra.ExactArgs(3),
	RunE: runRecordFailure,
}

func init() {
	recordFailureCmd.Flags().StringVar(&failureReason, "reason", "", "failure reason, kept in the tracker")
	recordCmd.AddCommand(recordSuccessCmd)
	recordCmd.AddCommand(recordFailureCmd)
}

func runRecordSuccess(cmd *cobra.Command, args []string) error {
	tree, err := parseTree(args[0])
	if err != nil {
		return err
	}
	level, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("new-level must be an integer: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg)
	coord.RecordEvolutionSuccess(tree, args[1], level)

	if j := openJournal(cfg); j != nil {
		defer j.Close()
		if err := j.RecordSuccess(coord.Round(), tree, args[1], level); err != nil {
			logger.Warn("failed to journal success", zap.Error(err))
		}
	}

	fmt.Printf("Recorded success: %s/%s -> level %d\n", tree, args[1], level)
	return nil
}

func runRecordFailure(cmd *cobra.Command, args []string) error {
	tree, err := parseTree(args[0])
	if err != nil {
		return err
	}
	level, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("level must be an integer: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg)
	action := coord.RecordEvolutionFailure(tree, args[1], level, failureReason)

	if j := openJournal(cfg); j != nil {
		defer j.Close()
		if err := j.RecordFailure(coord.Round(), tree, args[1], level, failureReason, action); err != nil {
			logger.Warn("failed to journal failure", zap.Error(err))
		}
	}

	fmt.Printf("Recorded failure: %s/%s -> %s", tree, args[1], action.Action)
	if action.CooldownRounds > 0 {
		fmt.Printf(" (cooling %d rounds, until round %d)", action.CooldownRounds, action.UntilRound)
	}
	fmt.Println()
	for id, bonus := range action.BoostTargets {
		fmt.Printf("  boosting prerequisite %s (+%.2f)\n", id, bonus)
	}
	return nil
}
