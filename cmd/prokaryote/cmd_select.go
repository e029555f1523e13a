package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prokaryote/internal/evolution"
)

var selectJSON bool

// selectCmd picks the next skill to attempt
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick the next skill to attempt",
	Long: `Advances the evolution round, refreshes unlocks on both trees,
and prints the skill the coordinator wants attempted next. The caller
is expected to attempt it and report the outcome via 'record'.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "machine-readable output")
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord := newCoordinator(cfg)
	sel := coord.SelectNextSkill()

	if j := openJournal(cfg); j != nil {
		defer j.Close()
		if err := j.RecordSelection(sel); err != nil {
			logger.Warn("failed to journal selection", zap.Error(err))
		}
	}

	if selectJSON {
		return json.NewEncoder(os.Stdout).Encode(sel)
	}

	if sel.None() {
		fmt.Printf("Round %d: no evolvable skill (all locked, capped, or cooling)\n", sel.Round)
		return nil
	}

	fmt.Printf("Round %d [%s, index %.1f]\n", sel.Round, sel.Stage.DisplayName(), sel.Index)
	fmt.Printf("Next: %s/%s (%s, tier %s, level %d/%d)\n",
		sel.Tree, sel.SkillID, sel.Skill.Name, sel.Skill.Tier,
		sel.Skill.Level, sel.Skill.Ceiling())
	return nil
}

// parseTree validates a tree argument.
func parseTree(arg string) (evolution.TreeType, error) {
	switch arg {
	case "general":
		return evolution.TreeGeneral, nil
	case "domain":
		return evolution.TreeDomain, nil
	}
	return evolution.TreeNone, fmt.Errorf("tree must be 'general' or 'domain', got %q", arg)
}
