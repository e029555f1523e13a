package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"prokaryote/internal/history"
)

var (
	historyLimit int
	historySkill string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled evolution attempts",
	Long: `Reads the attempt journal and prints recent activity, newest first.
With --skill, shows every attempt for one skill plus its success rate.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of attempts to show")
	historyCmd.Flags().StringVar(&historySkill, "skill", "", "show attempts for one skill only")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit attempts as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history journal is disabled in config")
	}

	journal, err := history.Open(cfg.HistoryDBPath(workspace))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	var attempts []history.Attempt
	if historySkill != "" {
		attempts, err = journal.BySkill(historySkill)
	} else {
		attempts, err = journal.Recent(historyLimit)
	}
	if err != nil {
		return err
	}

	if historyJSON {
		out, err := json.MarshalIndent(attempts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(attempts) == 0 {
		fmt.Println("no journaled attempts")
		return nil
	}

	for _, a := range attempts {
		line := fmt.Sprintf("%s  r%-4d %-8s %s/%s Lv.%d",
			a.Timestamp.Local().Format("2006-01-02 15:04:05"),
			a.Round, a.Outcome, a.Tree, a.SkillID, a.Level)
		if a.Action != "" {
			line += " (" + a.Action + ")"
		}
		if a.Reason != "" {
			line += " - " + a.Reason
		}
		fmt.Println(line)
	}

	rates, err := journal.SuccessRate()
	if err != nil {
		return err
	}
	if historySkill != "" {
		if r, ok := rates[historySkill]; ok {
			total := r[0] + r[1]
			fmt.Printf("\n%s: %d/%d succeeded (%.0f%%)\n",
				historySkill, r[0], total, float64(r[0])/float64(total)*100)
		}
		return nil
	}

	ids := make([]string, 0, len(rates))
	for id := range rates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println()
	for _, id := range ids {
		r := rates[id]
		fmt.Printf("%-24s %d succeeded, %d failed\n", id, r[0], r[1])
	}
	return nil
}
