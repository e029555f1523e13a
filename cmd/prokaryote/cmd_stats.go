package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"prokaryote/cmd/prokaryote/ui"
	"prokaryote/internal/evolution"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the evolution stage, index, and both skill trees",
	RunE:  runStats,
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show cooling and struggling skills",
	RunE:  runFailures,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit stats as JSON")
	failuresCmd.Flags().BoolVar(&statsJSON, "json", false, "emit failure summary as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	coord := newCoordinator(cfg)
	stats := coord.GetStats()

	if statsJSON {
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(renderStats(coord, stats, ui.DefaultStyles()))
	return nil
}

func renderStats(coord *evolution.Coordinator, stats evolution.Stats, s ui.Styles) string {
	var b strings.Builder

	header := fmt.Sprintf("%s  %s", s.Badge.Render(stats.StageName), s.Subtitle.Render(
		fmt.Sprintf("round %d, index %.1f", stats.EvolutionRound, stats.EvolutionIndex.Index)))
	b.WriteString(header + "\n\n")

	idx := stats.EvolutionIndex
	dims := []struct {
		name  string
		value float64
	}{
		{"breadth", idx.Breadth},
		{"depth", idx.Depth},
		{"tier", idx.Tier},
		{"mastery", idx.Mastery},
	}
	for _, d := range dims {
		b.WriteString(fmt.Sprintf("  %s %s %5.1f%%\n",
			s.Body.Render(fmt.Sprintf("%-8s", d.name)),
			s.RenderBar(int(d.value*100), 100, 20),
			d.value*100))
	}
	b.WriteString(fmt.Sprintf("\n  %s %d total, %d unlocked, %d mastered\n",
		s.Bold.Render("Skills:"), stats.TotalSkills, stats.UnlockedSkills, stats.MasteredSkills))

	if len(stats.CategoryEvolutions) > 0 {
		cats := make([]string, 0, len(stats.CategoryEvolutions))
		for cat := range stats.CategoryEvolutions {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		b.WriteString("  " + s.Bold.Render("Evolutions:"))
		for _, cat := range cats {
			b.WriteString(fmt.Sprintf(" %s=%d", cat, stats.CategoryEvolutions[cat]))
		}
		b.WriteString("\n")
	}

	for _, tt := range []evolution.TreeType{evolution.TreeGeneral, evolution.TreeDomain} {
		b.WriteString("\n" + renderTree(tt, coord.Tree(tt), s))
	}
	return b.String()
}

func renderTree(tt evolution.TreeType, tree *evolution.SkillTree, s ui.Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(strings.ToUpper(string(tt))+" TREE") + "\n")
	if tree == nil || len(tree.Skills) == 0 {
		b.WriteString(s.Muted.Render("  (empty)") + "\n")
		return b.String()
	}

	ids := make([]string, 0, len(tree.Skills))
	for id := range tree.Skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sk := tree.Skills[id]
		tier := lipgloss.NewStyle().Foreground(ui.TierColor(string(sk.Tier))).Render(
			fmt.Sprintf("%-12s", sk.Tier))
		line := fmt.Sprintf("  %s %s %s Lv.%d/%d",
			tier, s.RenderBar(sk.Level, sk.Ceiling(), 10),
			s.Body.Render(fmt.Sprintf("%-24s", sk.Name)), sk.Level, sk.Ceiling())
		if !sk.Unlocked {
			line += "  " + s.Muted.Render("locked")
		} else if sk.Mastered() {
			line += "  " + s.Success.Render("mastered")
		}
		if sk.AIGenerated {
			line += "  " + s.Info.Render("discovered")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func runFailures(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	coord := newCoordinator(cfg)
	summary := coord.GetFailureSummary()

	if statsJSON {
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	s := ui.DefaultStyles()
	fmt.Printf("%s round %d\n\n", s.Badge.Render("FAILURES"), summary.EvolutionRound)

	if len(summary.CoolingSkills) == 0 && len(summary.StrugglingSkills) == 0 {
		fmt.Println(s.Muted.Render("  no skills are cooling or struggling"))
		return nil
	}

	for _, c := range summary.CoolingSkills {
		fmt.Printf("  %s %s: %d rounds remaining after %d consecutive failures\n",
			s.Error.Render("cooling"), c.SkillID, c.RemainingRounds, c.ConsecutiveFailures)
	}
	for _, st := range summary.StrugglingSkills {
		fmt.Printf("  %s %s: %d consecutive failures\n",
			s.Warning.Render("struggling"), st.SkillID, st.ConsecutiveFailures)
	}
	if len(summary.BoostTargets) > 0 {
		ids := make([]string, 0, len(summary.BoostTargets))
		for id := range summary.BoostTargets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Println()
		for _, id := range ids {
			fmt.Printf("  %s %s +%.2f\n", s.Info.Render("boosted"), id, summary.BoostTargets[id])
		}
	}
	return nil
}
