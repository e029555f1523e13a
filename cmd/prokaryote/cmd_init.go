package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prokaryote/internal/config"
	"prokaryote/internal/evolution"
	"prokaryote/internal/seed"
)

var seedFile string

// initCmd initializes prokaryote in the current workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize prokaryote in the current workspace",
	Long: `Creates the .prokaryote/ state directory, writes a default
config.yaml, and seeds the two skill trees.

Trees are seeded from --seed-file when given, otherwise from the
built-in starter tree. Re-running init never overwrites a tree that
already has skills.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&seedFile, "seed-file", "", "YAML seed file for the skill trees")
}

func runInit(cmd *cobra.Command, args []string) error {
	stateDir := config.StateDir(workspace)
	for _, dir := range []string{
		stateDir,
		filepath.Join(stateDir, "trees"),
		filepath.Join(stateDir, "config"),
		filepath.Join(stateDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	cfgPath := config.DefaultPath(workspace)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(cfgPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgPath)
	}

	s := seed.Default()
	if seedFile != "" {
		loaded, err := seed.Load(seedFile)
		if err != nil {
			return err
		}
		s = loaded
	}

	store := evolution.NewTreeStore(
		filepath.Join(stateDir, "trees", "general.json"),
		filepath.Join(stateDir, "trees", "domain.json"),
	)
	if err := seed.Apply(s, store); err != nil {
		return err
	}

	fmt.Printf("Initialized %s (%d general, %d domain skills)\n",
		stateDir, len(s.General), len(s.Domain))
	return nil
}
