package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prokaryote/internal/config"
	"prokaryote/internal/evolution"
	"prokaryote/internal/history"
	"prokaryote/internal/logging"
	"prokaryote/internal/optimizer"
)

var (
	// Global flags
	verbose   bool
	workspace string
	randSeed  int64

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prokaryote",
	Short: "prokaryote - skill evolution coordinator for a self-evolving agent",
	Long: `prokaryote owns the two skill trees of a self-evolving agent
(general and domain), computes the multi-dimensional evolution index,
and decides which skill to practice next.

The coordinator never generates or runs code itself: an external driver
asks it what to attempt, performs the attempt, and reports the outcome
back. Repeated failures cool a skill down and redirect effort toward
its prerequisites.

State lives under <workspace>/.prokaryote/.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("debug logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig reads .prokaryote/config.yaml for the active workspace.
func loadConfig() (*config.Config, error) {
	return config.Load(config.DefaultPath(workspace))
}

// newCoordinator wires a coordinator from config: policy knobs, the
// optional deterministic seed, and the Gemini optimizer when a key is
// configured.
func newCoordinator(cfg *config.Config) *evolution.Coordinator {
	opts := []evolution.Option{
		evolution.WithPolicy(cfg.EvolutionPolicy()),
	}

	if randSeed != 0 {
		opts = append(opts, evolution.WithRand(rand.New(rand.NewSource(randSeed))))
	}

	if cfg.AI.APIKey != "" {
		opt, err := optimizer.New(cfg.AI.APIKey, cfg.AI.Model, cfg.AITimeout())
		if err != nil {
			logger.Warn("tree optimizer unavailable", zap.Error(err))
		} else {
			opts = append(opts, evolution.WithOptimizer(opt))
		}
	}

	return evolution.New(config.StateDir(workspace), opts...)
}

// openJournal opens the attempt journal, or returns nil when disabled or
// unavailable. Journal problems never block the evolution loop.
func openJournal(cfg *config.Config) *history.Journal {
	if !cfg.History.Enabled {
		return nil
	}
	j, err := history.Open(cfg.HistoryDBPath(workspace))
	if err != nil {
		logger.Warn("attempt journal unavailable", zap.Error(err))
		return nil
	}
	return j
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Int64Var(&randSeed, "seed", 0, "deterministic random seed (0 = random)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
