// Package config loads the prokaryote agent configuration from
// .prokaryote/config.yaml, with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"prokaryote/internal/evolution"
)

// StateDirName is the agent state directory under the workspace root.
const StateDirName = ".prokaryote"

// Config holds all prokaryote configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// AI tree optimizer backend
	AI AIConfig `yaml:"ai"`

	// Evolution policy knobs
	Policy PolicyConfig `yaml:"policy"`

	// Attempt journal
	History HistoryConfig `yaml:"history"`

	// Tree file watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AIConfig configures the Gemini-backed tree optimizer.
type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// PolicyConfig overrides the built-in evolution policy constants. Zero
// values mean "use the default".
type PolicyConfig struct {
	CooldownShort       int     `yaml:"cooldown_short"`
	CooldownLong        int     `yaml:"cooldown_long"`
	FailurePenaltyStep  float64 `yaml:"failure_penalty_step"`
	FailurePenaltyMax   float64 `yaml:"failure_penalty_max"`
	PrereqBonusDirect   float64 `yaml:"prereq_bonus_direct"`
	PrereqBonusIndirect float64 `yaml:"prereq_bonus_indirect"`
	TopK                int     `yaml:"top_k"`
	OptimizeEvery       int     `yaml:"optimize_every"`

	IndexWeights IndexWeightsConfig `yaml:"index_weights"`
}

// IndexWeightsConfig overrides the evolution index dimension weights.
type IndexWeightsConfig struct {
	Breadth float64 `yaml:"breadth"`
	Depth   float64 `yaml:"depth"`
	Tier    float64 `yaml:"tier"`
	Mastery float64 `yaml:"mastery"`
}

// HistoryConfig configures the SQLite attempt journal.
type HistoryConfig struct {
	DatabasePath string `yaml:"database_path"`
	Enabled      bool   `yaml:"enabled"`
}

// WatchConfig configures the tree file watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "prokaryote",
		Version: "0.1.0",
		AI: AIConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// StateDir returns the agent state directory for a workspace.
func StateDir(workspace string) string {
	return filepath.Join(workspace, StateDirName)
}

// DefaultPath returns the config file path for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(StateDir(workspace), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}
	if path := os.Getenv("PROKARYOTE_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

// EvolutionPolicy converts the policy block into a full evolution policy,
// falling back to the built-in defaults for any zero-valued knob.
func (c *Config) EvolutionPolicy() evolution.Policy {
	p := evolution.DefaultPolicy()

	if v := c.Policy.CooldownShort; v > 0 {
		p.CooldownShort = v
	}
	if v := c.Policy.CooldownLong; v > 0 {
		p.CooldownLong = v
	}
	if v := c.Policy.FailurePenaltyStep; v > 0 {
		p.FailurePenaltyStep = v
	}
	if v := c.Policy.FailurePenaltyMax; v > 0 {
		p.FailurePenaltyMax = v
	}
	if v := c.Policy.PrereqBonusDirect; v > 0 {
		p.PrereqBonusDirect = v
	}
	if v := c.Policy.PrereqBonusIndirect; v > 0 {
		p.PrereqBonusIndirect = v
	}
	if v := c.Policy.TopK; v > 0 {
		p.TopK = v
	}
	if v := c.Policy.OptimizeEvery; v > 0 {
		p.OptimizeEvery = v
	}

	w := c.Policy.IndexWeights
	if w.Breadth+w.Depth+w.Tier+w.Mastery > 0 {
		p.IndexWeights = evolution.IndexWeights{
			Breadth: w.Breadth,
			Depth:   w.Depth,
			Tier:    w.Tier,
			Mastery: w.Mastery,
		}
	}

	return p
}

// HistoryDBPath resolves the attempt journal path, defaulting to
// .prokaryote/history.db.
func (c *Config) HistoryDBPath(workspace string) string {
	if c.History.DatabasePath != "" {
		return c.History.DatabasePath
	}
	return filepath.Join(StateDir(workspace), "history.db")
}

// AITimeout returns the optimizer call timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	d, err := time.ParseDuration(c.AI.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// WatchDebounce returns the watcher debounce interval as a duration.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
