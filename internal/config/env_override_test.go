package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_AI(t *testing.T) {
	t.Run("GEMINI_API_KEY sets the key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.AI.APIKey)
	})

	t.Run("GEMINI_API_KEY wins over the config file", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.AI.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.AI.APIKey)
	})

	t.Run("empty env leaves the file value", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")

		cfg := DefaultConfig()
		cfg.AI.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-key", cfg.AI.APIKey)
	})
}

func TestEnvOverrides_History(t *testing.T) {
	t.Run("PROKARYOTE_DB overrides the journal path", func(t *testing.T) {
		t.Setenv("PROKARYOTE_DB", "/tmp/override.db")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/override.db", cfg.HistoryDBPath("/ws"))
	})

	t.Run("unset falls back to the state directory", func(t *testing.T) {
		t.Setenv("PROKARYOTE_DB", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, filepath.Join("/ws", StateDirName, "history.db"), cfg.HistoryDBPath("/ws"))
	})
}

func TestEnvOverridesAppliedOnLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "load-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "load-key", cfg.AI.APIKey)
}
