package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("DefaultsWhenNoFile", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Development, cfg.Environment)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
		assert.Equal(t, 22, cfg.Timing.QuietStartHour)
		assert.Contains(t, cfg.LoadedFrom, "defaults")
	})

	t.Run("MissingFileIsSkipped", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9090
orchestrator:
  debounce_delay: 10s
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Production, cfg.Environment)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Orchestrator.DebounceDelay)
		// Untouched sections keep defaults.
		assert.Equal(t, 0.3, cfg.Analyzer.MinThreshold)
		assert.Contains(t, cfg.LoadedFrom, path)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

		t.Setenv("RESURFACE_SERVER_PORT", "7070")
		t.Setenv("RESURFACE_LOG_LEVEL", "debug")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("InvalidValuesRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: cassandra\n"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MalformedYAMLRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
