package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

const embedded = `
sweep:
  system:
    logging:
      level: DEBUG
  launch:
    max_concurrency: 4
    tag_column: variant
  database:
    metadata:
      type: sqlite
      database: ${SWEEP_TEST_DB}
`

// TestNewConfig_Defaults verifies the values used when no configuration file sets them.
func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "UTC", cfg.Sweep.System.Timezone)
	assert.Equal(t, "INFO", cfg.Sweep.System.Logging.Level)
	assert.Equal(t, "metadata", cfg.Sweep.Store.DatabaseRef)
	assert.Equal(t, "sweep_schema_migrations", cfg.Sweep.Store.MigrationsTable)
	assert.Equal(t, 8, cfg.Sweep.Launch.MaxConcurrency)
	assert.Equal(t, 120, cfg.Sweep.Launch.TimeoutSeconds)
	assert.Equal(t, "tag", cfg.Sweep.Launch.TagColumn)
	assert.True(t, cfg.Sweep.Scheduler.Enabled)
	assert.Equal(t, "qsub", cfg.Sweep.Scheduler.SubmitCommand)
	assert.Equal(t, "qstat", cfg.Sweep.Scheduler.QueryCommand)
	assert.Equal(t, map[string]string{"Q": "queued", "R": "running", "H": "held", "S": "suspended"}, cfg.Sweep.Scheduler.StatusMap)
	assert.Equal(t, "@every 1m", cfg.Sweep.Reconcile.Schedule)
	assert.Equal(t, "snapshots", cfg.Sweep.Storage.SnapshotPrefix)
	assert.NoError(t, config.Validate(cfg))
}

func TestLoadConfig_EmbeddedDocument(t *testing.T) {
	t.Setenv("SWEEP_TEST_DB", "/tmp/sweep-test.db")

	cfg, err := config.LoadConfig("", "", config.EmbeddedConfig(embedded), nil)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Sweep.System.Logging.Level)
	assert.Equal(t, 4, cfg.Sweep.Launch.MaxConcurrency)
	assert.Equal(t, "variant", cfg.Sweep.Launch.TagColumn)
	// Unset keys keep their defaults.
	assert.Equal(t, 120, cfg.Sweep.Launch.TimeoutSeconds)

	db, ok := cfg.Sweep.AdapterConfigs["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/tmp/sweep-test.db", db["database"])
}

func TestLoadConfig_TOMLFileOverridesEmbedded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[sweep.launch]
max_concurrency = 2
config_preamble = ["experiment singlerun", "verbosity 1"]

[sweep.scheduler]
enabled = false
`), 0o644))

	cfg, err := config.LoadConfig("", path, config.EmbeddedConfig(embedded), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Sweep.Launch.MaxConcurrency)
	assert.Equal(t, []string{"experiment singlerun", "verbosity 1"}, cfg.Sweep.Launch.ConfigPreamble)
	assert.False(t, cfg.Sweep.Scheduler.Enabled)
	assert.Equal(t, "variant", cfg.Sweep.Launch.TagColumn)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SWEEP_LAUNCH_MAX_CONCURRENCY", "16")
	t.Setenv("SWEEP_LAUNCH_CONFIG_PREAMBLE", "a, b")
	t.Setenv("SWEEP_SCHEDULER_STATUS_MAP_E", "running")
	t.Setenv("SWEEP_METRICS_OTEL_ENABLED", "false")

	cfg, err := config.LoadConfig("", "", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Sweep.Launch.MaxConcurrency)
	assert.Equal(t, []string{"a", "b"}, cfg.Sweep.Launch.ConfigPreamble)
	assert.Equal(t, "running", cfg.Sweep.Scheduler.StatusMap["E"])
	assert.Equal(t, "queued", cfg.Sweep.Scheduler.StatusMap["Q"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero concurrency":      "sweep:\n  launch:\n    max_concurrency: 0\n",
		"status map to done":    "sweep:\n  scheduler:\n    status_map:\n      C: done\n",
		"otel without target":   "sweep:\n  metrics:\n    otel:\n      enabled: true\n",
		"unknown otel protocol": "sweep:\n  metrics:\n    otel:\n      protocol: udp\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig("", "", config.EmbeddedConfig(doc), nil)
			require.Error(t, err)
			assert.True(t, exception.IsBatchError(err))
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig("", filepath.Join(t.TempDir(), "absent.yaml"), nil, nil)
	require.Error(t, err)
	var be *exception.BatchError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, "config", be.Module)
}
