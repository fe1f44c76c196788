package vqlitedb

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "vqlitedb.db", cfg.DataFile)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.AnalyzeCronSpec)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	f, err := os.CreateTemp("", "config_test_*.yaml")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString("data_file: custom.db\nanalyze_cron_spec: \"0 * * * *\"\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := LoadConfig(f.Name())
	require.NoError(t, err)
	require.Equal(t, "custom.db", cfg.DataFile)
	require.Equal(t, "0 * * * *", cfg.AnalyzeCronSpec)
	require.Equal(t, "info", cfg.LogLevel) // untouched field keeps its default
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/to/config.yaml")
	require.Error(t, err)
}
