package vqlitedb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables an operator may override when opening a table.
// Zero values are not valid configuration; use DefaultConfig and override
// from there.
type Config struct {
	// DataFile is the path to the table's page file.
	DataFile string `yaml:"data_file"`

	// AnalyzeCronSpec, if non-empty, is a standard 5-field cron expression
	// on which ANALYZE runs automatically in the background. Leave empty to
	// only run it when explicitly requested.
	AnalyzeCronSpec string `yaml:"analyze_cron_spec"`

	// LogLevel is one of zap's level names: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		DataFile: "vqlitedb.db",
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file at path, applying it over
// DefaultConfig so an omitted field keeps its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}
