package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/all"
)

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	outputFormats = []string{"text", "json"}
	engines       = []string{EngineDuckDB, EngineFormat}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return err
	}
	if !slices.Contains(decide.EntryPoints(), c.EntryPoint) {
		return &decide.UnsupportedEntryPointError{EntryPoint: c.EntryPoint, Supported: decide.EntryPoints()}
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("window_days must be a positive integer, got %d", c.WindowDays)
	}
	if strings.TrimSpace(c.RowIDColumn) == "" {
		return fmt.Errorf("row_id_column is required")
	}
	if err := oneOf("log_level", c.LogLevel, logLevels); err != nil {
		return err
	}
	if err := oneOf("log_format", c.LogFormat, logFormats); err != nil {
		return err
	}
	if err := oneOf("output", c.OutputFormat, outputFormats); err != nil {
		return err
	}
	if err := oneOf("canonicalize.engine", c.Canonicalize.Engine, engines); err != nil {
		return err
	}
	for i, col := range c.Canonicalize.FactColumns {
		if col.Name == "" || col.Type == "" {
			return fmt.Errorf("canonicalize.fact_columns[%d]: name and type are required", i)
		}
	}
	if _, err := c.Lint.Analyzer(); err != nil {
		return err
	}
	if _, err := c.Lint.FailSeverity(); err != nil {
		return err
	}
	if c.RecordHistory && c.StatePath == "" {
		return fmt.Errorf("state_path is required when record_history is enabled")
	}
	return nil
}

func oneOf(key, value string, allowed []string) error {
	if slices.Contains(allowed, strings.ToLower(value)) {
		return nil
	}
	return fmt.Errorf("invalid %s %q (expected one of: %s)", key, value, strings.Join(allowed, ", "))
}
