// Package config loads leapdecide configuration.
//
// Values are layered, highest priority first: command flags, LEAPDECIDE_
// environment variables, a leapdecide.yaml file, and the defaults below.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/lint"
)

// Default configuration values.
const (
	DefaultDialect      = "postgresql"
	DefaultEntryPoint   = "decision_space_hl7"
	DefaultWindowDays   = 2
	DefaultRowIDColumn  = "msg_id"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultOutput       = "text"
	DefaultStateFile    = ".leapdecide/history.db"
	DefaultEngine       = EngineDuckDB
	DefaultCanonicalDB  = ":memory:"
	DefaultServerAddr   = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultLintFailOn   = "error"
)

// Canonicalization engines.
const (
	EngineDuckDB = "duckdb"
	EngineFormat = "format"
)

// Config holds all leapdecide configuration.
type Config struct {
	Dialect         string             `koanf:"dialect" yaml:"dialect"`
	EntryPoint      string             `koanf:"entry_point" yaml:"entry_point"`
	WindowDays      int                `koanf:"window_days" yaml:"window_days"`
	RowIDColumn     string             `koanf:"row_id_column" yaml:"row_id_column"`
	TransitiveFlags bool               `koanf:"transitive_flags" yaml:"transitive_flags"`
	GroupFlags      bool               `koanf:"group_flags" yaml:"group_flags"`
	LogLevel        string             `koanf:"log_level" yaml:"log_level"`
	LogFormat       string             `koanf:"log_format" yaml:"log_format"`
	OutputFormat    string             `koanf:"output" yaml:"output"`
	StatePath       string             `koanf:"state_path" yaml:"state_path"`
	RecordHistory   bool               `koanf:"record_history" yaml:"record_history"`
	Canonicalize    CanonicalizeConfig `koanf:"canonicalize" yaml:"canonicalize"`
	Server          ServerConfig       `koanf:"server" yaml:"server"`
	Lint            LintConfig         `koanf:"lint" yaml:"lint"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// CanonicalizeConfig controls the optional validation step.
type CanonicalizeConfig struct {
	Enabled     bool               `koanf:"enabled" yaml:"enabled"`
	Engine      string             `koanf:"engine" yaml:"engine"`
	Database    string             `koanf:"database" yaml:"database"`
	FactColumns []canonical.Column `koanf:"fact_columns" yaml:"fact_columns,omitempty"`
}

// ServerConfig holds configuration for the HTTP compile service.
type ServerConfig struct {
	Addr         string        `koanf:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// LintConfig selects policy lint rules.
type LintConfig struct {
	// Disable lists rule IDs to skip.
	Disable []string `koanf:"disable" yaml:"disable,omitempty"`
	// Severity overrides rule severities by ID.
	Severity map[string]string `koanf:"severity" yaml:"severity,omitempty"`
	// FailOn is the lowest severity that fails the lint command.
	FailOn string `koanf:"fail_on" yaml:"fail_on"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Dialect:      DefaultDialect,
		EntryPoint:   DefaultEntryPoint,
		WindowDays:   DefaultWindowDays,
		RowIDColumn:  DefaultRowIDColumn,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
		StatePath:    DefaultStateFile,
		Canonicalize: CanonicalizeConfig{
			Engine:   DefaultEngine,
			Database: DefaultCanonicalDB,
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Lint: LintConfig{
			FailOn: DefaultLintFailOn,
		},
	}
}

// defaults returns the flattened default key map loaded first by Load.
func defaults() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"dialect":               d.Dialect,
		"entry_point":           d.EntryPoint,
		"window_days":           d.WindowDays,
		"row_id_column":         d.RowIDColumn,
		"transitive_flags":      false,
		"group_flags":           false,
		"log_level":             d.LogLevel,
		"log_format":            d.LogFormat,
		"output":                d.OutputFormat,
		"state_path":            d.StatePath,
		"record_history":        false,
		"canonicalize.enabled":  false,
		"canonicalize.engine":   d.Canonicalize.Engine,
		"canonicalize.database": d.Canonicalize.Database,
		"server.addr":           d.Server.Addr,
		"server.read_timeout":   d.Server.ReadTimeout.String(),
		"server.write_timeout":  d.Server.WriteTimeout.String(),
		"lint.fail_on":          d.Lint.FailOn,
	}
}

// Analyzer builds a lint analyzer from the configured rule selection.
func (c LintConfig) Analyzer() (*lint.Analyzer, error) {
	cfg := lint.NewConfig()
	for _, id := range c.Disable {
		if _, ok := lint.GetByID(id); !ok {
			return nil, fmt.Errorf("lint.disable: unknown rule %q", id)
		}
		cfg.Disable(id)
	}
	for id, name := range c.Severity {
		if _, ok := lint.GetByID(id); !ok {
			return nil, fmt.Errorf("lint.severity: unknown rule %q", id)
		}
		sev, ok := lint.ParseSeverity(name)
		if !ok {
			return nil, fmt.Errorf("lint.severity.%s: invalid severity %q", id, name)
		}
		cfg.SetSeverity(id, sev)
	}
	return lint.NewAnalyzer(cfg), nil
}

// FailSeverity returns the parsed fail_on threshold.
func (c LintConfig) FailSeverity() (lint.Severity, error) {
	sev, ok := lint.ParseSeverity(c.FailOn)
	if !ok {
		return 0, fmt.Errorf("invalid lint.fail_on %q (expected one of: error, warning, info, hint)", c.FailOn)
	}
	return sev, nil
}
