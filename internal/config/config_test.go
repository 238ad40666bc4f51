package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/lint"
	"github.com/leapstack-labs/leapdecide/pkg/model"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dialect", "", "")
	fs.Int("window-days", 0, "")
	fs.String("state", "", "")
	fs.Bool("canonicalize", false, "")
	fs.String("canonicalize-engine", "", "")
	fs.String("addr", "", "")
	fs.Bool("transitive", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDialect, cfg.Dialect)
	assert.Equal(t, DefaultEntryPoint, cfg.EntryPoint)
	assert.Equal(t, DefaultWindowDays, cfg.WindowDays)
	assert.Equal(t, DefaultRowIDColumn, cfg.RowIDColumn)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, EngineDuckDB, cfg.Canonicalize.Engine)
	assert.Equal(t, ":memory:", cfg.Canonicalize.Database)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Canonicalize.Enabled)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Empty(t, GetConfigFileUsed())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	writeConfig(t, dir, `
dialect: bigquery
window_days: 5
row_id_column: id
canonicalize:
  enabled: true
  engine: format
  fact_columns:
    - name: ward
      type: VARCHAR
server:
  addr: ":9000"
  read_timeout: 3s
`)

	tests := []struct {
		name        string
		env         map[string]string
		set         map[string]string
		wantDialect string
		wantDays    int
		wantAddr    string
	}{
		{
			name:        "file overrides defaults",
			wantDialect: "bigquery",
			wantDays:    5,
			wantAddr:    ":9000",
		},
		{
			name:        "env overrides file",
			env:         map[string]string{"LEAPDECIDE_DIALECT": "clickhouse", "LEAPDECIDE_SERVER__ADDR": ":7000"},
			wantDialect: "clickhouse",
			wantDays:    5,
			wantAddr:    ":7000",
		},
		{
			name:        "flags override env",
			env:         map[string]string{"LEAPDECIDE_DIALECT": "clickhouse", "LEAPDECIDE_WINDOW_DAYS": "9"},
			set:         map[string]string{"dialect": "postgres", "addr": ":6000"},
			wantDialect: "postgres",
			wantDays:    9,
			wantAddr:    ":6000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, val := range tt.env {
				t.Setenv(key, val)
			}
			flags := newFlags()
			for name, val := range tt.set {
				require.NoError(t, flags.Set(name, val))
			}

			cfg, err := Load("", flags)
			require.NoError(t, err)

			assert.Equal(t, tt.wantDialect, cfg.Dialect)
			assert.Equal(t, tt.wantDays, cfg.WindowDays)
			assert.Equal(t, tt.wantAddr, cfg.Server.Addr)
			assert.Equal(t, "id", cfg.RowIDColumn)
			assert.True(t, cfg.Canonicalize.Enabled)
			assert.Equal(t, EngineFormat, cfg.Canonicalize.Engine)
			assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
			require.Len(t, cfg.Canonicalize.FactColumns, 1)
			assert.Equal(t, "ward", cfg.Canonicalize.FactColumns[0].Name)
			assert.NotEmpty(t, GetConfigFileUsed())
		})
	}
}

func TestLoad_FlagKeys(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	flags := newFlags()
	require.NoError(t, flags.Set("state", "custom/history.db"))
	require.NoError(t, flags.Set("canonicalize", "true"))
	require.NoError(t, flags.Set("canonicalize-engine", "format"))
	require.NoError(t, flags.Set("transitive", "true"))
	require.NoError(t, flags.Set("window-days", "4"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "custom/history.db"), cfg.StatePath)
	assert.True(t, cfg.Canonicalize.Enabled)
	assert.Equal(t, EngineFormat, cfg.Canonicalize.Engine)
	assert.True(t, cfg.TransitiveFlags)
	assert.Equal(t, 4, cfg.WindowDays)
}

func TestLoad_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "dialect: clickhouse\nstate_path: state/h.db\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)
	t.Cleanup(ResetConfig)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "clickhouse", cfg.Dialect)
	assert.Equal(t, filepath.Join(root, "state/h.db"), cfg.StatePath)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	t.Cleanup(ResetConfig)

	path := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry_point: decision_space_hl7\nwindow_days: 7\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.Equal(t, path, GetConfigFileUsed())

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
		errIs     error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "dialect alias", mutate: func(c *Config) { c.Dialect = "BQ" }},
		{name: "unknown dialect", mutate: func(c *Config) { c.Dialect = "oracle" }, errSubstr: "oracle"},
		{name: "unknown entry point", mutate: func(c *Config) { c.EntryPoint = "other" }, errIs: decide.ErrConfig},
		{name: "zero window", mutate: func(c *Config) { c.WindowDays = 0 }, errSubstr: "window_days"},
		{name: "empty row id", mutate: func(c *Config) { c.RowIDColumn = " " }, errSubstr: "row_id_column"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, errSubstr: "log_level"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: "log_format"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "output"},
		{name: "bad engine", mutate: func(c *Config) { c.Canonicalize.Engine = "calcite" }, errSubstr: "canonicalize.engine"},
		{
			name: "fact column without type",
			mutate: func(c *Config) {
				c.Canonicalize.FactColumns = []canonical.Column{{Name: "ward"}}
			},
			errSubstr: "fact_columns[0]",
		},
		{name: "unknown lint rule", mutate: func(c *Config) { c.Lint.Disable = []string{"PL99"} }, errSubstr: "lint.disable"},
		{
			name:      "bad lint severity",
			mutate:    func(c *Config) { c.Lint.Severity = map[string]string{"PL01": "fatal"} },
			errSubstr: "lint.severity.PL01",
		},
		{name: "bad lint fail_on", mutate: func(c *Config) { c.Lint.FailOn = "never" }, errSubstr: "lint.fail_on"},
		{
			name:      "record without state path",
			mutate:    func(c *Config) { c.RecordHistory = true; c.StatePath = "" },
			errSubstr: "state_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			switch {
			case tt.errIs != nil:
				require.ErrorIs(t, err, tt.errIs)
			case tt.errSubstr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateUnknownDialectType(t *testing.T) {
	c := Default()
	c.Dialect = "oracle"
	var target *dialect.UnsupportedDialectError
	require.ErrorAs(t, c.Validate(), &target)
	assert.Contains(t, target.Supported, "postgresql")
}

func TestLoad_Lint(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	writeConfig(t, dir, `
lint:
  disable: [PL05]
  severity:
    PL01: error
  fail_on: warning
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"PL05"}, cfg.Lint.Disable)
	assert.Equal(t, map[string]string{"PL01": "error"}, cfg.Lint.Severity)

	sev, err := cfg.Lint.FailSeverity()
	require.NoError(t, err)
	assert.Equal(t, lint.SeverityWarning, sev)

	analyzer, err := cfg.Lint.Analyzer()
	require.NoError(t, err)
	m, err := model.Parse("from t\ntime_column ts\nflag unused := x = 1\ndecision d { when y = 2 -> 1 }")
	require.NoError(t, err)
	diags := analyzer.Analyze(m)
	require.Len(t, diags, 1)
	assert.Equal(t, "PL01", diags[0].RuleID)
	assert.Equal(t, lint.SeverityError, diags[0].Severity)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "info", "json")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(&buf, "loud", "text")
	require.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	require.Error(t, err)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger, err := NewLogger(&bytes.Buffer{}, "debug", "text")
	require.NoError(t, err)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, loggerKey{}, LoggerKey())
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	c := Default()
	c.Dialect = "bigquery"
	assert.Same(t, c, FromContext(WithConfig(context.Background(), c)))
}

func TestWriteSample_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf, Sample()))
	assert.Contains(t, buf.String(), "dialect: postgresql")

	path := writeConfig(t, t.TempDir(), buf.String())
	kk := koanf.New(".")
	require.NoError(t, kk.Load(file.Provider(path), yaml.Parser()))
	var got Config
	require.NoError(t, kk.Unmarshal("", &got))

	assert.Equal(t, DefaultWindowDays, got.WindowDays)
	assert.Equal(t, DefaultReadTimeout, got.Server.ReadTimeout)
	assert.NotEmpty(t, got.Canonicalize.FactColumns)
	require.NoError(t, got.Validate())
}
