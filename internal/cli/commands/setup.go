// Package commands implements the leapdecide subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/internal/config"
	"github.com/leapstack-labs/leapdecide/internal/state"
	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/canonical/duckdb"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
)

// CommandContext holds what a command needs from the root command.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// NewCommandContext collects the config and logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	return &CommandContext{
		Cfg:    config.FromContext(ctx),
		Logger: config.GetLogger(ctx),
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}
}

// JSON reports whether the configured output format is json.
func (c *CommandContext) JSON() bool {
	return c.Cfg.OutputFormat == "json"
}

// Options returns the per-call compile options from the config.
func (c *CommandContext) Options() decide.Options {
	return decide.WindowDays(c.Cfg.WindowDays)
}

// Compiler builds a decide.Compiler from the config. The returned cleanup
// releases the canonicalization engine, if one was opened.
func (c *CommandContext) Compiler(ctx context.Context, canonicalize bool) (*decide.Compiler, func(), error) {
	opts := []decide.Option{
		decide.WithLogger(c.Logger),
		decide.WithRowIDColumn(c.Cfg.RowIDColumn),
	}
	if c.Cfg.TransitiveFlags {
		opts = append(opts, decide.WithTransitiveFlags())
	}
	if c.Cfg.GroupFlags {
		opts = append(opts, decide.WithFlagGrouping())
	}

	cleanup := func() {}
	if canonicalize {
		cz, closeFn, err := c.canonicalizer(ctx)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeFn
		opts = append(opts, decide.WithCanonicalizer(cz, c.Cfg.Canonicalize.FactColumns...))
	}
	return decide.NewCompiler(opts...), cleanup, nil
}

func (c *CommandContext) canonicalizer(ctx context.Context) (canonical.Canonicalizer, func(), error) {
	switch c.Cfg.Canonicalize.Engine {
	case config.EngineFormat:
		return canonical.Formatter{}, func() {}, nil
	case config.EngineDuckDB, "":
		eng, err := duckdb.Open(ctx, c.Cfg.Canonicalize.Database, duckdb.WithLogger(c.Logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open canonicalization engine: %w", err)
		}
		return eng, func() { _ = eng.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown canonicalization engine %q", c.Cfg.Canonicalize.Engine)
}

// OpenStore opens the history store at the configured state path.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	store, err := state.Open(c.Cfg.StatePath, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return store, nil
}
