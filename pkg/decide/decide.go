// Package decide compiles policy source into a dialect-specific decision
// query. It wires the pipeline stages together:
//
//	source text → parser → model → flag expansion → decision → SQL
//	                                                       ↘ canonicalizer (optional)
//
// Configuration is checked before any text is parsed, so a bad entry point,
// dialect or option never produces SQL. Every failure is terminal for the
// call; no partial result is returned.
package decide

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/compile"
	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/expand"
	"github.com/leapstack-labs/leapdecide/pkg/model"
	"github.com/leapstack-labs/leapdecide/pkg/render"

	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/all" // register dialects
)

// EntryPointDecisionSpace selects the row-level decision projection with a
// time window. It is the only entry point.
const EntryPointDecisionSpace = "decision_space_hl7"

// EntryPoints returns the supported entry points.
func EntryPoints() []string {
	return []string{EntryPointDecisionSpace}
}

// Result is a successful compilation.
type Result struct {
	SQL           string
	Core          string // query without the window predicate
	Window        string
	Dialect       string
	WindowDays    int
	Canonicalized bool
	Model         *core.DecisionModel
	Decision      *compile.Decision
}

// Compiler runs the pipeline. It holds no per-call state and is safe for
// concurrent use when its Canonicalizer is.
type Compiler struct {
	logger      *slog.Logger
	canon       canonical.Canonicalizer
	factColumns []canonical.Column
	expandOpts  []expand.Option
	rowID       string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCanonicalizer enables the canonicalization stage. factColumns extend
// the fact table derived from the model.
func WithCanonicalizer(cz canonical.Canonicalizer, factColumns ...canonical.Column) Option {
	return func(c *Compiler) {
		c.canon = cz
		c.factColumns = factColumns
	}
}

// WithTransitiveFlags resolves flags referenced inside flag definitions.
func WithTransitiveFlags() Option {
	return func(c *Compiler) {
		c.expandOpts = append(c.expandOpts, expand.WithTransitive())
	}
}

// WithFlagGrouping parenthesizes multi-token flag substitutions.
func WithFlagGrouping() Option {
	return func(c *Compiler) {
		c.expandOpts = append(c.expandOpts, expand.WithGrouping())
	}
}

// WithRowIDColumn sets the row identifier column.
func WithRowIDColumn(col string) Option {
	return func(c *Compiler) {
		if col != "" {
			c.rowID = col
		}
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		logger: slog.New(slog.DiscardHandler),
		rowID:  render.DefaultRowIDColumn,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileDecisionQuery compiles source with a default Compiler.
func CompileDecisionQuery(source, entryPoint, dialectTag string, options Options) (string, error) {
	return NewCompiler().Compile(context.Background(), source, entryPoint, dialectTag, options)
}

// Compile returns the SQL text for source.
func (c *Compiler) Compile(ctx context.Context, source, entryPoint, dialectTag string, options Options) (string, error) {
	res, err := c.CompileResult(ctx, source, entryPoint, dialectTag, options)
	if err != nil {
		return "", err
	}
	return res.SQL, nil
}

// CompileResult is Compile returning every intermediate product.
func (c *Compiler) CompileResult(ctx context.Context, source, entryPoint, dialectTag string, options Options) (*Result, error) {
	if entryPoint != EntryPointDecisionSpace {
		return nil, &UnsupportedEntryPointError{EntryPoint: entryPoint, Supported: EntryPoints()}
	}
	d, err := dialect.Lookup(dialectTag)
	if err != nil {
		return nil, err
	}
	days, err := ParseWindowDays(options)
	if err != nil {
		return nil, err
	}

	m, err := model.Parse(source)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("parsed model",
		slog.String("model", m.Name()),
		slog.Int("flags", len(m.Flags())),
		slog.Int("references", len(m.References())),
		slog.Int("rules", len(m.Decision().Rules())))

	x, err := expand.New(m, c.expandOpts...)
	if err != nil {
		return nil, err
	}
	dec, err := compile.Compile(m.Decision(), x)
	if err != nil {
		return nil, err
	}

	q, err := render.Render(m.Source(), dec, d, render.Options{WindowDays: days, RowIDColumn: c.rowID})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dialect:    d.Name(),
		WindowDays: days,
		Model:      m,
		Decision:   dec,
	}

	if c.canon != nil {
		schema := canonical.SchemaFor(m, c.rowID, c.factColumns)
		text, err := c.canon.Canonicalize(ctx, q.Core(), schema, d)
		if err != nil {
			return nil, fmt.Errorf("canonicalize decision query: %w", err)
		}
		q = q.WithCore(text)
		res.Canonicalized = true
	}

	res.SQL = q.SQL()
	res.Core = q.Core()
	res.Window = q.Window()

	c.logger.Debug("compiled decision query",
		slog.String("dialect", d.Name()),
		slog.Int("window_days", days),
		slog.Bool("canonicalized", res.Canonicalized))
	return res, nil
}
