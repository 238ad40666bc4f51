// Package duckdb canonicalizes decision queries with an embedded DuckDB.
//
// The query core is validated by binding it against the declared schema
// (EXPLAIN inside a rolled-back transaction) and round-tripped through
// DuckDB's own parser with json_serialize_sql and json_deserialize_sql.
// The round trip only proves the text parses: DuckDB re-emits its own
// spelling (x = ANY(subquery), redundant parentheses), so the returned text
// is the validated input laid out for the target dialect by canonical.Format.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the engine name used in configuration.
const Name = "duckdb"

// Engine implements canonical.Canonicalizer on a DuckDB connection.
// Calls are serialized: schema tables are created per call.
type Engine struct {
	mu     sync.Mutex
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open opens a DuckDB database; ":memory:" or "" selects an in-memory one.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	e := New(db, opts...)
	e.owned = true
	return e, nil
}

// Close closes the connection if the engine opened it.
func (e *Engine) Close() error {
	if e.owned && e.db != nil {
		return e.db.Close()
	}
	return nil
}

// serialized is the subset of json_serialize_sql output we inspect.
type serialized struct {
	Error        bool              `json:"error"`
	ErrorType    string            `json:"error_type"`
	ErrorMessage string            `json:"error_message"`
	Statements   []json.RawMessage `json:"statements"`
}

// Canonicalize implements canonical.Canonicalizer.
func (e *Engine) Canonicalize(ctx context.Context, query string, schema canonical.Schema, d dialect.Dialect) (string, error) {
	fail := func(stage string, err error) error {
		return &canonical.Error{Dialect: d.Name(), Stage: stage, Err: err}
	}

	portable, err := canonical.ANSIQuotes(query)
	if err != nil {
		return "", fail(canonical.StageSerialize, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fail(canonical.StageSchema, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range DDL(schema) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return "", fail(canonical.StageSchema, err)
		}
	}

	rows, err := tx.QueryContext(ctx, "EXPLAIN "+portable)
	if err != nil {
		return "", fail(canonical.StageValidate, err)
	}
	_ = rows.Close()

	var raw string
	if err := tx.QueryRowContext(ctx, "SELECT CAST(json_serialize_sql(CAST(? AS VARCHAR)) AS VARCHAR)", portable).Scan(&raw); err != nil {
		return "", fail(canonical.StageSerialize, err)
	}
	var parsed serialized
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", fail(canonical.StageSerialize, fmt.Errorf("decode serialized query: %w", err))
	}
	if parsed.Error {
		return "", fail(canonical.StageSerialize, fmt.Errorf("%s error: %s", parsed.ErrorType, parsed.ErrorMessage))
	}
	if len(parsed.Statements) != 1 {
		return "", fail(canonical.StageSerialize, fmt.Errorf("expected one statement, got %d", len(parsed.Statements)))
	}

	var text string
	if err := tx.QueryRowContext(ctx, "SELECT json_deserialize_sql(CAST(? AS JSON))", raw).Scan(&text); err != nil {
		return "", fail(canonical.StageDeserialize, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fail(canonical.StageDeserialize, errors.New("engine returned empty text"))
	}

	out, err := canonical.Format(query, d)
	if err != nil {
		return "", fail(canonical.StageFormat, err)
	}

	e.logger.Debug("canonicalized query",
		slog.String("dialect", d.Name()),
		slog.Int("reference_tables", len(schema.References)))
	return out, nil
}

// DDL returns the statements that create schema.
func DDL(schema canonical.Schema) []string {
	var stmts []string
	seen := make(map[string]bool)
	tables := append([]canonical.Table{schema.Fact}, schema.References...)
	for _, t := range tables {
		if i := strings.LastIndex(t.Name, "."); i > 0 {
			ns := t.Name[:i]
			if !seen[ns] {
				seen[ns] = true
				stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+quoteName(ns))
			}
		}
		stmts = append(stmts, createTable(t))
	}
	return stmts
}

func createTable(t canonical.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, quote(c.Name)+" "+c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteName(t.Name), strings.Join(cols, ", "))
}

func quoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
