package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the store at path and applies pending migrations.
// Use ":memory:" for an in-memory database.
func Open(path string, logger *slog.Logger) (*SQLiteStore, error) {
	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// Record stores c, assigning an ID and timestamp when unset.
func (s *SQLiteStore) Record(ctx context.Context, c *Compilation) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if c.ID == "" {
		c.ID = generateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	s.logger.Debug("recording compilation",
		slog.String("id", c.ID),
		slog.String("model", c.ModelName),
		slog.String("dialect", c.Dialect))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compilations
			(id, model_name, entry_point, dialect, window_days, source_hash, sql, canonicalized, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ModelName, c.EntryPoint, c.Dialect, c.WindowDays, c.SourceHash, c.SQL, c.Canonicalized, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record compilation: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, model_name, entry_point, dialect, window_days, source_hash, sql, canonicalized, created_at FROM compilations`

// Get retrieves a compilation by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Compilation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	c, err := scanCompilation(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compilation: %w", err)
	}
	return c, nil
}

// List returns compilations newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*Compilation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		where []string
		args  []any
	)
	if opts.ModelName != "" {
		where = append(where, "model_name = ?")
		args = append(args, opts.ModelName)
	}
	if opts.Dialect != "" {
		where = append(where, "dialect = ?")
		args = append(args, opts.Dialect)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list compilations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Compilation
	for rows.Next() {
		c, err := scanCompilation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compilation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompilation(row scanner) (*Compilation, error) {
	c := &Compilation{}
	err := row.Scan(&c.ID, &c.ModelName, &c.EntryPoint, &c.Dialect, &c.WindowDays,
		&c.SourceHash, &c.SQL, &c.Canonicalized, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
