// Package state records compiled decision queries in a SQLite history store.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned when a compilation does not exist.
var ErrNotFound = errors.New("compilation not found")

// Compilation is one recorded compile of a decision model.
type Compilation struct {
	ID            string    `json:"id"`
	ModelName     string    `json:"model_name"`
	EntryPoint    string    `json:"entry_point"`
	Dialect       string    `json:"dialect"`
	WindowDays    int       `json:"window_days"`
	SourceHash    string    `json:"source_hash"`
	SQL           string    `json:"sql"`
	Canonicalized bool      `json:"canonicalized"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListOptions filters List results.
type ListOptions struct {
	ModelName string
	Dialect   string
	Limit     int
}

// Store persists compilations.
type Store interface {
	Record(ctx context.Context, c *Compilation) error
	Get(ctx context.Context, id string) (*Compilation, error)
	List(ctx context.Context, opts ListOptions) ([]*Compilation, error)
	Close() error
}

// HashSource returns the hex SHA-256 of a policy source.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
