// Package canonical defines the optional canonicalization stage.
//
// A Canonicalizer parses the core of a rendered decision query against a
// declared schema, validates it, and re-emits it in a dialect-idiomatic
// layout. The window predicate never passes through a Canonicalizer; callers
// append it afterwards.
package canonical

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

// ErrCanonicalize is the class of every canonicalization failure.
var ErrCanonicalize = errors.New("canonicalization failed")

// Canonicalizer validates and re-emits SQL text.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, sql string, schema Schema, d dialect.Dialect) (string, error)
}

// Stages reported in Error.
const (
	StageSchema      = "schema"
	StageValidate    = "validate"
	StageSerialize   = "serialize"
	StageDeserialize = "deserialize"
	StageFormat      = "format"
)

// Error wraps an engine failure with the stage that produced it.
type Error struct {
	Dialect string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("canonicalize %s (%s): %v", e.Stage, e.Dialect, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes Error match ErrCanonicalize.
func (e *Error) Is(target error) bool { return target == ErrCanonicalize }

// Formatter is a Canonicalizer that only re-lays out tokens. It needs no
// engine and performs no schema validation.
type Formatter struct{}

// Canonicalize implements Canonicalizer.
func (Formatter) Canonicalize(_ context.Context, sql string, _ Schema, d dialect.Dialect) (string, error) {
	out, err := Format(sql, d)
	if err != nil {
		return "", &Error{Dialect: d.Name(), Stage: StageFormat, Err: err}
	}
	return out, nil
}
