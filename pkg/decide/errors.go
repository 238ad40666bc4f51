package decide

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/canonical"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/expand"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
)

// ErrConfig is the class of configuration errors: unknown entry point,
// unsupported dialect, malformed options. No SQL is produced for them.
var ErrConfig = errors.New("configuration error")

// UnsupportedEntryPointError is returned for an unknown entry point.
type UnsupportedEntryPointError struct {
	EntryPoint string
	Supported  []string
}

func (e *UnsupportedEntryPointError) Error() string {
	return fmt.Sprintf("unsupported entry point %q (supported: %s)", e.EntryPoint, strings.Join(e.Supported, ", "))
}

// Is makes UnsupportedEntryPointError match ErrConfig.
func (e *UnsupportedEntryPointError) Is(target error) bool { return target == ErrConfig }

// InvalidOptionError is returned for an option value that cannot be used.
type InvalidOptionError struct {
	Key   string
	Value any
	Err   error
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %s=%v: %v", e.Key, e.Value, e.Err)
}

func (e *InvalidOptionError) Unwrap() error { return e.Err }

// Is makes InvalidOptionError match ErrConfig.
func (e *InvalidOptionError) Is(target error) bool { return target == ErrConfig }

// IsConfigError reports whether err is a configuration error, including
// an unsupported dialect.
func IsConfigError(err error) bool {
	var unsupported *dialect.UnsupportedDialectError
	return errors.Is(err, ErrConfig) || errors.As(err, &unsupported)
}

// Kind classifies a compile failure for callers that map errors to exit
// codes or HTTP statuses.
type Kind string

// Failure kinds.
const (
	KindParse        Kind = "parse"
	KindConfig       Kind = "config"
	KindFlagCycle    Kind = "flag_cycle"
	KindCanonicalize Kind = "canonicalize"
	KindInternal     Kind = "internal"
)

// KindOf returns the kind of err. A nil error has no kind.
func KindOf(err error) Kind {
	var cycle *expand.FlagCycleError
	switch {
	case err == nil:
		return ""
	case IsConfigError(err):
		return KindConfig
	case errors.Is(err, parser.ErrParse):
		return KindParse
	case errors.As(err, &cycle):
		return KindFlagCycle
	case errors.Is(err, canonical.ErrCanonicalize):
		return KindCanonicalize
	}
	return KindInternal
}
