package parser

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// ErrParse is the class of every error returned by Parse.
// Use errors.Is(err, ErrParse) to tell parse failures from other errors.
var ErrParse = errors.New("parse error")

// MissingClauseError reports a required declaration that never appeared.
type MissingClauseError struct {
	Clause string
}

func (e *MissingClauseError) Error() string {
	return fmt.Sprintf("parse error: missing %s clause", e.Clause)
}

// Is makes MissingClauseError match ErrParse.
func (e *MissingClauseError) Is(target error) bool { return target == ErrParse }

// DuplicateClauseError reports a declaration that may appear only once.
type DuplicateClauseError struct {
	Clause string
	Pos    token.Position
}

func (e *DuplicateClauseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: duplicate %s clause", e.Pos.Line, e.Pos.Column, e.Clause)
}

// Is makes DuplicateClauseError match ErrParse.
func (e *DuplicateClauseError) Is(target error) bool { return target == ErrParse }

// UnclosedBlockError reports a block whose opening brace is never balanced.
type UnclosedBlockError struct {
	Block string
	Pos   token.Position // position of the opening brace
}

func (e *UnclosedBlockError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: unclosed %s block", e.Pos.Line, e.Pos.Column, e.Block)
}

// Is makes UnclosedBlockError match ErrParse.
func (e *UnclosedBlockError) Is(target error) bool { return target == ErrParse }

// UnmatchedBraceError reports a closing brace with no open block.
type UnmatchedBraceError struct {
	Pos token.Position
}

func (e *UnmatchedBraceError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: unmatched closing brace", e.Pos.Line, e.Pos.Column)
}

// Is makes UnmatchedBraceError match ErrParse.
func (e *UnmatchedBraceError) Is(target error) bool { return target == ErrParse }

// MalformedActionIDError reports an action code that is not an integer literal.
type MalformedActionIDError struct {
	Literal string
	Pos     token.Position
}

func (e *MalformedActionIDError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: malformed action id %q", e.Pos.Line, e.Pos.Column, e.Literal)
}

// Is makes MalformedActionIDError match ErrParse.
func (e *MalformedActionIDError) Is(target error) bool { return target == ErrParse }

// ActionRangeError reports an integer action code that does not fit in int64.
type ActionRangeError struct {
	Literal string
	Pos     token.Position
}

func (e *ActionRangeError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: action id %s is out of the int64 range", e.Pos.Line, e.Pos.Column, e.Literal)
}

// Is makes ActionRangeError match ErrParse.
func (e *ActionRangeError) Is(target error) bool { return target == ErrParse }

// UnterminatedStringError reports a quoted literal that runs to end of input.
type UnterminatedStringError struct {
	Pos token.Position
}

func (e *UnterminatedStringError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: unterminated quoted literal", e.Pos.Line, e.Pos.Column)
}

// Is makes UnterminatedStringError match ErrParse.
func (e *UnterminatedStringError) Is(target error) bool { return target == ErrParse }

// SyntaxError represents any other malformed input.
type SyntaxError struct {
	Pos     token.Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Is makes SyntaxError match ErrParse.
func (e *SyntaxError) Is(target error) bool { return target == ErrParse }

// Common error messages
const (
	ErrUnexpectedToken = "unexpected %s %q, expected %s"
	ErrEmptyExpression = "empty expression for %s"
	ErrUnbalancedParen = "unbalanced parentheses in %s"
)
