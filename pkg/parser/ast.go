package parser

import (
	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// File is the parse result of one policy source.
type File struct {
	Model *ModelDecl
}

// ModelDecl is a `model <name> { ... }` block. Sources without the wrapper
// parse into a ModelDecl with an empty name.
type ModelDecl struct {
	Name       string
	Pos        token.Position
	Statements []Stmt
}

// Stmt is a declaration inside a model block.
type Stmt interface {
	stmtNode()
	Position() token.Position
}

// FromStmt is `from <table>`.
type FromStmt struct {
	Pos   token.Position
	Table string
}

// TimeColumnStmt is `time_column <column>`.
type TimeColumnStmt struct {
	Pos    token.Position
	Column string
}

// CategoryStmt is `category <name> := <values>`.
// Categories are declarative; nothing downstream consumes them.
type CategoryStmt struct {
	Pos    token.Position
	Name   string
	Values core.Expr
}

// RefStmt is `ref <alias> := "<table>"`.
type RefStmt struct {
	Pos   token.Position
	Alias string
	Table string
}

// FlagStmt is `flag <name> := <expression>`.
type FlagStmt struct {
	Pos  token.Position
	Name string
	Expr core.Expr
}

// DecisionStmt is `decision <name> { when ... -> n ... else -> n }`.
type DecisionStmt struct {
	Pos   token.Position
	Name  string
	Rules []*WhenClause
	Else  *ElseClause
}

// WhenClause is `when <condition> -> <action>`.
type WhenClause struct {
	Pos       token.Position
	Condition core.Expr
	Action    int64
}

// ElseClause is `else -> <action>`.
type ElseClause struct {
	Pos    token.Position
	Action int64
}

func (*FromStmt) stmtNode()       {}
func (*TimeColumnStmt) stmtNode() {}
func (*CategoryStmt) stmtNode()   {}
func (*RefStmt) stmtNode()        {}
func (*FlagStmt) stmtNode()       {}
func (*DecisionStmt) stmtNode()   {}

// Position implements Stmt.
func (s *FromStmt) Position() token.Position { return s.Pos }

// Position implements Stmt.
func (s *TimeColumnStmt) Position() token.Position { return s.Pos }

// Position implements Stmt.
func (s *CategoryStmt) Position() token.Position { return s.Pos }

// Position implements Stmt.
func (s *RefStmt) Position() token.Position { return s.Pos }

// Position implements Stmt.
func (s *FlagStmt) Position() token.Position { return s.Pos }

// Position implements Stmt.
func (s *DecisionStmt) Position() token.Position { return s.Pos }
