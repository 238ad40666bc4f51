// Package token defines the token types of the policy language.
//
// The lexer produces the same token set for policy declarations and for the
// SQL-flavoured expression text embedded in flags and rule conditions, so the
// structural keywords below are the only words the language reserves.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // TOKEN names are intentionally ALL_CAPS
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	QIDENT // "quoted" or `quoted` identifier
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DCOLON    // ::
	ASSIGN    // :=
	ARROW     // ->
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }

	// Keywords (alphabetical)
	AND
	CATEGORY
	DECISION
	ELSE
	FLAG
	FROM
	MODEL
	NOT
	OR
	REF
	TIME_COLUMN
	WHEN
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	QIDENT: "QIDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	DCOLON:    "::",
	ASSIGN:    ":=",
	ARROW:     "->",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	LBRACE:    "{",
	RBRACE:    "}",

	AND:         "AND",
	CATEGORY:    "CATEGORY",
	DECISION:    "DECISION",
	ELSE:        "ELSE",
	FLAG:        "FLAG",
	FROM:        "FROM",
	MODEL:       "MODEL",
	NOT:         "NOT",
	OR:          "OR",
	REF:         "REF",
	TIME_COLUMN: "TIME_COLUMN",
	WHEN:        "WHEN",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":         AND,
	"category":    CATEGORY,
	"decision":    DECISION,
	"else":        ELSE,
	"flag":        FLAG,
	"from":        FROM,
	"model":       MODEL,
	"not":         NOT,
	"or":          OR,
	"ref":         REF,
	"time_column": TIME_COLUMN,
	"when":        WHEN,
}

// LookupIdent returns the token type for the given identifier.
// Keywords are matched case-insensitively; anything else is IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= WHEN
}

// IsConnective reports whether t is one of the boolean connectives AND, OR, NOT.
func IsConnective(t TokenType) bool {
	return t == AND || t == OR || t == NOT
}

// IsStatement reports whether t starts a declaration inside a model block.
func IsStatement(t TokenType) bool {
	switch t {
	case FROM, TIME_COLUMN, CATEGORY, REF, FLAG, DECISION, MODEL:
		return true
	}
	return false
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string   // exact source text, quotes included
	Pos     Position // start of the token
	End     int      // byte offset just past the token
}

// IsWord reports whether the token is an identifier or a keyword.
func (t Token) IsWord() bool {
	return t.Type == IDENT || IsKeyword(t.Type)
}
