package core

import (
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// Expr is a run of tokens taken verbatim from policy source text.
//
// Flag definitions and rule conditions are kept as token runs rather than
// strings so later stages can substitute identifiers and rewrite connectives
// without touching string literals. The source is kept alongside the tokens
// so the original spacing between them survives rendering.
type Expr struct {
	src    string
	tokens []token.Token
}

// NewExpr creates an expression over tokens lexed from src.
// The token slice is copied.
func NewExpr(src string, tokens []token.Token) Expr {
	toks := make([]token.Token, len(tokens))
	copy(toks, tokens)
	return Expr{src: src, tokens: toks}
}

// Len returns the number of tokens.
func (e Expr) Len() int {
	return len(e.tokens)
}

// IsEmpty returns true if the expression has no tokens.
func (e Expr) IsEmpty() bool {
	return len(e.tokens) == 0
}

// Token returns the i-th token.
func (e Expr) Token(i int) token.Token {
	return e.tokens[i]
}

// Tokens returns a copy of the token run.
func (e Expr) Tokens() []token.Token {
	toks := make([]token.Token, len(e.tokens))
	copy(toks, e.tokens)
	return toks
}

// Pos returns the position of the first token.
func (e Expr) Pos() token.Position {
	if len(e.tokens) == 0 {
		return token.Position{}
	}
	return e.tokens[0].Pos
}

// Gap returns the separator written before token i.
// Whitespace from the source is returned unchanged; a gap that held a
// comment collapses to a single space.
func (e Expr) Gap(i int) string {
	if i <= 0 || i >= len(e.tokens) || e.src == "" {
		return ""
	}
	start, end := e.tokens[i-1].End, e.tokens[i].Pos.Offset
	if start >= end || end > len(e.src) {
		return ""
	}
	gap := e.src[start:end]
	if strings.TrimSpace(gap) != "" {
		return " "
	}
	return gap
}

// String returns the expression text as written, minus comments.
func (e Expr) String() string {
	var b strings.Builder
	for i, tok := range e.tokens {
		b.WriteString(e.Gap(i))
		b.WriteString(tok.Literal)
	}
	return b.String()
}
