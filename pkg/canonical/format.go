package canonical

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

const indentSize = 2

// sqlKeywords are upper-cased by Format.
var sqlKeywords = map[string]struct{}{
	"all": {}, "and": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "cast": {}, "desc": {}, "distinct": {}, "else": {}, "end": {},
	"exists": {}, "false": {}, "from": {}, "group": {}, "having": {},
	"ilike": {}, "in": {}, "interval": {}, "is": {}, "like": {}, "limit": {},
	"not": {}, "null": {}, "or": {}, "order": {}, "select": {}, "then": {},
	"true": {}, "when": {}, "where": {},
}

func isSQLKeyword(tok token.Token) bool {
	if tok.Type != token.IDENT && !token.IsKeyword(tok.Type) {
		return false
	}
	_, ok := sqlKeywords[strings.ToLower(tok.Literal)]
	return ok
}

// Format re-lays out a single SELECT statement for d: keywords are
// upper-cased, quoted identifiers are re-quoted with the dialect's quote
// characters (and only when needed), and the select list, CASE arms and
// clauses start on their own lines. Trailing semicolons are dropped.
func Format(sql string, d dialect.Dialect) (string, error) {
	tokens, err := parser.Tokenize(sql)
	if err != nil {
		return "", err
	}
	tokens = tokens[:len(tokens)-1]
	for len(tokens) > 0 && tokens[len(tokens)-1].Type == token.SEMICOLON {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return "", fmt.Errorf("empty statement")
	}

	f := &formatter{dialect: d, atLineStart: true}
	for i, tok := range tokens {
		var prev token.Token
		if i > 0 {
			prev = tokens[i-1]
		}
		if err := f.token(prev, tok); err != nil {
			return "", err
		}
	}
	if f.parens != 0 {
		return "", fmt.Errorf("unbalanced parentheses")
	}
	return strings.TrimRight(f.out.String(), " \n"), nil
}

type formatter struct {
	dialect     dialect.Dialect
	out         strings.Builder
	depth       int // indentation depth
	parens      int // parenthesis nesting
	cases       int // open CASE expressions at parens == 0
	atLineStart bool
}

func (f *formatter) newline() {
	if f.atLineStart {
		return
	}
	f.out.WriteByte('\n')
	f.atLineStart = true
}

func (f *formatter) write(prev token.Token, s string, spaced bool) {
	if f.atLineStart {
		f.out.WriteString(strings.Repeat(" ", f.depth*indentSize))
	} else if spaced && prev.Type != token.EOF {
		f.out.WriteByte(' ')
	}
	f.out.WriteString(s)
	f.atLineStart = false
}

func (f *formatter) token(prev, tok token.Token) error {
	word := strings.ToLower(tok.Literal)
	keyword := isSQLKeyword(tok)
	top := f.parens == 0

	switch {
	case keyword && top && word == "select":
		f.newline()
		f.write(prev, "SELECT", true)
		f.newline()
		f.depth = 1
		return nil
	case keyword && top && f.cases == 0 && (word == "from" || word == "where"):
		f.depth = 0
		f.newline()
	case keyword && top && word == "case":
		f.write(prev, "CASE", spaced(prev, tok))
		f.cases++
		f.depth++
		f.newline()
		return nil
	case keyword && top && f.cases > 0 && (word == "when" || word == "else"):
		f.newline()
	case keyword && top && f.cases > 0 && word == "end":
		f.cases--
		f.depth--
		f.newline()
	case tok.Type == token.COMMA && top && f.cases == 0:
		f.write(prev, ",", false)
		f.newline()
		return nil
	case tok.Type == token.LPAREN:
		f.parens++
	case tok.Type == token.RPAREN:
		f.parens--
		if f.parens < 0 {
			return fmt.Errorf("unbalanced parentheses")
		}
	case tok.Type == token.ILLEGAL:
		return fmt.Errorf("unexpected character %q at %s", tok.Literal, tok.Pos)
	}

	f.write(prev, f.text(tok, keyword), spaced(prev, tok))
	return nil
}

// text returns the dialect spelling of tok.
func (f *formatter) text(tok token.Token, keyword bool) string {
	switch {
	case keyword:
		return strings.ToUpper(tok.Literal)
	case tok.Type == token.QIDENT:
		return dialect.QuoteIdentifierIfNeeded(f.dialect, parser.Unquote(tok.Literal))
	}
	return tok.Literal
}

// spaced reports whether a space separates prev and tok.
func spaced(prev, tok token.Token) bool {
	switch tok.Type {
	case token.COMMA, token.RPAREN, token.RBRACKET, token.DOT, token.DCOLON:
		return false
	case token.LPAREN:
		// Function calls hug their argument list; keywords like IN do not.
		return !(prev.Type == token.IDENT || prev.Type == token.QIDENT) || isSQLKeyword(prev)
	}
	switch prev.Type {
	case token.LPAREN, token.LBRACKET, token.DOT, token.DCOLON:
		return false
	}
	return true
}

// ANSIQuotes rewrites backtick-quoted identifiers as double-quoted ones so
// the text parses under a standard SQL grammar. Everything else is copied
// unchanged.
func ANSIQuotes(sql string) (string, error) {
	tokens, err := parser.Tokenize(sql)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		if tok.Type != token.QIDENT || tok.Literal[0] != '`' {
			continue
		}
		b.WriteString(sql[last:tok.Pos.Offset])
		b.WriteString(`"` + strings.ReplaceAll(parser.Unquote(tok.Literal), `"`, `""`) + `"`)
		last = tok.End
	}
	b.WriteString(sql[last:])
	return b.String(), nil
}
