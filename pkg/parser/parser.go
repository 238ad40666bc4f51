// Package parser turns policy-language source text into a File AST.
//
// # Usage
//
//	file, err := parser.Parse(src)
//	if err != nil {
//	    // errors.Is(err, parser.ErrParse) holds for every failure
//	}
//
// # Grammar Overview
//
// The parser is a recursive descent parser over a fully lexed token stream:
//
//	file        → model_block | declaration*
//	model_block → MODEL IDENT "{" declaration* "}"
//	declaration → FROM name | TIME_COLUMN name
//	            | CATEGORY IDENT ":=" expr
//	            | REF IDENT ":=" quoted
//	            | FLAG IDENT ":=" expr
//	            | DECISION IDENT "{" (WHEN expr "->" action)* [ELSE "->" action] "}"
//	name        → IDENT ("." IDENT)*
//	action      → ["-"] NUMBER
//
// An expr is captured verbatim as a token run. It ends at the next
// declaration keyword outside parentheses, at a closing brace, or, for rule
// conditions, at the "->" arrow. A `from` keyword ends an expression only
// when it starts a new line, so subqueries may use it freely.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// Parser parses policy source into an AST.
type Parser struct {
	src    string
	tokens []token.Token
	pos    int
	token  token.Token // current token

	seen map[token.TokenType]bool // single-occurrence declarations already parsed
}

// NewParser lexes src and returns a parser positioned on the first token.
func NewParser(src string) (*Parser, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		src:    src,
		tokens: tokens,
		seen:   make(map[token.TokenType]bool),
	}
	p.token = tokens[0]
	return p, nil
}

// Parse parses a complete policy source.
// No partial result is returned on failure.
func Parse(src string) (*File, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseFile()
}

// ParseExpr lexes text as a single expression, e.g. an already expanded
// rule condition.
func ParseExpr(text string) (core.Expr, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return core.Expr{}, err
	}
	return core.NewExpr(text, tokens[:len(tokens)-1]), nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token. EOF is sticky.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.token = p.tokens[p.pos]
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// peek returns the token after the current one.
func (p *Parser) peek() token.Token {
	return p.at(1)
}

// at returns the token k positions ahead of the current one.
func (p *Parser) at(k int) token.Token {
	i := min(max(p.pos+k, 0), len(p.tokens)-1)
	return p.tokens[i]
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes and returns the current token if it matches.
func (p *Parser) expect(t token.TokenType, what string) (token.Token, error) {
	tok := p.token
	if tok.Type != t {
		return tok, p.unexpected(what)
	}
	p.nextToken()
	return tok, nil
}

// unexpected builds a SyntaxError for the current token.
func (p *Parser) unexpected(what string) error {
	return &SyntaxError{
		Pos:     p.token.Pos,
		Message: fmt.Sprintf(ErrUnexpectedToken, describe(p.token.Type), p.token.Literal, what),
	}
}

func describe(t token.TokenType) string {
	switch {
	case t == token.EOF:
		return "end of input"
	case token.IsKeyword(t):
		return "keyword"
	case t == token.IDENT || t == token.QIDENT:
		return "identifier"
	case t == token.NUMBER:
		return "number"
	case t == token.STRING:
		return "string"
	}
	return "token"
}

// ---------- File ----------

func (p *Parser) parseFile() (*File, error) {
	decl := &ModelDecl{Pos: p.token.Pos}

	if p.check(token.MODEL) {
		p.nextToken()
		name, err := p.expect(token.IDENT, "model name")
		if err != nil {
			return nil, err
		}
		decl.Name = name.Literal

		open, err := p.expect(token.LBRACE, `"{"`)
		if err != nil {
			return nil, err
		}
		if decl.Statements, err = p.parseDeclarations(&open); err != nil {
			return nil, err
		}
		p.nextToken() // consume "}"
		p.match(token.SEMICOLON)
		if p.check(token.RBRACE) {
			return nil, &UnmatchedBraceError{Pos: p.token.Pos}
		}
		if !p.check(token.EOF) {
			return nil, p.unexpected("end of input after model block")
		}
	} else {
		var err error
		if decl.Statements, err = p.parseDeclarations(nil); err != nil {
			return nil, err
		}
	}

	for _, required := range []struct {
		t    token.TokenType
		name string
	}{
		{token.FROM, "from"},
		{token.TIME_COLUMN, "time_column"},
		{token.DECISION, "decision"},
	} {
		if !p.seen[required.t] {
			return nil, &MissingClauseError{Clause: required.name}
		}
	}

	return &File{Model: decl}, nil
}

// parseDeclarations parses declarations until the closing brace of the
// enclosing block (left as the current token) or, without a block, EOF.
func (p *Parser) parseDeclarations(open *token.Token) ([]Stmt, error) {
	var stmts []Stmt
	for {
		switch p.token.Type {
		case token.EOF:
			if open != nil {
				return nil, &UnclosedBlockError{Block: "model", Pos: open.Pos}
			}
			return stmts, nil
		case token.RBRACE:
			if open != nil {
				return stmts, nil
			}
			return nil, &UnmatchedBraceError{Pos: p.token.Pos}
		case token.SEMICOLON:
			p.nextToken()
			continue
		}

		stmt, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

func (p *Parser) parseDeclaration() (Stmt, error) {
	switch p.token.Type {
	case token.FROM:
		return p.parseFrom()
	case token.TIME_COLUMN:
		return p.parseTimeColumn()
	case token.CATEGORY:
		return p.parseCategory()
	case token.REF:
		return p.parseRef()
	case token.FLAG:
		return p.parseFlag()
	case token.DECISION:
		return p.parseDecision()
	}
	return nil, p.unexpected("declaration")
}

// once records a single-occurrence declaration.
func (p *Parser) once(t token.TokenType, clause string) error {
	if p.seen[t] {
		return &DuplicateClauseError{Clause: clause, Pos: p.token.Pos}
	}
	p.seen[t] = true
	return nil
}

// ---------- Declarations ----------

func (p *Parser) parseFrom() (*FromStmt, error) {
	if err := p.once(token.FROM, "from"); err != nil {
		return nil, err
	}
	stmt := &FromStmt{Pos: p.token.Pos}
	p.nextToken()

	name, err := p.parseName("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = name
	return stmt, nil
}

func (p *Parser) parseTimeColumn() (*TimeColumnStmt, error) {
	if err := p.once(token.TIME_COLUMN, "time_column"); err != nil {
		return nil, err
	}
	stmt := &TimeColumnStmt{Pos: p.token.Pos}
	p.nextToken()

	name, err := p.parseName("column name")
	if err != nil {
		return nil, err
	}
	stmt.Column = name
	return stmt, nil
}

// parseName parses a possibly qualified identifier.
func (p *Parser) parseName(what string) (string, error) {
	first, err := p.expect(token.IDENT, what)
	if err != nil {
		return "", err
	}
	last := first
	for p.check(token.DOT) && p.peek().Type == token.IDENT {
		p.nextToken()
		last = p.token
		p.nextToken()
	}
	return p.src[first.Pos.Offset:last.End], nil
}

func (p *Parser) parseCategory() (*CategoryStmt, error) {
	stmt := &CategoryStmt{Pos: p.token.Pos}
	p.nextToken()

	name, err := p.expect(token.IDENT, "category name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name.Literal

	if _, err := p.expect(token.ASSIGN, `":="`); err != nil {
		return nil, err
	}
	if stmt.Values, err = p.parseExpr("category " + stmt.Name); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseRef() (*RefStmt, error) {
	stmt := &RefStmt{Pos: p.token.Pos}
	p.nextToken()

	alias, err := p.expect(token.IDENT, "reference alias")
	if err != nil {
		return nil, err
	}
	stmt.Alias = alias.Literal

	if _, err := p.expect(token.ASSIGN, `":="`); err != nil {
		return nil, err
	}

	if !p.check(token.STRING) && !p.check(token.QIDENT) {
		return nil, p.unexpected("quoted table name")
	}
	stmt.Table = Unquote(p.token.Literal)
	if stmt.Table == "" {
		return nil, &SyntaxError{Pos: p.token.Pos, Message: "empty table name for ref " + stmt.Alias}
	}
	p.nextToken()
	return stmt, nil
}

func (p *Parser) parseFlag() (*FlagStmt, error) {
	stmt := &FlagStmt{Pos: p.token.Pos}
	p.nextToken()

	name, err := p.expect(token.IDENT, "flag name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name.Literal

	if _, err := p.expect(token.ASSIGN, `":="`); err != nil {
		return nil, err
	}
	if stmt.Expr, err = p.parseExpr("flag " + stmt.Name); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseExpr captures a declaration's expression text.
func (p *Parser) parseExpr(what string) (core.Expr, error) {
	start := p.token.Pos
	var toks []token.Token
	depth := 0

	for {
		tok := p.token
		if tok.Type == token.EOF || tok.Type == token.RBRACE {
			break
		}
		if depth == 0 && p.endsDeclaration(tok, p.at(-1)) {
			break
		}
		if depth == 0 && tok.Type == token.SEMICOLON {
			break
		}
		switch tok.Type {
		case token.LBRACE:
			if depth > 0 {
				return core.Expr{}, &SyntaxError{Pos: start, Message: fmt.Sprintf(ErrUnbalancedParen, what)}
			}
			return core.Expr{}, p.unexpected("expression")
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
			if depth < 0 {
				return core.Expr{}, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf(ErrUnbalancedParen, what)}
			}
		}
		toks = append(toks, tok)
		p.nextToken()
	}

	if depth != 0 {
		return core.Expr{}, &SyntaxError{Pos: start, Message: fmt.Sprintf(ErrUnbalancedParen, what)}
	}
	if len(toks) == 0 {
		return core.Expr{}, &SyntaxError{Pos: start, Message: fmt.Sprintf(ErrEmptyExpression, what)}
	}
	return core.NewExpr(p.src, toks), nil
}

// endsDeclaration reports whether tok starts the next declaration.
// Keywords such as category or from may also appear as plain words inside
// SQL text, so a declaration is recognized by its full leading shape.
func (p *Parser) endsDeclaration(tok, prev token.Token) bool {
	switch tok.Type {
	case token.FROM, token.TIME_COLUMN:
		return tok.Pos.Line > prev.Pos.Line
	case token.FLAG, token.REF, token.CATEGORY:
		return p.at(1).Type == token.IDENT && p.at(2).Type == token.ASSIGN
	case token.DECISION, token.MODEL:
		return p.at(1).Type == token.IDENT && p.at(2).Type == token.LBRACE
	}
	return false
}

// ---------- Decision ----------

func (p *Parser) parseDecision() (*DecisionStmt, error) {
	if err := p.once(token.DECISION, "decision"); err != nil {
		return nil, err
	}
	stmt := &DecisionStmt{Pos: p.token.Pos}
	p.nextToken()

	name, err := p.expect(token.IDENT, "decision name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name.Literal

	open, err := p.expect(token.LBRACE, `"{"`)
	if err != nil {
		return nil, err
	}

	for {
		switch p.token.Type {
		case token.RBRACE:
			p.nextToken()
			return stmt, nil
		case token.EOF:
			return nil, &UnclosedBlockError{Block: "decision", Pos: open.Pos}
		case token.SEMICOLON:
			p.nextToken()
		case token.WHEN:
			if stmt.Else != nil {
				return nil, &SyntaxError{Pos: p.token.Pos, Message: "else must be the last clause of a decision"}
			}
			clause, err := p.parseWhen(open)
			if err != nil {
				return nil, err
			}
			stmt.Rules = append(stmt.Rules, clause)
		case token.ELSE:
			if stmt.Else != nil {
				return nil, &SyntaxError{Pos: p.token.Pos, Message: "decision has more than one else clause"}
			}
			clause := &ElseClause{Pos: p.token.Pos}
			p.nextToken()
			if _, err := p.expect(token.ARROW, `"->"`); err != nil {
				return nil, err
			}
			if clause.Action, err = p.parseAction(); err != nil {
				return nil, err
			}
			stmt.Else = clause
		default:
			return nil, p.unexpected("when, else or }")
		}
	}
}

func (p *Parser) parseWhen(open token.Token) (*WhenClause, error) {
	clause := &WhenClause{Pos: p.token.Pos}
	p.nextToken()

	var toks []token.Token
	depth := 0
	for {
		tok := p.token
		if tok.Type == token.EOF {
			return nil, &UnclosedBlockError{Block: "decision", Pos: open.Pos}
		}
		if tok.Type == token.RBRACE || tok.Type == token.LBRACE {
			return nil, p.unexpected(`"->" after condition`)
		}
		if depth == 0 && tok.Type == token.ARROW {
			break
		}
		switch tok.Type {
		case token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf(ErrUnbalancedParen, "rule condition")}
			}
		}
		toks = append(toks, tok)
		p.nextToken()
	}

	if len(toks) == 0 {
		return nil, &SyntaxError{Pos: clause.Pos, Message: fmt.Sprintf(ErrEmptyExpression, "rule condition")}
	}
	clause.Condition = core.NewExpr(p.src, toks)
	p.nextToken() // consume "->"

	var err error
	if clause.Action, err = p.parseAction(); err != nil {
		return nil, err
	}
	return clause, nil
}

// parseAction parses an integer action code. Codes are int64; a digit run
// beyond that range is an ActionRangeError, not a malformed literal.
func (p *Parser) parseAction() (int64, error) {
	start := p.token
	lit := ""
	if p.check(token.MINUS) {
		lit = "-"
		p.nextToken()
	}

	tok := p.token
	lit += tok.Literal
	// Glue trailing characters like "2abc" or "2.x" into the reported literal.
	for next := p.peek(); glued(tok, next); next = p.peek() {
		p.nextToken()
		tok = p.token
		lit += tok.Literal
	}

	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ActionRangeError{Literal: lit, Pos: start.Pos}
		}
		return 0, &MalformedActionIDError{Literal: lit, Pos: start.Pos}
	}
	p.nextToken()
	return v, nil
}

func glued(tok, next token.Token) bool {
	if tok.Type == token.EOF || next.Type == token.EOF || next.Pos.Offset != tok.End {
		return false
	}
	return next.Type != token.RBRACE && next.Type != token.SEMICOLON
}
