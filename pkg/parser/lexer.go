package parser

import (
	"unicode"

	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// Lexer tokenizes policy source text.
//
// String literals and quoted identifiers are scanned as single tokens, so
// comment markers and braces inside them never affect the structure.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	err error // first lexical error, if any
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered.
func (l *Lexer) Err() error {
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, Pos: pos, End: len(l.input)}
	}

	switch l.ch {
	case '-':
		if l.peekChar() == '>' {
			return l.symbol(token.ARROW, 2, pos)
		}
		return l.symbol(token.MINUS, 1, pos)
	case '+':
		return l.symbol(token.PLUS, 1, pos)
	case '*':
		return l.symbol(token.STAR, 1, pos)
	case '/':
		return l.symbol(token.SLASH, 1, pos)
	case '%':
		return l.symbol(token.PERCENT, 1, pos)
	case '=':
		return l.symbol(token.EQ, 1, pos)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.symbol(token.LE, 2, pos)
		case '>':
			return l.symbol(token.NE, 2, pos)
		}
		return l.symbol(token.LT, 1, pos)
	case '>':
		if l.peekChar() == '=' {
			return l.symbol(token.GE, 2, pos)
		}
		return l.symbol(token.GT, 1, pos)
	case '!':
		if l.peekChar() == '=' {
			return l.symbol(token.NE, 2, pos)
		}
		return l.symbol(token.ILLEGAL, 1, pos)
	case '|':
		if l.peekChar() == '|' {
			return l.symbol(token.DPIPE, 2, pos)
		}
		return l.symbol(token.ILLEGAL, 1, pos)
	case ':':
		switch l.peekChar() {
		case '=':
			return l.symbol(token.ASSIGN, 2, pos)
		case ':':
			return l.symbol(token.DCOLON, 2, pos)
		}
		return l.symbol(token.COLON, 1, pos)
	case '.':
		return l.symbol(token.DOT, 1, pos)
	case ',':
		return l.symbol(token.COMMA, 1, pos)
	case ';':
		return l.symbol(token.SEMICOLON, 1, pos)
	case '(':
		return l.symbol(token.LPAREN, 1, pos)
	case ')':
		return l.symbol(token.RPAREN, 1, pos)
	case '[':
		return l.symbol(token.LBRACKET, 1, pos)
	case ']':
		return l.symbol(token.RBRACKET, 1, pos)
	case '{':
		return l.symbol(token.LBRACE, 1, pos)
	case '}':
		return l.symbol(token.RBRACE, 1, pos)
	case '\'':
		return l.readQuoted(token.STRING, '\'', pos)
	case '"':
		return l.readQuoted(token.QIDENT, '"', pos)
	case '`':
		return l.readQuoted(token.QIDENT, '`', pos)
	}

	switch {
	case isLetter(l.ch) || l.ch == '_':
		lit := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos, End: l.pos}
	case isDigit(l.ch):
		lit := l.readNumber()
		return token.Token{Type: token.NUMBER, Literal: lit, Pos: pos, End: l.pos}
	}
	return l.symbol(token.ILLEGAL, 1, pos)
}

// symbol consumes n characters as a single token.
func (l *Lexer) symbol(t token.TokenType, n int, pos token.Position) token.Token {
	start := l.pos
	for i := 0; i < n; i++ {
		l.readChar()
	}
	return token.Token{Type: t, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		break
	}
}

// readQuoted reads a quoted literal; a doubled quote is an escaped quote.
// The literal keeps its delimiters.
func (l *Lexer) readQuoted(t token.TokenType, quote byte, pos token.Position) token.Token {
	start := l.pos
	l.readChar() // skip opening quote

	for {
		if l.pos >= len(l.input) {
			if l.err == nil {
				l.err = &UnterminatedStringError{Pos: pos}
			}
			return token.Token{Type: token.ILLEGAL, Literal: l.input[start:], Pos: pos, End: len(l.input)}
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		l.readChar()
	}

	return token.Token{Type: t, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return ch < 0x80 && unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
// It fails on the first lexical error.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, nil
}

// Unquote strips the delimiters of a STRING or QIDENT literal and collapses
// doubled quotes. Other literals are returned unchanged.
func Unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	q := lit[0]
	if (q != '\'' && q != '"' && q != '`') || lit[len(lit)-1] != q {
		return lit
	}
	body := lit[1 : len(lit)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		out = append(out, body[i])
		if body[i] == q && i+1 < len(body) && body[i+1] == q {
			i++
		}
	}
	return string(out)
}
