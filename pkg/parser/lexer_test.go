package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/pkg/token"
)

func tokenTypes(t *testing.T, input string) []token.TokenType {
	t.Helper()
	tokens, err := Tokenize(input)
	require.NoError(t, err)
	types := make([]token.TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.TokenType
	}{
		{
			name:  "flag declaration",
			input: "flag is_adt := message_type = 'ADT'",
			want:  []token.TokenType{token.FLAG, token.IDENT, token.ASSIGN, token.IDENT, token.EQ, token.STRING, token.EOF},
		},
		{
			name:  "rule",
			input: "when a and not b -> -3",
			want:  []token.TokenType{token.WHEN, token.IDENT, token.AND, token.NOT, token.IDENT, token.ARROW, token.MINUS, token.NUMBER, token.EOF},
		},
		{
			name:  "comparison operators",
			input: "< <= > >= <> != = ||",
			want:  []token.TokenType{token.LT, token.LE, token.GT, token.GE, token.NE, token.NE, token.EQ, token.DPIPE, token.EOF},
		},
		{
			name:  "punctuation",
			input: "( ) [ ] { } , ; . :: :",
			want: []token.TokenType{
				token.LPAREN, token.RPAREN, token.LBRACKET, token.RBRACKET, token.LBRACE, token.RBRACE,
				token.COMMA, token.SEMICOLON, token.DOT, token.DCOLON, token.COLON, token.EOF,
			},
		},
		{
			name:  "quoted identifiers",
			input: "\"ref_loinc\" `proj.ds.tbl`",
			want:  []token.TokenType{token.QIDENT, token.QIDENT, token.EOF},
		},
		{
			name:  "keywords are case-insensitive",
			input: "MODEL Decision WHEN Else",
			want:  []token.TokenType{token.MODEL, token.DECISION, token.WHEN, token.ELSE, token.EOF},
		},
		{
			name:  "comments skipped",
			input: "from t // the fact table\ntime_column ts",
			want:  []token.TokenType{token.FROM, token.IDENT, token.TIME_COLUMN, token.IDENT, token.EOF},
		},
		{
			name:  "sql comment markers are operators",
			input: "a -- b /* c */",
			want: []token.TokenType{
				token.IDENT, token.MINUS, token.MINUS, token.IDENT,
				token.SLASH, token.STAR, token.IDENT, token.STAR, token.SLASH, token.EOF,
			},
		},
		{
			name:  "numbers",
			input: "42 3.14 1e10 2.5E-3",
			want:  []token.TokenType{token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.EOF},
		},
		{
			name:  "unknown characters are illegal",
			input: "a @> b",
			want:  []token.TokenType{token.IDENT, token.ILLEGAL, token.GT, token.IDENT, token.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenTypes(t, tt.input))
		})
	}
}

func TestLexer_StringLiteralProtectsContent(t *testing.T) {
	tokens, err := Tokenize("x = 'a // b { c } it''s'")
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, token.STRING, tokens[2].Type)
	assert.Equal(t, "'a // b { c } it''s'", tokens[2].Literal)
	assert.Equal(t, "a // b { c } it's", Unquote(tokens[2].Literal))
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := Tokenize("from t\n  time_column ts")
	require.NoError(t, err)

	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, tokens[0].Pos)
	assert.Equal(t, 4, tokens[0].End)
	assert.Equal(t, token.Position{Line: 2, Column: 3, Offset: 9}, tokens[2].Pos)
	assert.Equal(t, "2:3", tokens[2].Pos.String())
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, err := Tokenize("flag f := code = 'ADT")
	require.Error(t, err)

	var unterminated *UnterminatedStringError
	require.True(t, errors.As(err, &unterminated))
	assert.Equal(t, 1, unterminated.Pos.Line)
	assert.Equal(t, 18, unterminated.Pos.Column)
	assert.ErrorIs(t, err, ErrParse)
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"ref_table"`, "ref_table"},
		{"`a.b`", "a.b"},
		{`'it''s'`, "it's"},
		{`"say ""hi"""`, `say "hi"`},
		{"plain", "plain"},
		{`"`, `"`},
		{`'mismatch"`, `'mismatch"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Unquote(tt.in))
		})
	}
}
