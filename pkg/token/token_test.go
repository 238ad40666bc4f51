package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  TokenType
	}{
		{"flag", FLAG},
		{"FLAG", FLAG},
		{"time_column", TIME_COLUMN},
		{"and", AND},
		{"Or", OR},
		{"not", NOT},
		{"is_admission", IDENT},
		{"select", IDENT},
		{"enum", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.ident))
		})
	}
}

func TestClassification(t *testing.T) {
	assert.True(t, IsKeyword(WHEN))
	assert.False(t, IsKeyword(IDENT))
	assert.True(t, IsConnective(AND))
	assert.False(t, IsConnective(WHEN))
	assert.True(t, IsStatement(FLAG))
	assert.False(t, IsStatement(WHEN))

	assert.True(t, Token{Type: IDENT}.IsWord())
	assert.True(t, Token{Type: FROM}.IsWord())
	assert.False(t, Token{Type: STRING}.IsWord())
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "->", ARROW.String())
	assert.Equal(t, "AND", AND.String())
	assert.Equal(t, "TOKEN(9999)", TokenType(9999).String())
}
