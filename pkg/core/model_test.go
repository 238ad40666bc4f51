package core

import (
	"testing"

	"github.com/leapstack-labs/leapdecide/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(name string, offset int) token.Token {
	return token.Token{
		Type:    token.IDENT,
		Literal: name,
		Pos:     token.Position{Line: 1, Column: offset + 1, Offset: offset},
		End:     offset + len(name),
	}
}

func TestNewDecisionModel_OverwriteKeepsOrder(t *testing.T) {
	refs := []Reference{
		{Alias: "a", Table: "ref_a"},
		{Alias: "b", Table: "ref_b"},
		{Alias: "a", Table: "ref_a2"},
	}
	flags := []Flag{
		{Name: "x", Expr: NewExpr("x1", []token.Token{ident("x1", 0)})},
		{Name: "y", Expr: NewExpr("y1", []token.Token{ident("y1", 0)})},
		{Name: "x", Expr: NewExpr("x2", []token.Token{ident("x2", 0)})},
	}

	m := NewDecisionModel("m", SourceSpec{FromTable: "t", TimeColumn: "ts"}, refs, flags, NewDecisionTable("action_id", nil, nil))

	gotRefs := m.References()
	require.Len(t, gotRefs, 2)
	assert.Equal(t, Reference{Alias: "a", Table: "ref_a2"}, gotRefs[0])
	assert.Equal(t, "b", gotRefs[1].Alias)

	gotFlags := m.Flags()
	require.Len(t, gotFlags, 2)
	assert.Equal(t, "x", gotFlags[0].Name)
	assert.Equal(t, "x2", gotFlags[0].Expr.String())
	assert.Equal(t, "y", gotFlags[1].Name)

	f, ok := m.Flag("x")
	require.True(t, ok)
	assert.Equal(t, "x2", f.Expr.String())
	_, ok = m.Flag("missing")
	assert.False(t, ok)
}

func TestDecisionModel_AccessorsReturnCopies(t *testing.T) {
	refs := []Reference{{Alias: "a", Table: "ref_a"}}
	m := NewDecisionModel("m", SourceSpec{}, refs, nil, NewDecisionTable("action_id", []Rule{{Action: 1}}, nil))

	refs[0].Table = "mutated"
	assert.Equal(t, "ref_a", m.References()[0].Table)

	got := m.References()
	got[0].Table = "mutated"
	assert.Equal(t, "ref_a", m.References()[0].Table)

	rules := m.Decision().Rules()
	rules[0].Action = 99
	assert.Equal(t, int64(1), m.Decision().Rules()[0].Action)
}

func TestNewDecisionTable_Default(t *testing.T) {
	dt := NewDecisionTable("action_id", nil, nil)
	assert.Equal(t, DefaultAction, dt.Default())
	assert.False(t, dt.HasElse())

	one := int64(1)
	dt = NewDecisionTable("action_id", nil, &one)
	assert.Equal(t, int64(1), dt.Default())
	assert.True(t, dt.HasElse())
}

func TestExpr_StringPreservesSpacing(t *testing.T) {
	src := "a =  'x'   // note\n  and b"
	toks := []token.Token{
		{Type: token.IDENT, Literal: "a", Pos: token.Position{Offset: 0}, End: 1},
		{Type: token.EQ, Literal: "=", Pos: token.Position{Offset: 2}, End: 3},
		{Type: token.STRING, Literal: "'x'", Pos: token.Position{Offset: 5}, End: 8},
		{Type: token.AND, Literal: "and", Pos: token.Position{Offset: 21}, End: 24},
		{Type: token.IDENT, Literal: "b", Pos: token.Position{Offset: 25}, End: 26},
	}
	e := NewExpr(src, toks)

	assert.Equal(t, 5, e.Len())
	assert.Equal(t, " ", e.Gap(3), "gap holding a comment collapses to a space")
	assert.Equal(t, "a =  'x' and b", e.String())
	assert.Equal(t, "", e.Gap(0))
	assert.True(t, Expr{}.IsEmpty())
	assert.Equal(t, "", Expr{}.String())
}

func TestDecisionModel_WithCategories(t *testing.T) {
	m := NewDecisionModel("m", SourceSpec{}, nil, nil, NewDecisionTable("action_id", nil, nil))
	cats := []Category{
		{Name: "message_type", Values: NewExpr("v1", []token.Token{ident("v1", 0)})},
		{Name: "patient_class"},
		{Name: "message_type", Values: NewExpr("v2", []token.Token{ident("v2", 0)})},
	}

	withCats := m.WithCategories(cats)
	assert.Empty(t, m.Categories(), "original model is unchanged")

	got := withCats.Categories()
	require.Len(t, got, 2)
	assert.Equal(t, "message_type", got[0].Name)
	assert.Equal(t, "v2", got[0].Values.String())
	assert.Equal(t, "patient_class", got[1].Name)
	assert.Equal(t, "action_id", withCats.Decision().Name())
}
