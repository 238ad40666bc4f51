package compile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/expand"
	"github.com/leapstack-labs/leapdecide/pkg/model"
)

func compileSource(t *testing.T, src string) *Decision {
	t.Helper()
	m, err := model.Parse(src)
	require.NoError(t, err)
	x, err := expand.New(m)
	require.NoError(t, err)
	d, err := Compile(m.Decision(), x)
	require.NoError(t, err)
	return d
}

func TestCompile_OrderAndDefault(t *testing.T) {
	d := compileSource(t, `
from t
time_column ts
flag stat := order_priority = 'STAT'
flag abnormal := obs_abn_flag in ('H','L')
decision action_id {
  when stat and abnormal -> 3
  when stat -> 2
  when abnormal -> 2
  else -> 1
}`)

	assert.Equal(t, "action_id", d.Name)
	require.Len(t, d.Branches, 3)
	assert.Equal(t, Branch{Condition: "order_priority = 'STAT' AND obs_abn_flag in ('H','L')", Action: 3}, d.Branches[0])
	assert.Equal(t, int64(2), d.Branches[1].Action)
	assert.Equal(t, "obs_abn_flag in ('H','L')", d.Branches[2].Condition)
	assert.Equal(t, int64(1), d.Default)
	assert.False(t, d.IsConstant())
}

func TestCompile_MissingElseDefaultsToZero(t *testing.T) {
	d := compileSource(t, "from t\ntime_column ts\ndecision action_id { when a = 1 -> 5 }")
	assert.Equal(t, int64(0), d.Default)
	assert.Equal(t, "CASE WHEN (a = 1) THEN 5 ELSE 0 END", d.String())
}

func TestCompile_EmptyTable(t *testing.T) {
	d := compileSource(t, "from t\ntime_column ts\ndecision action_id { else -> 7 }")
	assert.True(t, d.IsConstant())
	assert.Equal(t, "7", d.String())
}

func TestBranch_PredicateAddsExactlyOneParenPair(t *testing.T) {
	tests := []struct {
		cond string
		want string
	}{
		{"a = 1", "(a = 1)"},
		{"(a = 1)", "((a = 1))"},
		{"(a = 1) OR (b = 2)", "((a = 1) OR (b = 2))"},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			assert.Equal(t, tt.want, Branch{Condition: tt.cond}.Predicate())
		})
	}
}

func TestDecision_String(t *testing.T) {
	d := &Decision{
		Name: "action_id",
		Branches: []Branch{
			{Condition: "x AND y", Action: -1},
			{Condition: "z", Action: 9223372036854775807},
		},
		Default: 4,
	}
	assert.Equal(t, "CASE WHEN (x AND y) THEN -1 WHEN (z) THEN 9223372036854775807 ELSE 4 END", d.String())
}

type failingExpander struct{ err error }

func (f failingExpander) Expand(core.Expr) (string, error) { return "", f.err }

func TestCompile_ExpanderError(t *testing.T) {
	m, err := model.Parse("from t\ntime_column ts\ndecision action_id { when a -> 1 }")
	require.NoError(t, err)

	boom := errors.New("boom")
	d, err := Compile(m.Decision(), failingExpander{err: boom})
	assert.Nil(t, d)
	assert.ErrorIs(t, err, boom)
}
