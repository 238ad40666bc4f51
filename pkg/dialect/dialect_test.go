package dialect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDialect struct {
	*Base
}

func (d *testDialect) WindowPredicate(column string, days int) string {
	return fmt.Sprintf("%s > NOW() - %d", column, days)
}

func newTestDialect() *testDialect {
	return &testDialect{Base: NewBase(&Config{
		Name:          "TestSQL",
		Aliases:       []string{"tsql-alias"},
		Window:        WindowFunction,
		Identifiers:   IdentifierConfig{Quote: "[", QuoteEnd: "]", Escape: "]]"},
		ReservedWords: []string{"Select", "from"},
	})}
}

func TestWindowStyleString(t *testing.T) {
	assert.Equal(t, "interval", WindowInterval.String())
	assert.Equal(t, "function", WindowFunction.String())
	assert.Equal(t, "unknown", WindowStyle(42).String())
}

func TestBase(t *testing.T) {
	d := newTestDialect()

	assert.Equal(t, "TestSQL", d.Name())
	assert.Equal(t, []string{"tsql-alias"}, d.Aliases())
	assert.Equal(t, WindowFunction, d.Style())
	assert.True(t, d.IsReservedWord("SELECT"))
	assert.True(t, d.IsReservedWord("From"))
	assert.False(t, d.IsReservedWord("msg_id"))
	assert.Equal(t, "[odd]]name]", d.QuoteIdentifier("odd]name"))
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	d := newTestDialect()

	tests := []struct {
		in   string
		want string
	}{
		{"msg_id", "msg_id"},
		{"_x1", "_x1"},
		{"select", "[select]"},
		{"EventTs", "EventTs"},
		{"event-ts", "[event-ts]"},
		{"1col", "[1col]"},
		{"has space", "[has space]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIdentifierIfNeeded(d, tt.in))
		})
	}

	assert.Equal(t, "analytics.[from]", QuoteQualified(d, "analytics.from"))
}

func TestRegistry(t *testing.T) {
	d := newTestDialect()
	Register(d)

	for _, tag := range []string{"testsql", "TESTSQL", " TestSQL ", "tsql-alias"} {
		got, ok := Get(tag)
		require.True(t, ok, tag)
		assert.Same(t, d, got)
	}

	assert.Contains(t, List(), "testsql")
	assert.NotContains(t, List(), "tsql-alias")

	found := false
	for _, registered := range All() {
		if registered == Dialect(d) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLookup_Unsupported(t *testing.T) {
	Register(newTestDialect())

	d, err := Lookup("oracle")
	require.Error(t, err)
	assert.Nil(t, d)

	var unsupported *UnsupportedDialectError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "oracle", unsupported.Dialect)
	assert.Contains(t, unsupported.Supported, "testsql")
	assert.Contains(t, err.Error(), `unsupported dialect "oracle"`)
}
