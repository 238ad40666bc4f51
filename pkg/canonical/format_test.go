package canonical

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/pkg/dialects/bigquery"
	"github.com/leapstack-labs/leapdecide/pkg/dialects/postgres"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "engine output",
			input: `SELECT msg_id, event_ts, CASE WHEN (((message_type = 'ADT') AND (trigger_event IN ('A01', 'A04')))) THEN 2 ELSE 1 END AS action_id FROM hl7_messages;`,
			expected: `SELECT
  msg_id,
  event_ts,
  CASE
    WHEN (((message_type = 'ADT') AND (trigger_event IN ('A01', 'A04')))) THEN 2
    ELSE 1
  END AS action_id
FROM hl7_messages`,
		},
		{
			name:  "lower-case keywords and subquery",
			input: "select msg_id , 0 as action_id from t where loinc_code in (select code from ref_loinc)",
			expected: `SELECT
  msg_id,
  0 AS action_id
FROM t
WHERE loinc_code IN (SELECT code FROM ref_loinc)`,
		},
		{
			name:  "needless quotes dropped",
			input: `SELECT "msg_id" FROM "hl7_messages"`,
			expected: `SELECT
  msg_id
FROM hl7_messages`,
		},
		{
			name:  "function calls hug parentheses",
			input: "SELECT lower(x), a::int FROM s.t",
			expected: `SELECT
  lower(x),
  a::int
FROM s.t`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input, postgres.Postgres)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormat_RequotesForDialect(t *testing.T) {
	got, err := Format(`SELECT "order", "Mixed Case" FROM "hl7_messages"`, bigquery.BigQuery)
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  `order`,\n  `Mixed Case`\nFROM hl7_messages", got)
}

func TestFormat_Idempotent(t *testing.T) {
	in := "SELECT a, CASE WHEN (x = 1) THEN 2 ELSE 0 END AS action_id FROM t"
	once, err := Format(in, postgres.Postgres)
	require.NoError(t, err)
	twice, err := Format(once, postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestFormat_Errors(t *testing.T) {
	for _, in := range []string{"", " ; ", "SELECT (a FROM t", "SELECT a) FROM t", "SELECT a @ b FROM t", "SELECT 'open"} {
		t.Run(in, func(t *testing.T) {
			_, err := Format(in, postgres.Postgres)
			assert.Error(t, err)
		})
	}
}

func TestFormatter(t *testing.T) {
	out, err := Formatter{}.Canonicalize(context.Background(), "select a from t", Schema{}, postgres.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  a\nFROM t", out)

	_, err = Formatter{}.Canonicalize(context.Background(), "select (a from t", Schema{}, postgres.Postgres)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanonicalize))

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageFormat, cerr.Stage)
	assert.Equal(t, "postgresql", cerr.Dialect)
}

func TestError(t *testing.T) {
	cause := errors.New("Parser Error: syntax error at or near \"FROM\"")
	err := &Error{Dialect: "bigquery", Stage: StageSerialize, Err: cause}

	assert.ErrorIs(t, err, ErrCanonicalize)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `canonicalize serialize (bigquery): Parser Error: syntax error at or near "FROM"`, err.Error())
}

func TestANSIQuotes(t *testing.T) {
	got, err := ANSIQuotes("SELECT `order`, `a\"b`, 'it`s' FROM `proj.ds`.t")
	require.NoError(t, err)
	assert.Equal(t, `SELECT "order", "a""b", 'it`+"`"+`s' FROM "proj.ds".t`, got)

	_, err = ANSIQuotes("SELECT `open")
	assert.Error(t, err)
}
