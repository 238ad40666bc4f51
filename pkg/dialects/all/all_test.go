package all_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/all"
)

func TestRegisteredDialects(t *testing.T) {
	assert.Equal(t, []string{"bigquery", "clickhouse", "postgresql"}, dialect.List())
}

func TestAliases(t *testing.T) {
	tests := map[string]string{
		"postgresql": "postgresql",
		"POSTGRES":   "postgresql",
		"pg":         "postgresql",
		"BigQuery":   "bigquery",
		"bq":         "bigquery",
		"clickhouse": "clickhouse",
		"CH":         "clickhouse",
	}
	for tag, want := range tests {
		t.Run(tag, func(t *testing.T) {
			d, err := dialect.Lookup(tag)
			require.NoError(t, err)
			assert.Equal(t, want, d.Name())
		})
	}
}

func TestWindowPredicate(t *testing.T) {
	tests := []struct {
		dialect string
		days    int
		want    string
		style   dialect.WindowStyle
	}{
		{"postgresql", 2, "event_ts >= now() - interval '2 days'", dialect.WindowInterval},
		{"postgresql", 30, "event_ts >= now() - interval '30 days'", dialect.WindowInterval},
		{"bigquery", 2, "event_ts >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 2 DAY)", dialect.WindowFunction},
		{"clickhouse", 7, "event_ts >= now() - INTERVAL 7 DAY", dialect.WindowInterval},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := dialect.Lookup(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.WindowPredicate("event_ts", tt.days))
			assert.Equal(t, tt.style, d.Style())
		})
	}
}

func TestQuoting(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"postgresql", `"order"`},
		{"bigquery", "`order`"},
		{"clickhouse", `"order"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := dialect.Lookup(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dialect.QuoteIdentifierIfNeeded(d, "order"))
			assert.Equal(t, "msg_id", dialect.QuoteIdentifierIfNeeded(d, "msg_id"))
		})
	}
}
