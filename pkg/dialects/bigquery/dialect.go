// Package bigquery provides the Google BigQuery dialect.
package bigquery

import (
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

func init() {
	dialect.Register(BigQuery)
}

// Config is the BigQuery dialect configuration.
// BigQuery quotes identifiers with backticks and escapes them with a backslash.
var Config = &dialect.Config{
	Name:    "bigquery",
	Aliases: []string{"bq"},
	Window:  dialect.WindowFunction,
	Identifiers: dialect.IdentifierConfig{
		Quote:    "`",
		QuoteEnd: "`",
		Escape:   "\\`",
	},
	ReservedWords: append([]string{
		"any", "array", "assert_rows_modified", "collate", "contains", "define",
		"enum", "escape", "except", "exclude", "fetch", "following", "for",
		"groups", "hash", "if", "ignore", "intersect", "into", "lateral",
		"lookup", "merge", "natural", "new", "no", "nulls", "of", "over",
		"partition", "preceding", "proto", "qualify", "range", "recursive",
		"respect", "rollup", "rows", "set", "some", "struct", "tablesample",
		"to", "treat", "unbounded", "window", "within",
	}, dialect.CommonReservedWords...),
}

// Dialect is BigQuery: TIMESTAMP_SUB over CURRENT_TIMESTAMP().
type Dialect struct {
	*dialect.Base
}

// BigQuery is the registered BigQuery dialect.
var BigQuery = &Dialect{Base: dialect.NewBase(Config)}

// WindowPredicate implements dialect.Dialect.
func (d *Dialect) WindowPredicate(column string, days int) string {
	return fmt.Sprintf("%s >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL %d DAY)", column, days)
}
