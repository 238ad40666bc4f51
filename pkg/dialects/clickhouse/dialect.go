// Package clickhouse provides the ClickHouse dialect.
package clickhouse

import (
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

func init() {
	dialect.Register(ClickHouse)
}

// Config is the ClickHouse dialect configuration.
var Config = &dialect.Config{
	Name:    "clickhouse",
	Aliases: []string{"ch"},
	Window:  dialect.WindowInterval,
	Identifiers: dialect.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `\"`,
	},
	ReservedWords: append([]string{
		"alter", "any", "array", "asof", "final", "format", "global", "ilike",
		"into", "prewhere", "sample", "settings", "to", "totals",
	}, dialect.CommonReservedWords...),
}

// Dialect is ClickHouse: unquoted INTERVAL arithmetic on now().
type Dialect struct {
	*dialect.Base
}

// ClickHouse is the registered ClickHouse dialect.
var ClickHouse = &Dialect{Base: dialect.NewBase(Config)}

// WindowPredicate implements dialect.Dialect.
func (d *Dialect) WindowPredicate(column string, days int) string {
	return fmt.Sprintf("%s >= now() - INTERVAL %d DAY", column, days)
}
