// Package postgres provides the PostgreSQL dialect.
// This package is pure Go with no database driver dependencies.
package postgres

import (
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Config is the PostgreSQL dialect configuration.
var Config = &dialect.Config{
	Name:    "postgresql",
	Aliases: []string{"postgres", "pg"},
	Window:  dialect.WindowInterval,
	Identifiers: dialect.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	ReservedWords: append([]string{
		"analyse", "analyze", "array", "asymmetric", "both", "check", "collate",
		"column", "constraint", "current_role", "current_user", "deferrable",
		"do", "except", "fetch", "for", "foreign", "grant", "ilike", "initially",
		"intersect", "into", "lateral", "leading", "localtime", "localtimestamp",
		"offset", "only", "placing", "primary", "references", "returning",
		"session_user", "some", "symmetric", "to", "trailing", "unique", "user",
		"variadic", "window",
	}, dialect.CommonReservedWords...),
}

// Dialect is PostgreSQL: interval-literal arithmetic on now().
type Dialect struct {
	*dialect.Base
}

// Postgres is the registered PostgreSQL dialect.
var Postgres = &Dialect{Base: dialect.NewBase(Config)}

// WindowPredicate implements dialect.Dialect.
func (d *Dialect) WindowPredicate(column string, days int) string {
	return fmt.Sprintf("%s >= now() - interval '%d days'", column, days)
}
