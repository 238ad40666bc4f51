// Package render emits the decision query for a dialect.
//
// Every query has the same shape:
//
//	SELECT
//	  <row id>,
//	  <time column>,
//	  CASE WHEN (...) THEN n ... ELSE d END AS <decision>
//	FROM <table>
//	WHERE <time column> >= <now minus N days>;
//
// The part before WHERE is the query core. It is portable SQL and may be
// replaced by a canonicalized version; the window predicate is always
// appended as text.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/compile"
	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
)

// DefaultRowIDColumn is the row identifier projected first.
const DefaultRowIDColumn = "msg_id"

// ErrInvalidWindow is returned for a non-positive window.
var ErrInvalidWindow = errors.New("window days must be positive")

// Options control rendering.
type Options struct {
	WindowDays  int
	RowIDColumn string // defaults to DefaultRowIDColumn
}

// Query is a rendered decision query.
type Query struct {
	core   string
	window string
}

// Render builds the query for a compiled decision over src.
func Render(src core.SourceSpec, dec *compile.Decision, d dialect.Dialect, opts Options) (*Query, error) {
	if opts.WindowDays <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, opts.WindowDays)
	}
	rowID := opts.RowIDColumn
	if rowID == "" {
		rowID = DefaultRowIDColumn
	}

	p := newPrinter(d)
	p.keyword("select")
	p.writeln()
	p.indent()
	p.formatList(3, func(i int) {
		switch i {
		case 0:
			p.ident(rowID)
		case 1:
			p.ident(src.TimeColumn)
		case 2:
			p.decision(dec)
		}
	}, ",", true)
	p.dedent()
	p.writeln()
	p.keyword("from")
	p.space()
	p.ident(src.FromTable)

	timeCol := dialect.QuoteQualified(d, src.TimeColumn)
	return &Query{
		core:   p.String(),
		window: d.WindowPredicate(timeCol, opts.WindowDays),
	}, nil
}

// decision writes the CASE expression and its alias.
func (p *Printer) decision(dec *compile.Decision) {
	if dec.IsConstant() {
		p.write(compile.FormatAction(dec.Default))
	} else {
		p.keyword("case")
		p.writeln()
		p.indent()
		for _, br := range dec.Branches {
			p.keyword("when")
			p.space()
			p.write("(" + flatten(br.Condition) + ")")
			p.space()
			p.keyword("then")
			p.space()
			p.write(compile.FormatAction(br.Action))
			p.writeln()
		}
		p.keyword("else")
		p.space()
		p.write(compile.FormatAction(dec.Default))
		p.writeln()
		p.dedent()
		p.keyword("end")
	}
	p.space()
	p.keyword("as")
	p.space()
	p.ident(dec.Name)
}

// flatten folds line breaks between tokens into single spaces.
// Line breaks inside string literals are kept.
func flatten(cond string) string {
	if !strings.ContainsAny(cond, "\r\n") {
		return cond
	}
	e, err := parser.ParseExpr(cond)
	if err != nil {
		return cond
	}
	var b strings.Builder
	for i := 0; i < e.Len(); i++ {
		gap := e.Gap(i)
		if strings.ContainsAny(gap, "\r\n") {
			gap = " "
		}
		b.WriteString(gap)
		b.WriteString(e.Token(i).Literal)
	}
	return b.String()
}

// Core returns the query without the window predicate and terminator.
func (q *Query) Core() string { return q.core }

// Window returns the window predicate.
func (q *Query) Window() string { return q.window }

// SQL returns the complete query terminated by a single semicolon.
func (q *Query) SQL() string {
	return q.core + "\nWHERE " + q.window + ";"
}

// WithCore returns a copy of q with the core replaced.
func (q *Query) WithCore(core string) *Query {
	return &Query{
		core:   strings.TrimSpace(strings.TrimRight(strings.TrimSpace(core), ";")),
		window: q.window,
	}
}
