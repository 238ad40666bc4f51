package render

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

const indentSize = 2

// Printer lays out the decision query: the SELECT projection, the CASE
// branches and the FROM clause. It is not a general SQL formatter; input
// text such as rule conditions is written as given.
type Printer struct {
	dialect     dialect.Dialect
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

// newPrinter returns a printer quoting identifiers for d.
func newPrinter(d dialect.Dialect) *Printer {
	return &Printer{
		dialect:     d,
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the output without trailing newlines.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), "\n")
}

func (p *Printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *Printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) keyword(s string) {
	p.write(strings.ToUpper(s))
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.output.WriteByte(' ')
}

// ident writes a possibly qualified name, quoting parts that need it.
func (p *Printer) ident(name string) {
	p.write(dialect.QuoteQualified(p.dialect, name))
}

// formatList writes count items through format, separated by sep.
// Render uses it for the projection, one column per line.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}
