package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapdecide/pkg/dialects/postgres"
)

func TestPrinter(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{
			name: "projection one column per line",
			print: func(p *Printer) {
				p.keyword("select")
				p.writeln()
				p.indent()
				cols := []string{"msg_id", "event_ts"}
				p.formatList(len(cols), func(i int) { p.ident(cols[i]) }, ",", true)
			},
			want: "SELECT\n  msg_id,\n  event_ts",
		},
		{
			name: "inline list",
			print: func(p *Printer) {
				p.formatList(3, func(i int) { p.write([]string{"a", "b", "c"}[i]) }, ", ", false)
			},
			want: "a, b, c",
		},
		{
			name: "condition text written as given",
			print: func(p *Printer) {
				p.keyword("when")
				p.space()
				p.write("(x in ('a','b') and y = 1)")
			},
			want: "WHEN (x in ('a','b') and y = 1)",
		},
		{
			name: "dedent stops at column zero",
			print: func(p *Printer) {
				p.dedent()
				p.write("END")
				p.writeln()
				p.writeln()
			},
			want: "END",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPrinter(postgres.Postgres)
			tt.print(p)
			assert.Equal(t, tt.want, p.String())
		})
	}
}
