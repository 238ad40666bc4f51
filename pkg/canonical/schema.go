package canonical

import (
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// Column is a typed column.
type Column struct {
	Name string `koanf:"name" json:"name" yaml:"name"`
	Type string `koanf:"type" json:"type" yaml:"type"`
}

// Table is a named table with columns.
type Table struct {
	Name    string
	Columns []Column
}

// Schema is what a Canonicalizer validates against: the fact table the
// query reads and the single-column tables its subqueries reference.
type Schema struct {
	Fact       Table
	References []Table
}

// ReferenceTable returns a lookup table exposing one string column, code.
func ReferenceTable(name string) Table {
	return Table{Name: name, Columns: []Column{{Name: "code", Type: "VARCHAR"}}}
}

// HL7FactColumns are the categorical columns of an HL7 message fact table.
var HL7FactColumns = []Column{
	{Name: "message_type", Type: "VARCHAR"},
	{Name: "trigger_event", Type: "VARCHAR"},
	{Name: "patient_class", Type: "VARCHAR"},
	{Name: "order_priority", Type: "VARCHAR"},
	{Name: "loinc_code", Type: "VARCHAR"},
	{Name: "obs_abn_flag", Type: "VARCHAR"},
}

// SchemaFor derives a schema from a model.
//
// The fact table is the model's source table with the row id (BIGINT), the
// time column (TIMESTAMP), every category (VARCHAR) and then factColumns; a
// later column with the same name overrides the earlier type. Reference
// tables are the targets of ref declarations plus every table named after
// `from` inside flag definitions and rule conditions.
func SchemaFor(m *core.DecisionModel, rowID string, factColumns []Column) Schema {
	src := m.Source()

	var cols []Column
	index := make(map[string]int)
	add := func(c Column) {
		key := strings.ToLower(c.Name)
		if i, ok := index[key]; ok {
			cols[i].Type = c.Type
			return
		}
		index[key] = len(cols)
		cols = append(cols, c)
	}

	add(Column{Name: rowID, Type: "BIGINT"})
	add(Column{Name: src.TimeColumn, Type: "TIMESTAMP"})
	for _, cat := range m.Categories() {
		add(Column{Name: cat.Name, Type: "VARCHAR"})
	}
	for _, c := range factColumns {
		add(c)
	}

	var refs []Table
	seen := map[string]bool{strings.ToLower(src.FromTable): true}
	addRef := func(name string) {
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		refs = append(refs, ReferenceTable(name))
	}

	for _, r := range m.References() {
		addRef(r.Table)
	}
	for _, f := range m.Flags() {
		for _, name := range subqueryTables(f.Expr) {
			addRef(name)
		}
	}
	for _, rule := range m.Decision().Rules() {
		for _, name := range subqueryTables(rule.Condition) {
			addRef(name)
		}
	}

	return Schema{
		Fact:       Table{Name: src.FromTable, Columns: cols},
		References: refs,
	}
}

// subqueryTables returns the names following `from` in e.
func subqueryTables(e core.Expr) []string {
	var names []string
	for i := 0; i < e.Len(); i++ {
		if e.Token(i).Type != token.FROM {
			continue
		}
		var parts []string
		for j := i + 1; j < e.Len(); j += 2 {
			tok := e.Token(j)
			if tok.Type != token.IDENT && tok.Type != token.QIDENT {
				break
			}
			parts = append(parts, parser.Unquote(tok.Literal))
			if j+1 >= e.Len() || e.Token(j+1).Type != token.DOT {
				break
			}
		}
		if len(parts) > 0 {
			names = append(names, strings.Join(parts, "."))
		}
	}
	return names
}
