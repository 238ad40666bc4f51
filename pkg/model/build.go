// Package model assembles the semantic decision model from a parsed policy.
package model

import (
	"fmt"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
)

// Parse parses src and builds its decision model.
func Parse(src string) (*core.DecisionModel, error) {
	file, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return Build(file)
}

// Build converts a parsed file into a DecisionModel.
//
// The parser has already enforced structural completeness, so Build only
// fails when handed a file that did not come from a successful parse.
func Build(file *parser.File) (*core.DecisionModel, error) {
	if file == nil || file.Model == nil {
		return nil, &parser.MissingClauseError{Clause: "model"}
	}

	var (
		source     core.SourceSpec
		categories []core.Category
		refs       []core.Reference
		flags      []core.Flag
		decision   *parser.DecisionStmt
	)

	for _, stmt := range file.Model.Statements {
		switch s := stmt.(type) {
		case *parser.FromStmt:
			source.FromTable = s.Table
		case *parser.TimeColumnStmt:
			source.TimeColumn = s.Column
		case *parser.CategoryStmt:
			categories = append(categories, core.Category{Name: s.Name, Values: s.Values, Pos: s.Pos})
		case *parser.RefStmt:
			refs = append(refs, core.Reference{Alias: s.Alias, Table: s.Table, Pos: s.Pos})
		case *parser.FlagStmt:
			flags = append(flags, core.Flag{Name: s.Name, Expr: s.Expr, Pos: s.Pos})
		case *parser.DecisionStmt:
			decision = s
		default:
			return nil, fmt.Errorf("unknown statement %T", stmt)
		}
	}

	switch {
	case source.FromTable == "":
		return nil, &parser.MissingClauseError{Clause: "from"}
	case source.TimeColumn == "":
		return nil, &parser.MissingClauseError{Clause: "time_column"}
	case decision == nil:
		return nil, &parser.MissingClauseError{Clause: "decision"}
	}

	m := core.NewDecisionModel(file.Model.Name, source, refs, flags, buildTable(decision))
	return m.WithCategories(categories), nil
}

func buildTable(d *parser.DecisionStmt) core.DecisionTable {
	rules := make([]core.Rule, 0, len(d.Rules))
	for _, w := range d.Rules {
		rules = append(rules, core.Rule{Condition: w.Condition, Action: w.Action})
	}

	var fallback *int64
	if d.Else != nil {
		action := d.Else.Action
		fallback = &action
	}
	return core.NewDecisionTable(d.Name, rules, fallback)
}
