package core

import "github.com/leapstack-labs/leapdecide/pkg/token"

// SourceSpec names the table a decision model reads and its event time column.
type SourceSpec struct {
	FromTable  string
	TimeColumn string
}

// Reference maps a short alias to a physical table name.
// References document expression text; they are never checked against usage.
type Reference struct {
	Alias string
	Table string
	Pos   token.Position
}

// Category declares the value domain of a categorical column.
// Categories are descriptive; compilation never consults them.
type Category struct {
	Name   string
	Values Expr
	Pos    token.Position
}

// Flag is a named boolean expression usable inside rule conditions.
type Flag struct {
	Name string
	Expr Expr
	Pos  token.Position
}

// Rule pairs a condition with the action code it selects.
type Rule struct {
	Condition Expr
	Action    int64
}

// DefaultAction is the fallback action when a decision table has no else clause.
const DefaultAction int64 = 0

// DecisionTable is an ordered rule list plus a fallback action.
// Declaration order is significant: the first rule whose condition holds wins.
type DecisionTable struct {
	name     string
	rules    []Rule
	fallback int64
	hasElse  bool
}

// NewDecisionTable creates a decision table. A nil fallback selects DefaultAction.
func NewDecisionTable(name string, rules []Rule, fallback *int64) DecisionTable {
	dt := DecisionTable{
		name:     name,
		rules:    append([]Rule(nil), rules...),
		fallback: DefaultAction,
	}
	if fallback != nil {
		dt.fallback = *fallback
		dt.hasElse = true
	}
	return dt
}

// Name returns the decision name, used as the action column alias.
func (dt DecisionTable) Name() string { return dt.name }

// Rules returns the rules in declaration order.
func (dt DecisionTable) Rules() []Rule {
	return append([]Rule(nil), dt.rules...)
}

// Default returns the fallback action.
func (dt DecisionTable) Default() int64 { return dt.fallback }

// HasElse reports whether the fallback came from an explicit else clause.
func (dt DecisionTable) HasElse() bool { return dt.hasElse }

// DecisionModel is the semantic model of one policy source.
// It is immutable once built; accessors hand out copies.
type DecisionModel struct {
	name       string
	source     SourceSpec
	categories []Category
	refs       []Reference
	flags      []Flag
	flagIndex  map[string]int
	table      DecisionTable
}

// NewDecisionModel assembles a model.
//
// References and flags keep first-declaration order; a later definition under
// the same name replaces the earlier value in place.
func NewDecisionModel(name string, source SourceSpec, refs []Reference, flags []Flag, table DecisionTable) *DecisionModel {
	m := &DecisionModel{
		name:      name,
		source:    source,
		flagIndex: make(map[string]int, len(flags)),
		table:     table,
	}

	refIndex := make(map[string]int, len(refs))
	for _, r := range refs {
		if i, ok := refIndex[r.Alias]; ok {
			m.refs[i] = r
			continue
		}
		refIndex[r.Alias] = len(m.refs)
		m.refs = append(m.refs, r)
	}

	for _, f := range flags {
		if i, ok := m.flagIndex[f.Name]; ok {
			m.flags[i] = f
			continue
		}
		m.flagIndex[f.Name] = len(m.flags)
		m.flags = append(m.flags, f)
	}

	return m
}

// Name returns the model name (empty when the source had no model block).
func (m *DecisionModel) Name() string { return m.name }

// Source returns the source table and time column.
func (m *DecisionModel) Source() SourceSpec { return m.source }

// References returns the references in declaration order.
func (m *DecisionModel) References() []Reference {
	return append([]Reference(nil), m.refs...)
}

// Flags returns the flags in declaration order.
func (m *DecisionModel) Flags() []Flag {
	return append([]Flag(nil), m.flags...)
}

// Flag looks up a flag by name.
func (m *DecisionModel) Flag(name string) (Flag, bool) {
	i, ok := m.flagIndex[name]
	if !ok {
		return Flag{}, false
	}
	return m.flags[i], true
}

// Decision returns the decision table.
func (m *DecisionModel) Decision() DecisionTable { return m.table }

// WithCategories returns a copy of the model carrying the given categories.
// Duplicate names keep the first position and the last value.
func (m *DecisionModel) WithCategories(categories []Category) *DecisionModel {
	c := *m
	c.categories = nil
	index := make(map[string]int, len(categories))
	for _, cat := range categories {
		if i, ok := index[cat.Name]; ok {
			c.categories[i] = cat
			continue
		}
		index[cat.Name] = len(c.categories)
		c.categories = append(c.categories, cat)
	}
	return &c
}

// Categories returns the declared categories in declaration order.
func (m *DecisionModel) Categories() []Category {
	return append([]Category(nil), m.categories...)
}
