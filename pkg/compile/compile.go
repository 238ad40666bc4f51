// Package compile turns a decision table into one prioritized decision
// expression: the first branch whose condition holds selects the action,
// otherwise the default applies.
package compile

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/core"
)

// Expander produces the SQL text of a rule condition.
type Expander interface {
	Expand(core.Expr) (string, error)
}

// Branch is one WHEN arm of the decision expression.
type Branch struct {
	Condition string // expanded condition, without the enclosing parentheses
	Action    int64
}

// Decision is a compiled decision table.
type Decision struct {
	Name     string
	Branches []Branch
	Default  int64
}

// Compile expands every rule of table in declaration order.
func Compile(table core.DecisionTable, x Expander) (*Decision, error) {
	rules := table.Rules()
	d := &Decision{
		Name:     table.Name(),
		Branches: make([]Branch, 0, len(rules)),
		Default:  table.Default(),
	}
	for _, rule := range rules {
		cond, err := x.Expand(rule.Condition)
		if err != nil {
			return nil, err
		}
		d.Branches = append(d.Branches, Branch{
			Condition: strings.TrimSpace(cond),
			Action:    rule.Action,
		})
	}
	return d, nil
}

// Predicate returns the branch condition wrapped in exactly one pair of
// parentheses.
func (b Branch) Predicate() string {
	return "(" + b.Condition + ")"
}

// IsConstant reports whether the decision has no branches and reduces to
// its default literal.
func (d *Decision) IsConstant() bool {
	return len(d.Branches) == 0
}

// String returns the decision as a single-line SQL expression.
func (d *Decision) String() string {
	if d.IsConstant() {
		return FormatAction(d.Default)
	}
	var b strings.Builder
	b.WriteString("CASE")
	for _, br := range d.Branches {
		b.WriteString(" WHEN ")
		b.WriteString(br.Predicate())
		b.WriteString(" THEN ")
		b.WriteString(FormatAction(br.Action))
	}
	b.WriteString(" ELSE ")
	b.WriteString(FormatAction(d.Default))
	b.WriteString(" END")
	return b.String()
}

// FormatAction renders an action code as an integer literal.
func FormatAction(a int64) string {
	return strconv.FormatInt(a, 10)
}
