package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/pkg/compile"
	"github.com/leapstack-labs/leapdecide/pkg/expand"
	"github.com/leapstack-labs/leapdecide/pkg/model"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the parsed model of a policy file",
		Long: `Parse a policy file and show its model: the source table, categories,
references, flags with their expanded definitions, and the decision table
with each rule's expanded condition.

No SQL is rendered, so no dialect is needed.`,
		Example: `  # Show the model as tables
  leapdecide inspect policies/hl7_routing.policy

  # Show the model as JSON
  leapdecide inspect -o json policies/hl7_routing.policy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			files, err := readPolicies(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			report, err := inspectPolicy(cc, files[0].Source)
			if err != nil {
				return err
			}
			if cc.JSON() {
				return renderJSON(cc.Out, report)
			}
			report.render(cc)
			return nil
		},
	}
}

type namedExpr struct {
	Name     string `json:"name"`
	Expr     string `json:"expr"`
	Expanded string `json:"expanded,omitempty"`
}

type ruleReport struct {
	Condition string `json:"condition"`
	Expanded  string `json:"expanded"`
	Action    int64  `json:"action"`
}

type referenceReport struct {
	Alias string `json:"alias"`
	Table string `json:"table"`
}

type inspectReport struct {
	Model      string            `json:"model"`
	From       string            `json:"from"`
	TimeColumn string            `json:"time_column"`
	Categories []namedExpr       `json:"categories"`
	References []referenceReport `json:"references"`
	Flags      []namedExpr       `json:"flags"`
	Decision   string            `json:"decision"`
	Rules      []ruleReport      `json:"rules"`
	Default    int64             `json:"default"`
	HasElse    bool              `json:"has_else"`
}

func inspectPolicy(cc *CommandContext, source string) (*inspectReport, error) {
	m, err := model.Parse(source)
	if err != nil {
		return nil, err
	}

	var xopts []expand.Option
	if cc.Cfg.TransitiveFlags {
		xopts = append(xopts, expand.WithTransitive())
	}
	if cc.Cfg.GroupFlags {
		xopts = append(xopts, expand.WithGrouping())
	}
	x, err := expand.New(m, xopts...)
	if err != nil {
		return nil, err
	}
	dec, err := compile.Compile(m.Decision(), x)
	if err != nil {
		return nil, err
	}

	table := m.Decision()
	r := &inspectReport{
		Model:      m.Name(),
		From:       m.Source().FromTable,
		TimeColumn: m.Source().TimeColumn,
		Categories: []namedExpr{},
		References: []referenceReport{},
		Flags:      []namedExpr{},
		Decision:   table.Name(),
		Rules:      []ruleReport{},
		Default:    table.Default(),
		HasElse:    table.HasElse(),
	}
	for _, c := range m.Categories() {
		r.Categories = append(r.Categories, namedExpr{Name: c.Name, Expr: c.Values.String()})
	}
	for _, ref := range m.References() {
		r.References = append(r.References, referenceReport{Alias: ref.Alias, Table: ref.Table})
	}
	for _, f := range m.Flags() {
		expanded, _ := x.Flag(f.Name)
		r.Flags = append(r.Flags, namedExpr{Name: f.Name, Expr: f.Expr.String(), Expanded: expanded})
	}
	for i, rule := range table.Rules() {
		r.Rules = append(r.Rules, ruleReport{
			Condition: rule.Condition.String(),
			Expanded:  dec.Branches[i].Condition,
			Action:    rule.Action,
		})
	}
	return r, nil
}

func (r *inspectReport) render(cc *CommandContext) {
	w := cc.Out
	_, _ = fmt.Fprintf(w, "Model:       %s\n", r.Model)
	_, _ = fmt.Fprintf(w, "From:        %s\n", r.From)
	_, _ = fmt.Fprintf(w, "Time column: %s\n\n", r.TimeColumn)

	var rows [][]string
	for _, c := range r.Categories {
		rows = append(rows, []string{c.Name, c.Expr})
	}
	renderTable(w, "Categories", []string{"Name", "Values"}, rows)

	rows = nil
	for _, ref := range r.References {
		rows = append(rows, []string{ref.Alias, ref.Table})
	}
	renderTable(w, "References", []string{"Alias", "Table"}, rows)

	rows = nil
	for _, f := range r.Flags {
		rows = append(rows, []string{f.Name, f.Expr, f.Expanded})
	}
	renderTable(w, "Flags", []string{"Name", "Definition", "Expanded"}, rows)

	rows = nil
	for i, rule := range r.Rules {
		rows = append(rows, []string{fmt.Sprint(i + 1), rule.Condition, rule.Expanded, compile.FormatAction(rule.Action)})
	}
	fallback := "else"
	if !r.HasElse {
		fallback = "default"
	}
	rows = append(rows, []string{"", strings.ToUpper(fallback), "", compile.FormatAction(r.Default)})
	renderTable(w, "Decision "+r.Decision, []string{"#", "Condition", "Expanded", "Action"}, rows)
}
