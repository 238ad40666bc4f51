package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/lint"
	"github.com/leapstack-labs/leapdecide/pkg/model"
)

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	var listRules bool

	cmd := &cobra.Command{
		Use:   "lint [file...]",
		Short: "Check policy files for likely mistakes",
		Long: `Check policy files for mistakes that still compile: unused flags,
rules that can never match, and comparisons against values a category
does not declare.

Rules are configured under the lint key of leapdecide.yaml. The command
fails when any finding is at least as severe as lint.fail_on (default
"error"), or when a file does not parse.`,
		Example: `  # Lint a policy
  leapdecide lint policies/hl7_routing.policy

  # Fail on warnings too
  leapdecide lint --fail-on warning policies/*.policy

  # List the available rules
  leapdecide lint --rules`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if listRules {
				return printRules(cc)
			}
			files, err := readPolicies(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runLint(cc, files)
		},
	}

	cmd.Flags().BoolVar(&listRules, "rules", false, "List lint rules and exit")
	cmd.Flags().String("fail-on", "", "Lowest severity that fails the command (error, warning, info, hint)")

	return cmd
}

// lintOutput is the JSON shape of one linted file.
type lintOutput struct {
	File        string            `json:"file"`
	Diagnostics []lint.Diagnostic `json:"diagnostics"`
	Error       string            `json:"error,omitempty"`
	Kind        string            `json:"kind,omitempty"`
}

func runLint(cc *CommandContext, files []policyFile) error {
	analyzer, err := cc.Cfg.Lint.Analyzer()
	if err != nil {
		return err
	}
	failOn, err := cc.Cfg.Lint.FailSeverity()
	if err != nil {
		return err
	}

	outs := make([]lintOutput, 0, len(files))
	var parseErrs, findings int
	for _, f := range files {
		out := lintOutput{File: f.Path, Diagnostics: []lint.Diagnostic{}}
		m, err := model.Parse(f.Source)
		if err != nil {
			out.Error = err.Error()
			out.Kind = string(decide.KindOf(err))
			parseErrs++
		} else {
			out.Diagnostics = analyzer.Analyze(m)
			findings += lint.Count(out.Diagnostics, failOn)
		}
		cc.Logger.Debug("linted policy", "file", f.Path, "diagnostics", len(out.Diagnostics))
		outs = append(outs, out)
	}

	if cc.JSON() {
		if err := renderJSON(cc.Out, outs); err != nil {
			return err
		}
	} else {
		printLint(cc, outs)
	}

	switch {
	case parseErrs > 0:
		return fmt.Errorf("%d of %d files failed to parse", parseErrs, len(files))
	case findings > 0:
		return fmt.Errorf("%d lint findings at or above %s", findings, failOn)
	}
	return nil
}

func printLint(cc *CommandContext, outs []lintOutput) {
	for _, out := range outs {
		if out.Error != "" {
			_, _ = fmt.Fprintf(cc.Err, "error: %s: %s\n", out.File, out.Error)
			continue
		}
		if len(out.Diagnostics) == 0 {
			_, _ = fmt.Fprintf(cc.Out, "%s: no findings\n", out.File)
			continue
		}
		rows := make([][]string, 0, len(out.Diagnostics))
		for _, d := range out.Diagnostics {
			rows = append(rows, []string{d.Pos.String(), d.Severity.String(), d.RuleID, d.Message})
		}
		renderTable(cc.Out, out.File, []string{"Location", "Severity", "Rule", "Message"}, rows)
	}
}

func printRules(cc *CommandContext) error {
	rules := lint.Rules()
	if cc.JSON() {
		type ruleInfo struct {
			ID          string        `json:"id"`
			Name        string        `json:"name"`
			Group       string        `json:"group"`
			Description string        `json:"description"`
			Severity    lint.Severity `json:"severity"`
		}
		infos := make([]ruleInfo, len(rules))
		for i, r := range rules {
			infos[i] = ruleInfo{ID: r.ID, Name: r.Name, Group: r.Group, Description: r.Description, Severity: r.Severity}
		}
		return renderJSON(cc.Out, infos)
	}

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		status := r.Severity.String()
		if contains(cc.Cfg.Lint.Disable, r.ID) {
			status = "disabled"
		}
		rows = append(rows, []string{r.ID, r.Name, status, r.Description})
	}
	renderTable(cc.Out, "", []string{"ID", "Name", "Severity", "Description"}, rows)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if strings.EqualFold(v, id) {
			return true
		}
	}
	return false
}
