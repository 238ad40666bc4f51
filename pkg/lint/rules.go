package lint

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

func init() {
	Register(UnusedFlag)
	Register(NestedFlag)
	Register(DuplicateCondition)
	Register(AfterCatchAll)
	Register(MissingElse)
	Register(UnusedReference)
	Register(UnknownCategoryValue)
}

// UnusedFlag warns about flags no rule or other flag mentions.
var UnusedFlag = RuleDef{
	ID:          "PL01",
	Name:        "flags.unused",
	Group:       "flags",
	Description: "Flag is defined but never referenced.",
	Severity:    SeverityWarning,
	Check:       checkUnusedFlag,
}

// NestedFlag reports flags whose definition names another flag. Those names
// are only expanded when transitive flag expansion is enabled.
var NestedFlag = RuleDef{
	ID:          "PL02",
	Name:        "flags.nested",
	Group:       "flags",
	Description: "Flag definition references another flag.",
	Severity:    SeverityInfo,
	Check:       checkNestedFlag,
}

// DuplicateCondition warns about rules that repeat an earlier condition.
var DuplicateCondition = RuleDef{
	ID:          "PL03",
	Name:        "rules.duplicate_condition",
	Group:       "rules",
	Description: "Rule repeats an earlier condition and can never match.",
	Severity:    SeverityWarning,
	Check:       checkDuplicateCondition,
}

// AfterCatchAll warns about rules placed after an always-true condition.
var AfterCatchAll = RuleDef{
	ID:          "PL04",
	Name:        "rules.after_catch_all",
	Group:       "rules",
	Description: "Rule follows an always-true condition and can never match.",
	Severity:    SeverityWarning,
	Check:       checkAfterCatchAll,
}

// MissingElse notes decisions that fall back to the default action.
var MissingElse = RuleDef{
	ID:          "PL05",
	Name:        "decision.missing_else",
	Group:       "decision",
	Description: "Decision has no else clause.",
	Severity:    SeverityInfo,
	Check:       checkMissingElse,
}

// UnusedReference flags ref aliases never used as a qualifier.
var UnusedReference = RuleDef{
	ID:          "PL06",
	Name:        "references.unused",
	Group:       "references",
	Description: "Reference alias is declared but never used.",
	Severity:    SeverityHint,
	Check:       checkUnusedReference,
}

// UnknownCategoryValue warns when a condition compares a category column
// against a literal its enum does not list.
var UnknownCategoryValue = RuleDef{
	ID:          "PL07",
	Name:        "rules.unknown_category_value",
	Group:       "rules",
	Description: "Comparison uses a value the category does not declare.",
	Severity:    SeverityWarning,
	Check:       checkUnknownCategoryValue,
}

func checkUnusedFlag(m *core.DecisionModel) []Diagnostic {
	used := make(map[string]bool)
	for _, r := range m.Decision().Rules() {
		for _, name := range bareIdents(r.Condition) {
			used[name] = true
		}
	}
	for _, f := range m.Flags() {
		for _, name := range bareIdents(f.Expr) {
			if name != f.Name {
				used[name] = true
			}
		}
	}

	var diags []Diagnostic
	for _, f := range m.Flags() {
		if !used[f.Name] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("flag %q is defined but never referenced", f.Name),
				Pos:     f.Pos,
			})
		}
	}
	return diags
}

func checkNestedFlag(m *core.DecisionModel) []Diagnostic {
	var diags []Diagnostic
	for _, f := range m.Flags() {
		seen := make(map[string]bool)
		for _, name := range bareIdents(f.Expr) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := m.Flag(name); !ok {
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("flag %q references flag %q, which is expanded only with transitive flags", f.Name, name),
				Pos:     f.Pos,
			})
		}
	}
	return diags
}

func checkDuplicateCondition(m *core.DecisionModel) []Diagnostic {
	first := make(map[string]int)
	var diags []Diagnostic
	for i, r := range m.Decision().Rules() {
		key := normalize(r.Condition)
		if j, ok := first[key]; ok {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("rule %d repeats the condition of rule %d", i+1, j+1),
				Pos:     r.Condition.Pos(),
			})
			continue
		}
		first[key] = i
	}
	return diags
}

func checkAfterCatchAll(m *core.DecisionModel) []Diagnostic {
	rules := m.Decision().Rules()
	for i, r := range rules {
		if !isCatchAll(r.Condition) {
			continue
		}
		var diags []Diagnostic
		for j := i + 1; j < len(rules); j++ {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("rule %d follows the always-true condition of rule %d", j+1, i+1),
				Pos:     rules[j].Condition.Pos(),
			})
		}
		return diags
	}
	return nil
}

func checkMissingElse(m *core.DecisionModel) []Diagnostic {
	dt := m.Decision()
	if dt.HasElse() {
		return nil
	}
	var pos token.Position
	if rules := dt.Rules(); len(rules) > 0 {
		pos = rules[len(rules)-1].Condition.Pos()
	}
	return []Diagnostic{{
		Message: fmt.Sprintf("decision %q has no else clause; unmatched rows get action %d", dt.Name(), dt.Default()),
		Pos:     pos,
	}}
}

func checkUnusedReference(m *core.DecisionModel) []Diagnostic {
	refs := m.References()
	if len(refs) == 0 {
		return nil
	}

	var exprs []core.Expr
	for _, f := range m.Flags() {
		exprs = append(exprs, f.Expr)
	}
	for _, r := range m.Decision().Rules() {
		exprs = append(exprs, r.Condition)
	}

	used := make(map[string]bool)
	for _, e := range exprs {
		toks := e.Tokens()
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].Type == token.IDENT && toks[i+1].Type == token.DOT {
				used[strings.ToLower(toks[i].Literal)] = true
			}
		}
	}

	var diags []Diagnostic
	for _, ref := range refs {
		if !used[strings.ToLower(ref.Alias)] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("reference %q (%s) is never used as a qualifier", ref.Alias, ref.Table),
				Pos:     ref.Pos,
			})
		}
	}
	return diags
}

func checkUnknownCategoryValue(m *core.DecisionModel) []Diagnostic {
	domains := make(map[string]map[string]bool)
	for _, c := range m.Categories() {
		if values, ok := enumValues(c.Values); ok {
			domains[strings.ToLower(c.Name)] = values
		}
	}
	if len(domains) == 0 {
		return nil
	}

	var exprs []core.Expr
	for _, f := range m.Flags() {
		exprs = append(exprs, f.Expr)
	}
	for _, r := range m.Decision().Rules() {
		exprs = append(exprs, r.Condition)
	}

	var diags []Diagnostic
	for _, e := range exprs {
		toks := e.Tokens()
		for i, tok := range toks {
			if tok.Type != token.IDENT || qualified(toks, i) {
				continue
			}
			domain, ok := domains[strings.ToLower(tok.Literal)]
			if !ok {
				continue
			}
			for _, lit := range comparedLiterals(toks, i) {
				value := parser.Unquote(lit.Literal)
				if domain[value] {
					continue
				}
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf("category %q does not declare value %s", tok.Literal, lit.Literal),
					Pos:     lit.Pos,
				})
			}
		}
	}
	return diags
}

// bareIdents returns the unqualified identifiers of e in order.
func bareIdents(e core.Expr) []string {
	toks := e.Tokens()
	var names []string
	for i, tok := range toks {
		if tok.Type == token.IDENT && !qualified(toks, i) {
			names = append(names, tok.Literal)
		}
	}
	return names
}

func qualified(toks []token.Token, i int) bool {
	return (i > 0 && toks[i-1].Type == token.DOT) ||
		(i+1 < len(toks) && toks[i+1].Type == token.DOT)
}

// normalize renders e with single spaces and case-folded words so that
// conditions differing only in layout or keyword case compare equal.
func normalize(e core.Expr) string {
	parts := make([]string, 0, e.Len())
	for _, tok := range e.Tokens() {
		if tok.IsWord() {
			parts = append(parts, strings.ToLower(tok.Literal))
			continue
		}
		parts = append(parts, tok.Literal)
	}
	return strings.Join(parts, " ")
}

func isCatchAll(e core.Expr) bool {
	switch strings.Trim(normalize(e), "( )") {
	case "true", "1 = 1":
		return true
	}
	return false
}

// enumValues extracts the literal set of enum('A','B',...). Anything else,
// such as a subquery, yields false.
func enumValues(e core.Expr) (map[string]bool, bool) {
	toks := e.Tokens()
	if len(toks) < 3 || !strings.EqualFold(toks[0].Literal, "enum") ||
		toks[1].Type != token.LPAREN || toks[len(toks)-1].Type != token.RPAREN {
		return nil, false
	}

	values := make(map[string]bool)
	for i, tok := range toks[2 : len(toks)-1] {
		switch {
		case i%2 == 0 && tok.Type == token.STRING:
			values[parser.Unquote(tok.Literal)] = true
		case i%2 == 1 && tok.Type == token.COMMA:
		default:
			return nil, false
		}
	}
	return values, len(values) > 0
}

// comparedLiterals returns the string literals the column at i is compared
// with through =, != or in (...).
func comparedLiterals(toks []token.Token, i int) []token.Token {
	j := i + 1
	if j < len(toks) && toks[j].Type == token.NOT {
		j++
	}
	if j >= len(toks) {
		return nil
	}

	switch {
	case toks[j].Type == token.EQ || toks[j].Type == token.NE:
		if j+1 < len(toks) && toks[j+1].Type == token.STRING {
			return toks[j+1 : j+2]
		}
	case toks[j].Type == token.IDENT && strings.EqualFold(toks[j].Literal, "in"):
		if j+1 >= len(toks) || toks[j+1].Type != token.LPAREN {
			return nil
		}
		var lits []token.Token
		for k := j + 2; k < len(toks); k++ {
			switch toks[k].Type {
			case token.STRING:
				lits = append(lits, toks[k])
			case token.COMMA:
			case token.RPAREN:
				return lits
			default:
				return nil
			}
		}
	}
	return nil
}
