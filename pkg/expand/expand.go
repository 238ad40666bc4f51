// Package expand substitutes flag definitions into rule conditions.
//
// Expansion works on token runs rather than raw text: only whole identifier
// tokens are replaced, so a flag named is_admission never matches inside
// is_admission_v2, inside a string literal, or in a qualified name such as
// t.is_admission. After substitution the connectives and, or and not are
// upper-cased everywhere except inside string literals and subqueries.
//
// By default a flag's own definition is not expanded again, so a flag that
// names another flag keeps that name verbatim. WithTransitive resolves such
// references depth-first and reports cycles.
package expand

import (
	"strings"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/parser"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// Expander expands rule conditions against one model's flags.
// It is immutable after construction and safe for concurrent use.
type Expander struct {
	transitive bool
	grouping   bool

	defs     map[string]core.Expr
	resolved map[string]string // flag name -> substitution text
}

// Option configures an Expander.
type Option func(*Expander)

// WithTransitive resolves flag references inside flag definitions.
func WithTransitive() Option {
	return func(x *Expander) { x.transitive = true }
}

// WithGrouping wraps every multi-token substitution in parentheses so a
// flag defined with `or` keeps its meaning next to `and`.
func WithGrouping() Option {
	return func(x *Expander) { x.grouping = true }
}

// New prepares an Expander for the flags of m.
// In transitive mode every flag is resolved up front and a reference cycle
// fails with *FlagCycleError.
func New(m *core.DecisionModel, opts ...Option) (*Expander, error) {
	x := &Expander{
		defs:     make(map[string]core.Expr),
		resolved: make(map[string]string),
	}
	for _, opt := range opts {
		opt(x)
	}

	flags := m.Flags()
	for _, f := range flags {
		x.defs[f.Name] = f.Expr
	}

	if !x.transitive {
		for _, f := range flags {
			x.resolved[f.Name] = x.wrap(f.Expr, x.render(f.Expr, nil))
		}
		return x, nil
	}

	r := &resolver{x: x, visiting: make(map[string]bool)}
	for _, f := range flags {
		if _, err := r.resolve(f.Name); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Expand returns the SQL text of a rule condition with flags substituted.
func (x *Expander) Expand(e core.Expr) (string, error) {
	return x.render(e, x.resolved), nil
}

// ExpandText lexes text as an expression and expands it.
func (x *Expander) ExpandText(text string) (string, error) {
	e, err := parser.ParseExpr(text)
	if err != nil {
		return "", err
	}
	return x.Expand(e)
}

// Flag returns the substitution text for a flag.
func (x *Expander) Flag(name string) (string, bool) {
	s, ok := x.resolved[name]
	return s, ok
}

// render writes e token by token, substituting flags found in subst and
// upper-casing connectives outside subqueries.
func (x *Expander) render(e core.Expr, subst map[string]string) string {
	toks := e.Tokens()
	inSubquery := subqueryMask(toks)

	var b strings.Builder
	for i, tok := range toks {
		b.WriteString(e.Gap(i))

		if tok.Type == token.IDENT && !qualified(toks, i) {
			if text, ok := subst[tok.Literal]; ok {
				b.WriteString(text)
				continue
			}
		}
		if token.IsConnective(tok.Type) && !inSubquery[i] {
			b.WriteString(strings.ToUpper(tok.Literal))
			continue
		}
		b.WriteString(tok.Literal)
	}
	return b.String()
}

func (x *Expander) wrap(e core.Expr, text string) string {
	if x.grouping && e.Len() > 1 {
		return "(" + text + ")"
	}
	return text
}

// refs returns the flag names e mentions, in order of first use.
func (x *Expander) refs(e core.Expr) []string {
	toks := e.Tokens()
	var names []string
	seen := make(map[string]bool)
	for i, tok := range toks {
		if tok.Type != token.IDENT || qualified(toks, i) || seen[tok.Literal] {
			continue
		}
		if _, ok := x.defs[tok.Literal]; ok {
			seen[tok.Literal] = true
			names = append(names, tok.Literal)
		}
	}
	return names
}

type resolver struct {
	x        *Expander
	visiting map[string]bool
	path     []string
}

func (r *resolver) resolve(name string) (string, error) {
	if text, ok := r.x.resolved[name]; ok {
		return text, nil
	}
	if r.visiting[name] {
		start := 0
		for i, n := range r.path {
			if n == name {
				start = i
				break
			}
		}
		cycle := append(append([]string(nil), r.path[start:]...), name)
		return "", &FlagCycleError{Path: cycle}
	}

	r.visiting[name] = true
	r.path = append(r.path, name)

	def := r.x.defs[name]
	subst := make(map[string]string)
	for _, ref := range r.x.refs(def) {
		text, err := r.resolve(ref)
		if err != nil {
			return "", err
		}
		subst[ref] = text
	}

	r.path = r.path[:len(r.path)-1]
	delete(r.visiting, name)

	text := r.x.wrap(def, r.x.render(def, subst))
	r.x.resolved[name] = text
	return text, nil
}

// qualified reports whether the token at i is part of a dotted name.
func qualified(toks []token.Token, i int) bool {
	return (i > 0 && toks[i-1].Type == token.DOT) ||
		(i+1 < len(toks) && toks[i+1].Type == token.DOT)
}

// subqueryMask marks tokens enclosed in a parenthesized group that begins
// with select, at any nesting depth.
func subqueryMask(toks []token.Token) []bool {
	mask := make([]bool, len(toks))
	var stack []bool
	inside := false
	for i, tok := range toks {
		switch tok.Type {
		case token.LPAREN:
			mask[i] = inside
			stack = append(stack, inside)
			if i+1 < len(toks) && isSelect(toks[i+1]) {
				inside = true
			}
		case token.RPAREN:
			if n := len(stack); n > 0 {
				inside = stack[n-1]
				stack = stack[:n-1]
			}
			mask[i] = inside
		default:
			mask[i] = inside
		}
	}
	return mask
}

func isSelect(tok token.Token) bool {
	return tok.Type == token.IDENT && strings.EqualFold(tok.Literal, "select")
}
