package lint

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapdecide/pkg/core"
	"github.com/leapstack-labs/leapdecide/pkg/token"
)

// CheckFunc analyzes a model and returns diagnostics.
// Severity on returned diagnostics is filled in by the Analyzer.
type CheckFunc func(m *core.DecisionModel) []Diagnostic

// RuleDef is a data-driven rule definition.
// Rules are stateless: everything they need comes from the model.
type RuleDef struct {
	ID          string   // Unique identifier, e.g. "PL01"
	Name        string   // Human-readable name, e.g. "flags.unused"
	Group       string   // Category, e.g. "flags", "rules"
	Description string   // One-line description
	Severity    Severity // Default severity
	Check       CheckFunc
}

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string         `json:"rule_id"`
	Rule     string         `json:"rule"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Pos      token.Position `json:"pos"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", d.Pos, d.Severity, d.RuleID, d.Message)
}

var registry = struct {
	mu    sync.RWMutex
	rules map[string]RuleDef
}{rules: make(map[string]RuleDef)}

// Register adds a rule to the registry. Registering an ID twice replaces
// the earlier definition.
func Register(rule RuleDef) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rules[rule.ID] = rule
}

// Rules returns all registered rules ordered by ID.
func Rules() []RuleDef {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(registry.rules))
	for _, r := range registry.rules {
		rules = append(rules, r)
	}
	slices.SortFunc(rules, func(a, b RuleDef) int { return cmp.Compare(a.ID, b.ID) })
	return rules
}

// GetByID returns a rule by its ID.
func GetByID(id string) (RuleDef, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	r, ok := registry.rules[id]
	return r, ok
}

// Config controls which rules are enabled and their severity.
type Config struct {
	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]Severity
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]Severity),
	}
}

// IsDisabled returns true if the rule should be skipped.
func (c *Config) IsDisabled(ruleID string) bool {
	if c == nil {
		return false
	}
	return c.DisabledRules[ruleID]
}

// GetSeverity returns the severity for a rule, applying any override.
func (c *Config) GetSeverity(ruleID string, defaultSeverity Severity) Severity {
	if c != nil {
		if sev, ok := c.SeverityOverrides[ruleID]; ok {
			return sev
		}
	}
	return defaultSeverity
}

// Disable disables a rule by ID.
func (c *Config) Disable(ruleID string) *Config {
	c.DisabledRules[ruleID] = true
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(ruleID string, severity Severity) *Config {
	c.SeverityOverrides[ruleID] = severity
	return c
}

// Analyzer runs the registered rules against decision models.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates an analyzer. A nil config enables every rule.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs every enabled rule and returns diagnostics ordered by
// position, then rule ID.
func (a *Analyzer) Analyze(m *core.DecisionModel) []Diagnostic {
	if m == nil {
		return nil
	}

	var diagnostics []Diagnostic
	for _, rule := range Rules() {
		if a.config.IsDisabled(rule.ID) {
			continue
		}
		sev := a.config.GetSeverity(rule.ID, rule.Severity)
		for _, d := range rule.Check(m) {
			d.RuleID = rule.ID
			d.Rule = rule.Name
			d.Severity = sev
			diagnostics = append(diagnostics, d)
		}
	}

	slices.SortStableFunc(diagnostics, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Pos.Offset, y.Pos.Offset),
			cmp.Compare(x.RuleID, y.RuleID),
		)
	})
	return diagnostics
}

// Count returns how many diagnostics are at least as severe as min.
func Count(diags []Diagnostic, min Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity.AtLeast(min) {
			n++
		}
	}
	return n
}
