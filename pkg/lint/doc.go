// Package lint checks decision models for policy mistakes that still
// compile: flags nobody uses, rules that can never fire, comparisons against
// values a category does not declare.
//
// # Rule Registration
//
// Rules register themselves with the package registry from init. Each rule
// has a stable ID used in configuration:
//
//	lint:
//	  disable: [PL05]
//	  severity:
//	    PL01: error
//
// # Rule Groups
//
//   - flags (PL01, PL02): flag definitions
//   - rules (PL03, PL04, PL07): decision rule conditions
//   - decision (PL05): the decision table as a whole
//   - references (PL06): ref declarations
package lint
