// Package core defines the decision model shared by every compilation stage.
//
// This package contains:
//   - Expr, a run of policy-language tokens that remembers its source text
//   - SourceSpec, Reference, Flag, Rule and DecisionTable
//   - DecisionModel, the immutable aggregate handed from the model builder
//     to the expander, the decision compiler and the renderer
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
