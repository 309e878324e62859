// Package core defines the shared language of the apalint system.
//
// This package contains:
//   - Findings and their ordering (Finding, Position, Summary)
//   - Per-request input (LintContext, Metadata, Layout)
//   - The inferred document classification (DocumentProfile)
//   - The error taxonomy shared by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
