// Package diag defines the diagnostic model shared by the lowering pass, the
// annotation collector and the driver.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short, actionable text.
//   - Where: the unit, function, block and instruction index it refers to.
//   - Notes: optional secondary locations with messages.
//
// # Emitting diagnostics
//
// Producers take a diag.Reporter and either call Report directly or build a
// diagnostic with ReportInfo/ReportWarning/ReportError, chain WithNote and call
// Emit. BagReporter collects into a Bag, which sorts and merges across units;
// DedupReporter in front of it drops repeated reports.
//
// Fatal conditions of the lowering pass are Go errors, not diagnostics; the
// CLI converts them into SevError entries only for rendering.
package diag
