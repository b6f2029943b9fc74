// Package diag defines the diagnostic model shared by the checker, the
// comptime evaluator, lowering and the MXIR interpreter.
//
// Phases never return language errors as Go errors. They push Diagnostic
// records through a Reporter; BagReporter collects them into a Bag that the
// driver sorts, dedups and hands to internal/diagfmt for rendering.
//
// Codes are grouped by phase: INP1xxx for AST document decoding, SEM3xxx for
// the semantic checker, CTE4xxx for comptime evaluation, LOW5xxx for lowering,
// PRJ6xxx for multi-unit builds and RUN7xxx for the interpreter.
package diag
