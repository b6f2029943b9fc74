// Package comptime evaluates MX expressions at compile time.
//
// Values are immutable. Constants live in an immutable parent-linked Env;
// comptime function calls get a fresh frame of mutable locals on top of the
// root env. Every evaluation started through Evaluate or Call is bounded by
// a depth budget (nested calls) and a step budget (expressions and
// statements) that are threaded through the whole evaluation.
//
// The arithmetic in arith.go is shared with lowering (constant folding) and
// the interpreter, so a folded constant always equals what the program would
// compute at run time.
package comptime
