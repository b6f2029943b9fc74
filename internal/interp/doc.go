// Package interp executes lowered MXIR modules.
//
// The interpreter walks the node tree directly: module constants and
// globals are evaluated first, then the entry function is called with no
// arguments. Values are comptime.Value and arithmetic goes through the same
// comptime.Binary/Unary code the folder uses, so a program computes the
// same result whether an expression was folded or not.
//
// Every evaluated node costs one step; running past the budget aborts with
// RunStepLimit. Failures are *Error values with a function backtrace.
package interp
