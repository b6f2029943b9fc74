// Package lower turns a checked unit into MXIR.
//
// Lowering is bottom-up: children are lowered first, and an operator whose
// operands came out constant is folded with the comptime arithmetic. Untyped
// constants keep their untyped type until a consumption point (a declared
// type, a parameter, a result, or the configured default integer type)
// settles them. Lowering never fails as a whole: every problem is reported
// and the offending expression is replaced by an ErrorMarker.
package lower
