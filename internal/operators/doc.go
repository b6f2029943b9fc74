// Package operators decides what a binary or unary operator means for a
// pair of operand types: a builtin MXIR opcode, or a call to a struct
// method found through the fixed operator → method name table.
package operators
