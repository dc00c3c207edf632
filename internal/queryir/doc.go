// Package queryir provides the predicate intermediate representation used by
// declarative model scopes.
//
// The IR is the boundary between scope definitions (CUE conditions) and the
// two places predicates are evaluated:
//
//	[ir.Condition] → [queryir.Predicate] → [querysql: SQL over the record table]
//	                                     → [Eval: keyset.Predicate over a Proxy]
//
// Both evaluators agree on the portable semantics below, so a scope gives the
// same keys whether it is pushed down to SQLite or run in memory.
//
// # Sealed interfaces
//
// Query and Predicate are sealed with marker methods; only types in this
// package implement them. Backends switch exhaustively over the node types.
//
// # Semantics
//
//   - Equals / NotEquals are null-safe: a missing attribute equals Null and
//     differs from every other value.
//   - Less / Greater never match a missing attribute.
//   - Matches applies a Go regular expression to string attributes only.
//   - An Operand is either a literal value or a named scope parameter that is
//     bound when the scope is invoked.
//
// Floats do not exist in the IR; numbers are int64.
package queryir
