// Package store provides SQLite-backed storage for keyed model records.
//
// Each record belongs to one model and is addressed by (model, key). Its
// attributes are stored as an RFC 8785 canonical JSON object, so the same
// record always produces byte-identical rows.
//
// # Ordering
//
//   - Every record gets a seq INTEGER on first insert (logical clock)
//   - Overwriting a record keeps its seq
//   - All key listings are ORDER BY seq ASC, record_key COLLATE BINARY ASC
//
// Query results are therefore deterministic and follow insertion order,
// which is the order KeySets preserve.
//
// # Queries
//
// SelectKeys compiles a queryir.Select to SQL through internal/querysql.
// Filters with no SQL rendering (array or object operands) fall back to a
// scan evaluated with queryir.Eval; both paths return the same keys.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - regexp(pattern, value): registered on every connection
package store
