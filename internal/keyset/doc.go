// Package keyset implements a lazy, composable result set over a keyed
// record store.
//
// A KeySet is an immutable, ordered, duplicate-free sequence of record keys
// bound to a Mapper. Every transformation (set algebra, filtering, sorting,
// limiting, scope chaining) returns a new KeySet; the receiver is never
// modified, so KeySets can be shared freely between goroutines for reading.
//
// # Evaluation without materialization
//
// Predicates and comparators are written against the Attributes interface,
// the same attribute-access surface an Instance exposes. Filtering, counting
// and sorting bind a reusable Proxy to each raw record in turn instead of
// building Instances:
//
//	stooges, err := people.Find(func(p keyset.Attributes) bool {
//	    return strings.Contains(ir.Text(p.Attr("name")), "Howard")
//	})
//
// A Proxy binding lasts for exactly one predicate or comparator call and is
// released on every exit path, including a panic. Proxies are not safe for
// concurrent use; each traversal allocates its own.
//
// # Iteration modes
//
// EachKey is the cheapest traversal, EachRaw yields raw records, and
// EachInstance materializes domain objects one by one. EachInstance is the
// slow path and should be reserved for callers that need full instances.
//
// # Scope chaining
//
// Call looks an operation name up in the bound model's scope table and
// intersects the scope's result with the receiver, so scopes compose:
//
//	set, err := people.Call("stooges")
//	set, err = set.Call("non_howards")
//
// A name with no matching scope fails with an UNSUPPORTED_OPERATION error.
package keyset
