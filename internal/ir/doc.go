// Package ir provides the foundation types shared by every other package:
// record keys, attribute values, raw records and compiled model specs.
//
// ir imports nothing internal. Higher layers (keyset, store, queryir, model)
// depend on it, never the other way round.
//
// Key design constraints:
//   - Attribute values form a sealed family (Null, String, Int, Bool, Array, Object)
//   - NO float types - numbers are int64 so ordering and hashing stay exact
//   - Stored records are serialized with RFC 8785 canonical JSON
//   - All JSON tags use snake_case
package ir
