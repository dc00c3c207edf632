package keyset

import "github.com/roach88/prequel/internal/ir"

// Attributes is the attribute-access surface shared by Instances and Proxies.
// Reading an attribute the record does not carry yields ir.Null{}.
type Attributes interface {
	Attr(name string) ir.Value
}

// Instance is a materialized domain object.
type Instance interface {
	Attributes
}

// Predicate reports whether a record matches.
type Predicate func(a Attributes) bool

// KeyPredicate reports whether a raw key matches.
type KeyPredicate func(k ir.Key) bool

// Comparator orders two records: negative when a sorts before b, zero when
// they are equal, positive otherwise.
type Comparator func(a, b Attributes) int

// Scope is a named query on a model. It receives the KeySet it was chained
// from and the forwarded arguments, and returns the keys it selects.
type Scope func(ks *KeySet, args ...ir.Value) (*KeySet, error)

// Klass is the model identity a KeySet is bound to.
type Klass interface {
	// Name identifies the model in error messages.
	Name() string

	// KeySet builds a KeySet of this model from already-normalized keys.
	KeySet(keys []ir.Key) *KeySet

	// FromRecord constructs the Instance stored under key from its raw
	// record.
	FromRecord(key ir.Key, rec ir.Record) (Instance, error)

	// Scope looks up a named scope.
	Scope(name string) (Scope, bool)
}

// Mapper maps keys to raw records and to Instances.
//
// Lookups are synchronous and side-effect free. A missing key fails with an
// error for which IsKeyNotFound reports true; KeySet never retries or
// swallows it.
type Mapper interface {
	Klass() Klass
	Record(key ir.Key) (ir.Record, error)
	Get(key ir.Key) (Instance, error)
}
