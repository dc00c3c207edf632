package keyset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/prequel/internal/ir"
)

// unboundName identifies KeySets with no model binding in error messages.
const unboundName = "KeySet"

// KeySet is an immutable, ordered sequence of unique keys bound to a Mapper.
//
// The key slice is never mutated after construction. The Mapper may be nil
// for KeySets with no model binding; such sets support set algebra, key
// iteration, FindByKey and Limit, and fail record-level operations with an
// UNSUPPORTED_OPERATION error.
type KeySet struct {
	keys   []ir.Key
	mapper Mapper
}

// New builds a KeySet from keys, dropping duplicates while preserving the
// order of first occurrence.
func New(m Mapper, keys ...ir.Key) *KeySet {
	return frozen(m, dedup(keys))
}

// FromMaybe builds a KeySet from possibly-absent keys. Absent entries are
// dropped, then duplicates are removed preserving first-seen order.
func FromMaybe(m Mapper, keys []ir.MaybeKey) *KeySet {
	present := make([]ir.Key, 0, len(keys))
	for _, mk := range keys {
		if mk.Present {
			present = append(present, mk.Key)
		}
	}
	return frozen(m, dedup(present))
}

// Frozen builds a KeySet from keys the caller guarantees are already unique.
// The normalization pass is skipped; the slice is still copied.
func Frozen(m Mapper, keys []ir.Key) *KeySet {
	return frozen(m, slices.Clone(keys))
}

// frozen takes ownership of keys without copying.
func frozen(m Mapper, keys []ir.Key) *KeySet {
	if keys == nil {
		keys = []ir.Key{}
	}
	return &KeySet{keys: keys, mapper: m}
}

// dedup returns a fresh slice holding the first occurrence of every key.
func dedup(keys []ir.Key) []ir.Key {
	out := make([]ir.Key, 0, len(keys))
	seen := make(map[ir.Key]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Keys returns a copy of the keys in order.
func (s *KeySet) Keys() []ir.Key {
	return slices.Clone(s.keys)
}

// Size returns the number of keys.
func (s *KeySet) Size() int {
	return len(s.keys)
}

// Empty reports whether the set has no keys.
func (s *KeySet) Empty() bool {
	return len(s.keys) == 0
}

// Contains reports whether k is in the set.
func (s *KeySet) Contains(k ir.Key) bool {
	return slices.Contains(s.keys, k)
}

// Mapper returns the bound mapper, or nil.
func (s *KeySet) Mapper() Mapper {
	return s.mapper
}

// Klass returns the bound model identity, or nil for an unbound set.
func (s *KeySet) Klass() Klass {
	if s.mapper == nil {
		return nil
	}
	return s.mapper.Klass()
}

// Equal reports whether both sets hold the same keys in the same order.
func (s *KeySet) Equal(o *KeySet) bool {
	return slices.Equal(s.keys, o.keys)
}

// String renders the set for debugging, e.g. "Person[c l m s]".
func (s *KeySet) String() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = string(k)
	}
	return fmt.Sprintf("%s[%s]", s.klassName(), strings.Join(parts, " "))
}

func (s *KeySet) klassName() string {
	if k := s.Klass(); k != nil {
		return k.Name()
	}
	return unboundName
}

// Union returns the keys of s followed by the keys of o not already in s.
// The result is bound to s's mapper.
func (s *KeySet) Union(o *KeySet) *KeySet {
	if o == nil || len(o.keys) == 0 {
		return s
	}
	out := make([]ir.Key, 0, len(s.keys)+len(o.keys))
	out = append(out, s.keys...)
	seen := s.members()
	for _, k := range o.keys {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	return frozen(s.mapper, out)
}

// Or is Union under its set-operator name.
func (s *KeySet) Or(o *KeySet) *KeySet {
	return s.Union(o)
}

// Intersect returns the keys of s that are also in o, in s's order.
func (s *KeySet) Intersect(o *KeySet) *KeySet {
	if o == nil {
		return frozen(s.mapper, nil)
	}
	in := o.members()
	return s.filterKeys(func(k ir.Key) bool {
		_, ok := in[k]
		return ok
	})
}

// Difference returns the keys of s that are not in o, in s's order.
func (s *KeySet) Difference(o *KeySet) *KeySet {
	if o == nil || len(o.keys) == 0 {
		return s
	}
	in := o.members()
	return s.filterKeys(func(k ir.Key) bool {
		_, ok := in[k]
		return !ok
	})
}

func (s *KeySet) members() map[ir.Key]struct{} {
	m := make(map[ir.Key]struct{}, len(s.keys))
	for _, k := range s.keys {
		m[k] = struct{}{}
	}
	return m
}

// filterKeys keeps the keys for which keep returns true, in order.
// The result is already unique because s is.
func (s *KeySet) filterKeys(keep func(ir.Key) bool) *KeySet {
	out := make([]ir.Key, 0, len(s.keys))
	for _, k := range s.keys {
		if keep(k) {
			out = append(out, k)
		}
	}
	return frozen(s.mapper, out)
}

// Call invokes the named scope of the bound model with args and intersects
// its result with s, keeping s's order and mapper. This is how scopes chain:
//
//	set, err := people.Call("stooges")
//	set, err = set.Call("non_howards")
//
// When the model has no scope called name, or s is unbound, Call fails with
// an UNSUPPORTED_OPERATION error naming the scope and the bound model.
func (s *KeySet) Call(name string, args ...ir.Value) (*KeySet, error) {
	k := s.Klass()
	if k == nil {
		return nil, NewUnsupportedError(name, unboundName)
	}
	scope, ok := k.Scope(name)
	if !ok {
		return nil, NewUnsupportedError(name, k.Name())
	}
	res, err := scope(s, args...)
	if err != nil {
		return nil, err
	}
	return s.Intersect(res), nil
}
