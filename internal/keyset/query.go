package keyset

import (
	"iter"
	"slices"

	"github.com/roach88/prequel/internal/ir"
)

// EachKey yields the keys in order. It is the cheapest traversal.
// Every call starts a fresh traversal.
func (s *KeySet) EachKey() iter.Seq[ir.Key] {
	return func(yield func(ir.Key) bool) {
		for _, k := range s.keys {
			if !yield(k) {
				return
			}
		}
	}
}

// EachRaw yields the raw record of every key in order. A lookup failure is
// yielded as the error of the pair and ends the traversal.
func (s *KeySet) EachRaw() iter.Seq2[ir.Record, error] {
	return func(yield func(ir.Record, error) bool) {
		if s.mapper == nil {
			yield(nil, NewUnsupportedError("each_raw", unboundName))
			return
		}
		for _, k := range s.keys {
			rec, err := s.mapper.Record(k)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// EachInstance materializes and yields an Instance per key, in order.
// This is the slowest traversal; prefer EachRaw or EachKey when attribute
// access or keys are enough.
func (s *KeySet) EachInstance() iter.Seq2[Instance, error] {
	return func(yield func(Instance, error) bool) {
		if s.mapper == nil {
			yield(nil, NewUnsupportedError("each_instance", unboundName))
			return
		}
		for _, k := range s.keys {
			inst, err := s.mapper.Get(k)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// Instances materializes every key eagerly, in order.
func (s *KeySet) Instances() ([]Instance, error) {
	out := make([]Instance, 0, len(s.keys))
	for inst, err := range s.EachInstance() {
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Find returns the keys whose raw record satisfies pred, in order.
// A nil pred returns s unchanged.
//
// Records are evaluated through a Proxy; no Instance is built. The result
// comes from the bound model's KeySet factory so it keeps the model binding.
func (s *KeySet) Find(pred Predicate) (*KeySet, error) {
	if pred == nil {
		return s, nil
	}
	if s.mapper == nil {
		return nil, NewUnsupportedError("find", unboundName)
	}

	proxy := NewProxy()
	found := make([]ir.Key, 0)
	for _, k := range s.keys {
		rec, err := s.mapper.Record(k)
		if err != nil {
			return nil, err
		}
		if proxy.With(rec, pred) {
			found = append(found, k)
		}
	}

	if k := s.mapper.Klass(); k != nil {
		return k.KeySet(found), nil
	}
	return frozen(s.mapper, found), nil
}

// All is Find under its collection name.
func (s *KeySet) All(pred Predicate) (*KeySet, error) {
	return s.Find(pred)
}

// FindByKey is Find with a predicate over raw keys. No record is read.
// A nil pred returns s unchanged.
func (s *KeySet) FindByKey(pred KeyPredicate) *KeySet {
	if pred == nil {
		return s
	}
	return s.filterKeys(pred)
}

// First returns the first Instance whose record satisfies pred, or the first
// Instance overall when pred is nil. The boolean is false when the set is
// empty or nothing matches; that is not an error.
func (s *KeySet) First(pred Predicate) (Instance, bool, error) {
	if len(s.keys) == 0 {
		return nil, false, nil
	}
	if s.mapper == nil {
		return nil, false, NewUnsupportedError("first", unboundName)
	}

	var proxy *Proxy
	if pred != nil {
		proxy = NewProxy()
	}
	for _, k := range s.keys {
		rec, err := s.mapper.Record(k)
		if err != nil {
			return nil, false, err
		}
		if proxy != nil && !proxy.With(rec, pred) {
			continue
		}
		inst, err := s.materialize(k, rec)
		if err != nil {
			return nil, false, err
		}
		return inst, true, nil
	}
	return nil, false, nil
}

// materialize builds an Instance from an already-fetched record.
func (s *KeySet) materialize(k ir.Key, rec ir.Record) (Instance, error) {
	if klass := s.mapper.Klass(); klass != nil {
		return klass.FromRecord(k, rec)
	}
	return s.mapper.Get(k)
}

// Count returns the number of keys whose record satisfies pred. With a nil
// pred it returns Size without touching the mapper. Counting evaluates
// through a Proxy and allocates neither Instances nor a KeySet.
func (s *KeySet) Count(pred Predicate) (int, error) {
	if pred == nil {
		return len(s.keys), nil
	}
	if s.mapper == nil {
		return 0, NewUnsupportedError("count", unboundName)
	}

	proxy := NewProxy()
	n := 0
	for _, k := range s.keys {
		rec, err := s.mapper.Record(k)
		if err != nil {
			return 0, err
		}
		if proxy.With(rec, pred) {
			n++
		}
	}
	return n, nil
}

// Sort returns the keys reordered by cmp. Ties keep no particular order.
//
// Each record is fetched once. For every comparison the two sides are bound
// to separate Proxies right before cmp runs and cleared right after, even
// when cmp panics, so no binding survives from one comparison to the next.
func (s *KeySet) Sort(cmp Comparator) (*KeySet, error) {
	if cmp == nil {
		return nil, NewInvalidArgumentError("sort", "comparator is required")
	}
	if s.mapper == nil {
		return nil, NewUnsupportedError("sort", unboundName)
	}

	type entry struct {
		key ir.Key
		rec ir.Record
	}
	entries := make([]entry, len(s.keys))
	for i, k := range s.keys {
		rec, err := s.mapper.Record(k)
		if err != nil {
			return nil, err
		}
		entries[i] = entry{key: k, rec: rec}
	}

	left, right := NewProxy(), NewProxy()
	slices.SortStableFunc(entries, func(a, b entry) int {
		return compareWith(left, right, a.rec, b.rec, cmp)
	})

	out := make([]ir.Key, len(entries))
	for i, e := range entries {
		out[i] = e.key
	}
	return frozen(s.mapper, out), nil
}

// Limit returns the first n keys. n at or above Size returns s unchanged;
// a negative n fails with INVALID_ARGUMENT.
func (s *KeySet) Limit(n int) (*KeySet, error) {
	if n < 0 {
		return nil, NewInvalidArgumentError("limit", "length must not be negative")
	}
	if n >= len(s.keys) {
		return s, nil
	}
	return frozen(s.mapper, s.keys[:n:n]), nil
}
