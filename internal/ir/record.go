package ir

import (
	"encoding/json"
	"fmt"
)

// Key is an opaque, comparable record identifier.
type Key string

// MaybeKey is a key that may be absent. Lookups that can miss (an index
// probe, a foreign reference) return MaybeKey so that construction can
// drop exactly the absent entries instead of guessing from zero values.
type MaybeKey struct {
	Key     Key
	Present bool
}

// Some wraps a present key.
func Some(k Key) MaybeKey {
	return MaybeKey{Key: k, Present: true}
}

// None is the absent key.
func None() MaybeKey {
	return MaybeKey{}
}

// Keys converts strings to keys.
func Keys(ss ...string) []Key {
	keys := make([]Key, len(ss))
	for i, s := range ss {
		keys[i] = Key(s)
	}
	return keys
}

// Record is the raw attribute mapping of one stored record.
// Records are owned by the store; callers must treat them as read-only.
type Record map[string]Value

// Get returns the named attribute, or Null when it is absent.
func (r Record) Get(name string) Value {
	if v, ok := r[name]; ok && v != nil {
		return v
	}
	return Null{}
}

// Has reports whether the record carries the named attribute.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Names returns attribute names in canonical order.
func (r Record) Names() []string {
	return Object(r).SortedKeys()
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the record as canonical JSON.
func (r Record) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(Object(r))
}

// UnmarshalJSON decodes a JSON object into a record.
func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("record must be a JSON object, got %T", v)
	}
	*r = Record(obj)
	return nil
}

// RecordFromMap converts decoded YAML/JSON attributes into a record.
func RecordFromMap(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		rec[k] = v
	}
	return rec, nil
}

// MarshalValueJSON marshals a value with standard (non-canonical) JSON,
// used for CLI output.
func MarshalValueJSON(v Value) ([]byte, error) {
	return json.Marshal(ToAny(v))
}
