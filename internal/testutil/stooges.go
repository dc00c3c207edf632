package testutil

import (
	"context"
	"testing"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/store"
)

// Fixture is one keyed record.
type Fixture struct {
	Key    ir.Key
	Record ir.Record
}

// PersonSpec is the Person model used across package tests.
//
//   - stooges: everyone but Shemp
//   - howards: name matches "Howard"
//   - non_howards: name does not match "Howard"
//   - named(name): name equals the argument
//   - early_howards: howards born before 1900, within stooges
func PersonSpec() ir.ModelSpec {
	howard := ir.Condition{Field: "name", Op: ir.OpMatches, Value: ir.String("Howard")}
	return ir.ModelSpec{
		Name:    "Person",
		Purpose: "The Three Stooges and Shemp.",
		KeyAttr: "handle",
		Attributes: []ir.AttributeSpec{
			{Name: "handle", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "born", Type: "int"},
			{Name: "nickname", Type: "string", Optional: true},
		},
		Scopes: []ir.ScopeSpec{
			{Name: "stooges", Where: &ir.Condition{Field: "handle", Op: ir.OpNe, Value: ir.String("shemp")}},
			{Name: "howards", Where: &howard},
			{Name: "non_howards", Where: &ir.Condition{Not: &howard}},
			{Name: "named", Params: []string{"name"}, Where: &ir.Condition{Field: "name", Op: ir.OpEq, Param: "name"}},
			{Name: "early_howards", Within: []string{"stooges", "howards"}, Where: &ir.Condition{Field: "born", Op: ir.OpLt, Value: ir.Int(1900)}},
		},
	}
}

// Stooges returns the four Person fixtures in insertion order.
func Stooges() []Fixture {
	person := func(handle, name string, born int64) Fixture {
		return Fixture{
			Key:    ir.Key(handle),
			Record: ir.Record{"handle": ir.String(handle), "name": ir.String(name), "born": ir.Int(born)},
		}
	}
	return []Fixture{
		person("curly", "Curly Howard", 1903),
		person("larry", "Larry Fine", 1902),
		person("moe", "Moe Howard", 1897),
		person("shemp", "Shemp Howard", 1895),
	}
}

// OpenStore opens an in-memory store closed at test cleanup.
func OpenStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// SeedStooges writes the Stooges fixtures as Person records.
func SeedStooges(t *testing.T, st *store.Store) {
	t.Helper()
	for _, f := range Stooges() {
		if err := st.Put(context.Background(), "Person", f.Key, f.Record); err != nil {
			t.Fatalf("seed %s: %v", f.Key, err)
		}
	}
}
