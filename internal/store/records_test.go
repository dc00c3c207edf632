package store

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/queryir"
)

func TestPutGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := ir.Record{
		"name":  ir.String("Moe Howard"),
		"big":   ir.Int(1 << 60),
		"lead":  ir.Bool(true),
		"nick":  ir.Null{},
		"tags":  ir.Array{ir.String("a"), ir.Int(2)},
		"extra": ir.Object{"k": ir.String("v")},
	}
	if err := s.Put(ctx, "Person", "moe", rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, "Person", "moe")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ir.Equal(ir.Object(got), ir.Object(rec)) {
		t.Errorf("Get() = %v, want %v", got, rec)
	}
}

func TestPut_StoresCanonicalJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "Person", "moe", ir.Record{"z": ir.Int(1), "a": ir.String("x")}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	var attrs string
	if err := s.db.QueryRow("SELECT attrs FROM records WHERE record_key = 'moe'").Scan(&attrs); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if want := `{"a":"x","z":1}`; attrs != want {
		t.Errorf("attrs = %s, want %s", attrs, want)
	}
}

func TestPut_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "", "k", ir.Record{}); err == nil {
		t.Error("Put() with empty model should fail")
	}
	if err := s.Put(ctx, "Person", "", ir.Record{}); err == nil {
		t.Error("Put() with empty key should fail")
	}
}

func TestPut_OverwriteKeepsPosition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedStooges(t, s)

	if err := s.Put(ctx, "Person", "curly", ir.Record{"name": ir.String("Jerome Howard")}); err != nil {
		t.Fatalf("Put() overwrite failed: %v", err)
	}

	keys, err := s.Keys(ctx, "Person")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	want := []string{"curly", "larry", "moe", "shemp"}
	if got := keyStrings(keys); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	rec, err := s.Get(ctx, "Person", "curly")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ir.Equal(rec.Get("name"), ir.String("Jerome Howard")) {
		t.Errorf("name = %v, want Jerome Howard", rec.Get("name"))
	}
	if rec.Has("born") {
		t.Error("overwrite should replace all attributes")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "Person", "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestKeys_ScopedToModel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedStooges(t, s)

	if err := s.Put(ctx, "Film", "moe", ir.Record{"title": ir.String("Disorder in the Court")}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	keys, err := s.Keys(ctx, "Film")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	if got := keyStrings(keys); !slices.Equal(got, []string{"moe"}) {
		t.Errorf("Keys(Film) = %v", got)
	}

	empty, err := s.Keys(ctx, "Nothing")
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Keys(Nothing) = %#v, want empty non-nil slice", empty)
	}
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedStooges(t, s)

	ok, err := s.Delete(ctx, "Person", "shemp")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	ok, err = s.Delete(ctx, "Person", "shemp")
	if err != nil || ok {
		t.Fatalf("second Delete() = %v, %v; want false, nil", ok, err)
	}

	n, err := s.Count(ctx, "Person")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestInsert_GeneratesKeys(t *testing.T) {
	s := createTestStore(t, WithKeyGenerator(NewFixedGenerator("k1", "k2")))
	ctx := context.Background()

	k1, err := s.Insert(ctx, "Person", ir.Record{"name": ir.String("A")})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	k2, err := s.Insert(ctx, "Person", ir.Record{"name": ir.String("B")})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if k1 != "k1" || k2 != "k2" {
		t.Errorf("Insert() keys = %s, %s", k1, k2)
	}
}

func TestInsert_DefaultUUIDv7(t *testing.T) {
	s := createTestStore(t)

	key, err := s.Insert(context.Background(), "Person", ir.Record{})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if len(key) != 36 {
		t.Errorf("Insert() key = %q, want a UUID", key)
	}
}

func TestScan_InsertionOrder(t *testing.T) {
	s := createTestStore(t)
	seedStooges(t, s)

	entries, err := s.Scan(context.Background(), "Person")
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(entries) != len(stooges) {
		t.Fatalf("Scan() returned %d entries, want %d", len(entries), len(stooges))
	}
	for i, e := range entries {
		if e.Key != stooges[i].key {
			t.Errorf("entry %d key = %s, want %s", i, e.Key, stooges[i].key)
		}
	}
}

func lit(v ir.Value) queryir.Operand { return queryir.Lit(v) }

// selectCases cover every predicate kind, including cross-kind and
// missing-attribute comparisons, which SQL and Eval must agree on.
var selectCases = []struct {
	name   string
	filter queryir.Predicate
	want   []string
}{
	{"all", nil, []string{"curly", "larry", "moe", "shemp"}},
	{"eq string", queryir.Equals{Field: "name", Value: lit(ir.String("Larry Fine"))}, []string{"larry"}},
	{"eq int", queryir.Equals{Field: "born", Value: lit(ir.Int(1897))}, []string{"moe"}},
	{"eq int vs string attr", queryir.Equals{Field: "born", Value: lit(ir.Int(1895))}, nil},
	{"eq bool", queryir.Equals{Field: "lead", Value: lit(ir.Bool(true))}, []string{"moe"}},
	{"eq false", queryir.Equals{Field: "lead", Value: lit(ir.Bool(false))}, []string{"curly"}},
	{"eq null", queryir.Equals{Field: "lead", Value: lit(ir.Null{})}, []string{"larry", "shemp"}},
	{"eq null stored", queryir.Equals{Field: "nick", Value: lit(ir.Null{})}, []string{"curly", "larry", "moe", "shemp"}},
	{"ne string", queryir.NotEquals{Field: "name", Value: lit(ir.String("Larry Fine"))}, []string{"curly", "moe", "shemp"}},
	{"ne bool", queryir.NotEquals{Field: "lead", Value: lit(ir.Bool(true))}, []string{"curly", "larry", "shemp"}},
	{"lt int", queryir.Less{Field: "born", Value: lit(ir.Int(1903))}, []string{"larry", "moe"}},
	{"gt int crosses into strings", queryir.Greater{Field: "born", Value: lit(ir.Int(1900))}, []string{"curly", "larry", "shemp"}},
	{"lt string", queryir.Less{Field: "name", Value: lit(ir.String("M"))}, []string{"curly", "larry"}},
	{"gt null", queryir.Greater{Field: "lead", Value: lit(ir.Null{})}, []string{"curly", "moe"}},
	{"lt null", queryir.Less{Field: "lead", Value: lit(ir.Null{})}, nil},
	{"lt bool", queryir.Less{Field: "lead", Value: lit(ir.Bool(true))}, []string{"curly"}},
	{"matches", queryir.Matches{Field: "name", Pattern: lit(ir.String("Howard$"))}, []string{"curly", "moe", "shemp"}},
	{"matches ignores ints", queryir.Matches{Field: "born", Pattern: lit(ir.String("18"))}, []string{"shemp"}},
	{"and", queryir.And{Predicates: []queryir.Predicate{
		queryir.Matches{Field: "name", Pattern: lit(ir.String("Howard"))},
		queryir.Less{Field: "born", Value: lit(ir.Int(1900))},
	}}, []string{"moe"}},
	{"or", queryir.Or{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "name", Value: lit(ir.String("Moe Howard"))},
		queryir.Equals{Field: "name", Value: lit(ir.String("Larry Fine"))},
	}}, []string{"larry", "moe"}},
	{"not missing", queryir.Not{Predicate: queryir.Equals{Field: "lead", Value: lit(ir.Bool(false))}}, []string{"larry", "moe", "shemp"}},
	{"empty or", queryir.Or{}, nil},
}

func TestSelectKeys_SQL(t *testing.T) {
	s := createTestStore(t)
	seedStooges(t, s)

	for _, tc := range selectCases {
		t.Run(tc.name, func(t *testing.T) {
			keys, err := s.SelectKeys(context.Background(), queryir.Select{From: "Person", Filter: tc.filter}, nil)
			if err != nil {
				t.Fatalf("SelectKeys() failed: %v", err)
			}
			want := tc.want
			if want == nil {
				want = []string{}
			}
			if got := keyStrings(keys); !slices.Equal(got, want) {
				t.Errorf("SelectKeys() = %v, want %v", got, want)
			}
		})
	}
}

func TestSelectKeys_ScanAgreesWithSQL(t *testing.T) {
	s := createTestStore(t)
	seedStooges(t, s)
	ctx := context.Background()

	for _, tc := range selectCases {
		t.Run(tc.name, func(t *testing.T) {
			sel := queryir.Select{From: "Person", Filter: tc.filter}
			viaSQL, err := s.SelectKeys(ctx, sel, nil)
			if err != nil {
				t.Fatalf("SelectKeys() failed: %v", err)
			}
			viaScan, err := s.selectByScan(ctx, sel, nil)
			if err != nil {
				t.Fatalf("selectByScan() failed: %v", err)
			}
			if !slices.Equal(keyStrings(viaSQL), keyStrings(viaScan)) {
				t.Errorf("SQL = %v, scan = %v", viaSQL, viaScan)
			}
		})
	}
}

func TestSelectKeys_FallsBackForArrays(t *testing.T) {
	s := createTestStore(t)
	seedStooges(t, s)

	keys, err := s.SelectKeys(context.Background(), queryir.Select{
		From:   "Person",
		Filter: queryir.Equals{Field: "tags", Value: lit(ir.Array{ir.String("original")})},
	}, nil)
	if err != nil {
		t.Fatalf("SelectKeys() failed: %v", err)
	}
	if got := keyStrings(keys); !slices.Equal(got, []string{"shemp"}) {
		t.Errorf("SelectKeys() = %v, want [shemp]", got)
	}
}

func TestSelectKeys_Params(t *testing.T) {
	s := createTestStore(t)
	seedStooges(t, s)
	ctx := context.Background()

	sel := queryir.Select{From: "Person", Filter: queryir.Matches{Field: "name", Pattern: queryir.Ref("pat")}}

	keys, err := s.SelectKeys(ctx, sel, queryir.Args{"pat": ir.String("^L")})
	if err != nil {
		t.Fatalf("SelectKeys() failed: %v", err)
	}
	if got := keyStrings(keys); !slices.Equal(got, []string{"larry"}) {
		t.Errorf("SelectKeys() = %v, want [larry]", got)
	}

	if _, err := s.SelectKeys(ctx, sel, nil); err == nil {
		t.Error("SelectKeys() with unbound parameter should fail")
	}
}

func TestRegexpMatch(t *testing.T) {
	tests := []struct {
		pattern string
		value   any
		want    int64
	}{
		{"^a", "abc", 1},
		{"^a", "cba", 0},
		{"^a", []byte("abc"), 1},
		{"^a", int64(1), 0},
		{"^a", nil, 0},
	}
	for _, tc := range tests {
		got, err := regexpMatch(tc.pattern, tc.value)
		if err != nil {
			t.Fatalf("regexpMatch(%q, %v) failed: %v", tc.pattern, tc.value, err)
		}
		if got != tc.want {
			t.Errorf("regexpMatch(%q, %v) = %d, want %d", tc.pattern, tc.value, got, tc.want)
		}
	}

	if _, err := regexpMatch("(", "x"); err == nil {
		t.Error("regexpMatch() with invalid pattern should fail")
	}
}
