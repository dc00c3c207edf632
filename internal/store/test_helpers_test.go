package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/prequel/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stooges are inserted in this order; curly, larry, moe, shemp.
var stooges = []struct {
	key ir.Key
	rec ir.Record
}{
	{"curly", ir.Record{"name": ir.String("Curly Howard"), "born": ir.Int(1903), "lead": ir.Bool(false)}},
	{"larry", ir.Record{"name": ir.String("Larry Fine"), "born": ir.Int(1902), "nick": ir.Null{}}},
	{"moe", ir.Record{"name": ir.String("Moe Howard"), "born": ir.Int(1897), "lead": ir.Bool(true)}},
	{"shemp", ir.Record{"name": ir.String("Shemp Howard"), "born": ir.String("1895"), "tags": ir.Array{ir.String("original")}}},
}

func seedStooges(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, st := range stooges {
		if err := s.Put(ctx, "Person", st.key, st.rec); err != nil {
			t.Fatalf("Put(%s) failed: %v", st.key, err)
		}
	}
}

func keyStrings(keys []ir.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
