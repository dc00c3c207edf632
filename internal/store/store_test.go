package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/prequel/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	seedStooges(t, s)
	n, err := s.Count(context.Background(), "Person")
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"records", "meta"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	seedStooges(t, s1)
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	rec, err := s2.Get(context.Background(), "Person", "moe")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got := rec.Get("name"); !ir.Equal(got, ir.String("Moe Howard")) {
		t.Errorf("name = %v, want Moe Howard", got)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestMigrations_SetUserVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version query failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_records_model_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("index idx_records_model_seq missing: %v", err)
	}
}

func TestMeta(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetMeta(ctx, "spec_hash"); err != nil || ok {
		t.Fatalf("GetMeta() on empty store = ok %v, err %v", ok, err)
	}

	if err := s.SetMeta(ctx, "spec_hash", "a"); err != nil {
		t.Fatalf("SetMeta() failed: %v", err)
	}
	if err := s.SetMeta(ctx, "spec_hash", "b"); err != nil {
		t.Fatalf("SetMeta() overwrite failed: %v", err)
	}

	got, ok, err := s.GetMeta(ctx, "spec_hash")
	if err != nil || !ok {
		t.Fatalf("GetMeta() = ok %v, err %v", ok, err)
	}
	if got != "b" {
		t.Errorf("GetMeta() = %q, want %q", got, "b")
	}
}
