package sqlitekv

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "settings.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStoreSetGetRemove(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Get("table_settings_alice_orders"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := store.Set("table_settings_alice_orders", []byte(`{"pageSize":10}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set("table_settings_alice_orders", []byte(`{"pageSize":50}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := store.Get("table_settings_alice_orders")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"pageSize":50}` {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if err := store.Remove("table_settings_alice_orders"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get("table_settings_alice_orders"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set("k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = first.Close()

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, ok, err := second.Get("k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" ", nil); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE t (id INTEGER);\n-- +migrate Down\nDROP TABLE t;\n"
	got := extractUpMigration(content)
	if got != "\nCREATE TABLE t (id INTEGER);\n" {
		t.Fatalf("unexpected up section %q", got)
	}
}
