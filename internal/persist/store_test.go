package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirStoreGetMissing(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Get("table_settings_alice_orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}

func TestDirStoreSetGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set("table_settings_alice_orders", []byte(`{"pageSize":25}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := store.Get("table_settings_alice_orders")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"pageSize":25}` {
		t.Fatalf("unexpected value %q", got)
	}
	info, err := os.Stat(filepath.Join(dir, "table_settings_alice_orders.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 file, got %v", info.Mode().Perm())
	}
}

func TestDirStoreRemove(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Remove("never-written"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := store.Set("k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove("k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatalf("expected key to be removed")
	}
}

func TestSanitizeKeepsKeysDistinct(t *testing.T) {
	a := sanitize("table_settings_a@b_orders")
	b := sanitize("table_settings_a_b_orders")
	if a == b {
		t.Fatalf("expected distinct file names, both %q", a)
	}
	if sanitize("a/../b") == "a/../b" {
		t.Fatalf("expected path separators to be escaped")
	}
}

func TestNewDirStoreRequiresDir(t *testing.T) {
	if _, err := NewDirStore("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}

func TestMemoryQuota(t *testing.T) {
	mem := NewMemoryWithQuota(8)
	if err := mem.Set("a", []byte("1234")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := mem.Set("b", []byte("123456")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if err := mem.Set("a", []byte("12345678")); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if err := mem.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mem.Set("b", []byte("123456")); err != nil {
		t.Fatalf("set after remove: %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	mem := NewMemory()
	value := []byte("abc")
	if err := mem.Set("k", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'z'
	got, ok, _ := mem.Get("k")
	if !ok || string(got) != "abc" {
		t.Fatalf("expected stored copy, got %q", got)
	}
	got[1] = 'z'
	again, _, _ := mem.Get("k")
	if string(again) != "abc" {
		t.Fatalf("expected returned copy, got %q", again)
	}
}
