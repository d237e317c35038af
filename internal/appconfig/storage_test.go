package appconfig

import (
	"path/filepath"
	"testing"
)

func TestOpenStorageBackends(t *testing.T) {
	dir := t.TempDir()
	cases := []StorageConfig{
		{Backend: BackendMemory},
		{Backend: BackendFile, Dir: filepath.Join(dir, "files")},
		{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "db", "settings.db")},
	}
	for _, cfg := range cases {
		port, closeFn, err := OpenStorage(cfg, nil)
		if err != nil {
			t.Fatalf("%s: open: %v", cfg.Backend, err)
		}
		if err := port.Set("table_settings_alice_orders", []byte(`{"columns":{}}`)); err != nil {
			t.Fatalf("%s: set: %v", cfg.Backend, err)
		}
		value, ok, err := port.Get("table_settings_alice_orders")
		if err != nil || !ok || string(value) != `{"columns":{}}` {
			t.Fatalf("%s: get %q ok=%v err=%v", cfg.Backend, value, ok, err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("%s: close: %v", cfg.Backend, err)
		}
	}
	if _, closeFn, err := OpenStorage(StorageConfig{Backend: "redis"}, nil); err == nil || closeFn == nil {
		t.Fatalf("expected unsupported backend error and non-nil close")
	}
}
