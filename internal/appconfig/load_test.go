package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
storage:
  backend: memory
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: memory
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected missing config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedBackend(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
storage:
  backend: redis
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported storage.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestLoadRejectsInvalidBasePath(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  base_path: https://example.com/grid
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "http.base_path") {
		t.Fatalf("expected base_path error, got %v", err)
	}
}

func TestLoadAppliesOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("GRID_HOME", "/srv/grid")
	path := writeConfig(t, `
config_version: 1
storage:
  backend: sqlite
  sqlite_path: $GRID_HOME/settings.db
engine:
  default_page_size: 50
  overscan: 4
http:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Storage.SQLitePath != "/srv/grid/settings.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Engine.DefaultPageSize != 50 || cfg.Engine.Overscan != 4 {
		t.Fatalf("unexpected engine %+v", cfg.Engine)
	}
	if cfg.Engine.DefaultColumnWidth != 150 {
		t.Fatalf("expected default width to survive partial engine section, got %v", cfg.Engine.DefaultColumnWidth)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" || cfg.HTTP.UserHeader != "X-User-ID" {
		t.Fatalf("unexpected http %+v", cfg.HTTP)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion || cfg.Storage.Backend != BackendFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("GRIDSTATE_STORAGE_BACKEND", "memory")
	path := writeConfig(t, `
config_version: 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected env override, got %q", cfg.Storage.Backend)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
