package appconfig

import (
	"testing"

	"pkt.systems/gridstate/schema"
)

func TestDefaultConfigEngine(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	engine := cfg.Engine.Schema()
	if engine.DefaultPageSize != schema.DefaultPageSize || engine.DefaultColumnWidth != schema.DefaultColumnWidth {
		t.Fatalf("unexpected engine defaults %+v", engine)
	}
	if _, err := schema.NormalizeEngineConfig(engine); err != nil {
		t.Fatalf("default engine config rejected: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("expected file backend by default, got %q", cfg.Storage.Backend)
	}
}
