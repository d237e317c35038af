package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/gridstate/internal/persist"
	"pkt.systems/gridstate/internal/persist/sqlitekv"
	"pkt.systems/pslog"
)

// OpenStorage opens the persistence port named by cfg. The returned close
// function is never nil.
func OpenStorage(cfg StorageConfig, logger pslog.Logger) (persist.Port, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case BackendMemory:
		return persist.NewMemory(), noop, nil
	case BackendFile, "":
		store, err := persist.NewDirStoreWithLogger(cfg.Dir, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open file storage: %w", err)
		}
		return store, noop, nil
	case BackendSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, noop, fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, noop, fmt.Errorf("create sqlite dir: %w", err)
		}
		store, err := sqlitekv.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported storage.backend %q", cfg.Backend)
	}
}
