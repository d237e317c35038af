package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
)

// DirStore persists each key as a JSON file in a state directory.
type DirStore struct {
	dir string
	log pslog.Logger
}

// NewDirStore constructs a file-backed port at the given directory.
func NewDirStore(dir string) (*DirStore, error) {
	return NewDirStoreWithLogger(dir, nil)
}

// NewDirStoreWithLogger constructs a file-backed port with logging.
func NewDirStoreWithLogger(dir string, logger pslog.Logger) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &DirStore{dir: dir, log: logger}, nil
}

// Get reads the value stored under key.
func (s *DirStore) Get(key string) ([]byte, bool, error) {
	path := s.pathForKey(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("kv get miss", "key", key)
			}
			return nil, false, nil
		}
		if s.log != nil {
			s.log.Warn("kv get failed", "key", key, "err", err)
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set writes value under key with a temp file and rename.
func (s *DirStore) Set(key string, value []byte) error {
	path := s.pathForKey(key)
	if err := s.writeAtomic(path, value); err != nil {
		if s.log != nil {
			s.log.Warn("kv set failed", "key", key, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("kv set ok", "key", key, "bytes", len(value))
	}
	return nil
}

// Remove deletes the value stored under key. Missing keys are not an error.
func (s *DirStore) Remove(key string) error {
	err := os.Remove(s.pathForKey(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.log != nil {
			s.log.Warn("kv remove failed", "key", key, "err", err)
		}
		return err
	}
	return nil
}

func (s *DirStore) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "kv-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *DirStore) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

// sanitize maps a key to a file name, hex-escaping disallowed runes.
func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "~%04x", r)
	}
	return b.String()
}
