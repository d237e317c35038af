package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/gridstate/internal/virtual"
	"pkt.systems/gridstate/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRIDSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("engine.default_page_size", cfg.Engine.DefaultPageSize)
	v.SetDefault("engine.default_column_width", cfg.Engine.DefaultColumnWidth)
	v.SetDefault("engine.row_height_estimate", cfg.Engine.RowHeightEstimate)
	v.SetDefault("engine.overscan", cfg.Engine.Overscan)
	v.SetDefault("engine.max_open_tables", cfg.Engine.MaxOpenTables)
	v.SetDefault("engine.max_rows", cfg.Engine.MaxRows)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.user_header", cfg.HTTP.UserHeader)
	v.SetDefault("http.history_size", cfg.HTTP.HistorySize)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return fmt.Errorf("storage.dir is required for the %s backend", BackendFile)
		}
	case BackendSQLite:
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite_path is required for the %s backend", BackendSQLite)
		}
	default:
		return fmt.Errorf("unsupported storage.backend %q", cfg.Storage.Backend)
	}
	if cfg.Engine.Overscan < 0 {
		return fmt.Errorf("engine.overscan must not be negative")
	}
	if cfg.Engine.MaxRows < 0 || cfg.Engine.MaxRows > virtual.MaxCount {
		return fmt.Errorf("engine.max_rows must be between 0 and %d", virtual.MaxCount)
	}
	if cfg.Engine.DefaultColumnWidth > 0 && cfg.Engine.DefaultColumnWidth < schema.MinColumnWidth {
		return fmt.Errorf("engine.default_column_width must be at least %d", schema.MinColumnWidth)
	}
	basePath := strings.TrimSpace(cfg.HTTP.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Storage.Dir = expandEnv(cfg.Storage.Dir)
	cfg.Storage.SQLitePath = expandEnv(cfg.Storage.SQLitePath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
