package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/gridstate/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage"`
	Engine        EngineConfig  `mapstructure:"engine" yaml:"engine"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig selects where table settings are persisted.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// EngineConfig mirrors schema.EngineConfig.
type EngineConfig struct {
	DefaultPageSize    int     `mapstructure:"default_page_size" yaml:"default_page_size"`
	DefaultColumnWidth float64 `mapstructure:"default_column_width" yaml:"default_column_width"`
	RowHeightEstimate  float64 `mapstructure:"row_height_estimate" yaml:"row_height_estimate"`
	Overscan           int     `mapstructure:"overscan" yaml:"overscan"`
	MaxOpenTables      int     `mapstructure:"max_open_tables" yaml:"max_open_tables"`
	MaxRows            int     `mapstructure:"max_rows" yaml:"max_rows"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	BasePath    string `mapstructure:"base_path" yaml:"base_path"`
	UserHeader  string `mapstructure:"user_header" yaml:"user_header"`
	HistorySize int    `mapstructure:"history_size" yaml:"history_size"`
}

// LoggingConfig controls audit logging. Level and format follow the
// LOG_LEVEL and LOG_MODE environment variables.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// Schema converts the engine section to the core engine config.
func (e EngineConfig) Schema() schema.EngineConfig {
	return schema.EngineConfig{
		DefaultPageSize:    e.DefaultPageSize,
		DefaultColumnWidth: e.DefaultColumnWidth,
		RowHeightEstimate:  e.RowHeightEstimate,
		Overscan:           e.Overscan,
		MaxOpenTables:      e.MaxOpenTables,
		MaxRows:            e.MaxRows,
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	stateDir := filepath.Join(home, ".gridstate", "state")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      stateDir,
		Storage: StorageConfig{
			Backend:    BackendFile,
			Dir:        filepath.Join(stateDir, "settings"),
			SQLitePath: filepath.Join(stateDir, "settings.db"),
		},
		Engine: EngineConfig{
			DefaultPageSize:    schema.DefaultPageSize,
			DefaultColumnWidth: schema.DefaultColumnWidth,
			RowHeightEstimate:  schema.DefaultRowHeightEstimate,
			Overscan:           schema.DefaultOverscan,
			MaxOpenTables:      256,
			MaxRows:            schema.DefaultMaxRows,
		},
		HTTP: HTTPConfig{
			Addr:        ":27490",
			BasePath:    "",
			UserHeader:  "X-User-ID",
			HistorySize: 1000,
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gridstate", "config.yaml"), nil
}
