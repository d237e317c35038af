package schema

import "errors"

// EngineConfig defines defaults and limits for the table view engine.
type EngineConfig struct {
	DefaultPageSize    int
	DefaultColumnWidth float64
	RowHeightEstimate  float64
	Overscan           int
	// MaxOpenTables bounds controllers kept in memory; 0 means unbounded.
	MaxOpenTables int
	// MaxRows bounds the row count of a virtual window request.
	MaxRows int
}

// DefaultRowHeightEstimate is used before rows are measured.
const DefaultRowHeightEstimate = 52

// DefaultOverscan is the number of rows rendered past each viewport edge.
const DefaultOverscan = 10

// DefaultMaxRows is the default bound on rows per virtual window request.
const DefaultMaxRows = 1_000_000

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.DefaultColumnWidth <= 0 {
		cfg.DefaultColumnWidth = DefaultColumnWidth
	}
	if cfg.RowHeightEstimate <= 0 {
		cfg.RowHeightEstimate = DefaultRowHeightEstimate
	}
	if cfg.Overscan < 0 {
		return EngineConfig{}, errors.New("overscan must not be negative")
	}
	if cfg.Overscan == 0 {
		cfg.Overscan = DefaultOverscan
	}
	if cfg.DefaultColumnWidth < MinColumnWidth {
		return EngineConfig{}, errors.New("default column width is below the minimum")
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.MaxOpenTables < 0 {
		cfg.MaxOpenTables = 0
	}
	return cfg, nil
}
