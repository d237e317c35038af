package schema

import (
	"maps"
	"slices"
	"strings"
)

// SettingsSchemaVersion is stamped on records that carry a dataGrid field.
const SettingsSchemaVersion = 2

// ColumnSettings is the legacy per-column entry.
type ColumnSettings struct {
	ID      ColumnID `json:"id"`
	Visible bool     `json:"visible"`
	Width   float64  `json:"width"`
	Order   int      `json:"order"`
}

// TableSettings is the canonical persisted record for one (user, table).
// Columns and PageSize are the legacy shape kept for other consumers;
// DataGrid is the current structured state once migrated.
type TableSettings struct {
	SchemaVersion int                         `json:"schemaVersion,omitempty"`
	Columns       map[ColumnID]ColumnSettings `json:"columns"`
	PageSize      int                         `json:"pageSize"`
	DataGrid      *ViewState                  `json:"dataGrid,omitempty"`
}

// Clone returns a deep copy.
func (s TableSettings) Clone() TableSettings {
	out := TableSettings{
		SchemaVersion: s.SchemaVersion,
		Columns:       maps.Clone(s.Columns),
		PageSize:      s.PageSize,
	}
	if s.DataGrid != nil {
		grid := s.DataGrid.Clone()
		out.DataGrid = &grid
	}
	return out
}

// SortedColumns returns the legacy entries ordered by Order, ties broken by id.
// Entries without an id take the map key.
func SortedColumns(columns map[ColumnID]ColumnSettings) []ColumnSettings {
	out := make([]ColumnSettings, 0, len(columns))
	for id, col := range columns {
		if col.ID == "" {
			col.ID = id
		}
		out = append(out, col)
	}
	slices.SortStableFunc(out, func(a, b ColumnSettings) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// CompactColumnOrder renumbers orders to 0..n-1 keeping relative order,
// making them unique.
func CompactColumnOrder(columns map[ColumnID]ColumnSettings) map[ColumnID]ColumnSettings {
	if columns == nil {
		return nil
	}
	out := make(map[ColumnID]ColumnSettings, len(columns))
	for i, col := range SortedColumns(columns) {
		col.Order = i
		out[col.ID] = col
	}
	return out
}
