// Package migrate bridges the legacy per-column settings map and the
// structured ViewState.
//
// A stored record is tagged with a Generation by Classify and converted by
// Resolve; callers never probe optional fields themselves.
package migrate

import (
	"slices"

	"pkt.systems/gridstate/schema"
)

// Generation tags the schema generation of a stored record.
type Generation int

const (
	// GenerationNone means no usable settings were stored.
	GenerationNone Generation = iota
	// GenerationLegacy is a record with only the flat columns map.
	GenerationLegacy
	// GenerationCurrent is a record carrying a dataGrid ViewState.
	GenerationCurrent
)

func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationCurrent:
		return "current"
	default:
		return "none"
	}
}

// Classify tags a stored record. A nil record is GenerationNone.
func Classify(record *schema.TableSettings) Generation {
	switch {
	case record == nil:
		return GenerationNone
	case record.DataGrid != nil:
		return GenerationCurrent
	case record.Columns != nil:
		return GenerationLegacy
	default:
		return GenerationNone
	}
}

// Result is the outcome of resolving a stored record against defaults.
type Result struct {
	State      schema.ViewState
	Generation Generation
	// NeedsUpgrade is set when the record should be rewritten with a dataGrid.
	NeedsUpgrade bool
}

// Resolve derives the live ViewState from a stored record merged with defaults.
func Resolve(record *schema.TableSettings, defaults schema.ViewState) Result {
	gen := Classify(record)
	var persisted schema.ViewState
	switch gen {
	case GenerationCurrent:
		persisted = record.DataGrid.Clone()
	case GenerationLegacy:
		persisted = FromColumns(record.Columns, record.PageSize)
	}
	return Result{
		State:        Merge(defaults, persisted),
		Generation:   gen,
		NeedsUpgrade: gen == GenerationLegacy,
	}
}

// FromColumns derives a ViewState from a legacy column map. An empty or nil
// map yields an empty ViewState so that defaults apply in full.
func FromColumns(columns map[schema.ColumnID]schema.ColumnSettings, pageSize int) schema.ViewState {
	var state schema.ViewState
	if len(columns) > 0 {
		sorted := schema.SortedColumns(columns)
		state.ColumnVisibilityModel = make(map[schema.ColumnID]bool, len(sorted))
		state.ColumnWidthModel = make(map[schema.ColumnID]float64, len(sorted))
		state.ColumnOrderModel = make([]schema.ColumnID, 0, len(sorted))
		for _, col := range sorted {
			state.ColumnVisibilityModel[col.ID] = col.Visible
			state.ColumnOrderModel = append(state.ColumnOrderModel, col.ID)
			if col.Width > 0 {
				state.ColumnWidthModel[col.ID] = schema.ClampWidth(col.Width)
			}
		}
	}
	if pageSize > 0 {
		state.PaginationModel = schema.PaginationModel{Page: 0, PageSize: pageSize}
	}
	return state
}

// ToColumns projects a ViewState onto the legacy column map. Entries of
// previous not named by the state's order keep their visibility and width
// and are ordered after the ordered ones.
func ToColumns(state schema.ViewState, previous map[schema.ColumnID]schema.ColumnSettings) map[schema.ColumnID]schema.ColumnSettings {
	out := make(map[schema.ColumnID]schema.ColumnSettings, len(state.ColumnOrderModel)+len(previous))
	for i, id := range state.ColumnOrderModel {
		col := schema.ColumnSettings{ID: id, Visible: state.Visible(id), Order: i}
		if width, ok := state.ColumnWidthModel[id]; ok {
			col.Width = schema.ClampWidth(width)
		} else if prev, ok := previous[id]; ok && prev.Width > 0 {
			col.Width = schema.ClampWidth(prev.Width)
		} else {
			col.Width = schema.DefaultColumnWidth
		}
		out[id] = col
	}
	next := len(state.ColumnOrderModel)
	for _, prev := range schema.SortedColumns(previous) {
		if _, ok := out[prev.ID]; ok {
			continue
		}
		if visible, ok := state.ColumnVisibilityModel[prev.ID]; ok {
			prev.Visible = visible
		}
		if width, ok := state.ColumnWidthModel[prev.ID]; ok {
			prev.Width = schema.ClampWidth(width)
		}
		prev.Order = next
		next++
		out[prev.ID] = prev
	}
	return out
}

// Merge combines defaults with a persisted state field by field; a persisted
// field wins whenever it is set.
func Merge(defaults, persisted schema.ViewState) schema.ViewState {
	out := defaults.Clone()
	p := persisted.Clone()
	if p.SortModel != nil {
		out.SortModel = p.SortModel
	}
	if p.FilterModel != nil {
		out.FilterModel = p.FilterModel
	}
	if p.ColumnVisibilityModel != nil {
		out.ColumnVisibilityModel = p.ColumnVisibilityModel
	}
	if p.PaginationModel.PageSize > 0 {
		out.PaginationModel = p.PaginationModel
	}
	if p.ColumnOrderModel != nil {
		out.ColumnOrderModel = p.ColumnOrderModel
	}
	if p.RowSelectionModel != nil {
		out.RowSelectionModel = p.RowSelectionModel
	}
	if p.ColumnWidthModel != nil {
		out.ColumnWidthModel = p.ColumnWidthModel
	}
	return out
}

// Upgrade builds the record written after deriving state from legacy data:
// the original columns map is kept and the derived state becomes dataGrid.
func Upgrade(record schema.TableSettings, state schema.ViewState) schema.TableSettings {
	out := record.Clone()
	grid := state.Clone()
	out.DataGrid = &grid
	out.SchemaVersion = schema.SettingsSchemaVersion
	if out.PageSize <= 0 {
		out.PageSize = state.PaginationModel.PageSize
	}
	return out
}

// Record builds the full persisted record for a live state, refreshing the
// legacy columns map and page size from it.
func Record(state schema.ViewState, previous map[schema.ColumnID]schema.ColumnSettings) schema.TableSettings {
	grid := state.Clone()
	return schema.TableSettings{
		SchemaVersion: schema.SettingsSchemaVersion,
		Columns:       ToColumns(state, previous),
		PageSize:      state.PaginationModel.PageSize,
		DataGrid:      &grid,
	}
}

// Defaults computes the default ViewState for a column definition list.
func Defaults(columns []schema.ColumnDef, pageSize int) schema.ViewState {
	if pageSize <= 0 {
		pageSize = schema.DefaultPageSize
	}
	state := schema.ViewState{
		SortModel:             schema.SortModel{},
		FilterModel:           &schema.FilterModel{Items: []schema.FilterItem{}},
		ColumnVisibilityModel: make(map[schema.ColumnID]bool, len(columns)),
		PaginationModel:       schema.PaginationModel{Page: 0, PageSize: pageSize},
		ColumnOrderModel:      schema.ColumnIDs(columns),
		RowSelectionModel:     schema.RowSelectionModel{},
		ColumnWidthModel:      make(map[schema.ColumnID]float64, len(columns)),
	}
	for _, col := range columns {
		state.ColumnVisibilityModel[col.ID] = !col.Hidden
		state.ColumnWidthModel[col.ID] = col.InitialWidth()
	}
	return state
}

// SeedOrder reconciles an order sequence with the column definitions: known
// ids keep their relative order, unknown ids are dropped and missing
// definitions are appended in definition order.
func SeedOrder(order []schema.ColumnID, columns []schema.ColumnDef) []schema.ColumnID {
	known := make(map[schema.ColumnID]struct{}, len(columns))
	for _, col := range columns {
		known[col.ID] = struct{}{}
	}
	out := make([]schema.ColumnID, 0, len(columns))
	seen := make(map[schema.ColumnID]struct{}, len(columns))
	for _, id := range order {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, col := range columns {
		if _, ok := seen[col.ID]; !ok {
			out = append(out, col.ID)
		}
	}
	return slices.Clip(out)
}
