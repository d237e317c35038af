package schema

import (
	"maps"
	"slices"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortItem sorts by one column.
type SortItem struct {
	Field ColumnID      `json:"field"`
	Sort  SortDirection `json:"sort"`
}

// SortModel is the ordered list of active sort items.
type SortModel []SortItem

// FilterItem is one column filter.
type FilterItem struct {
	ID       string   `json:"id,omitempty"`
	Field    ColumnID `json:"field"`
	Operator string   `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// FilterModel holds the active filters.
type FilterModel struct {
	Items             []FilterItem `json:"items"`
	LogicOperator     string       `json:"logicOperator,omitempty"`
	QuickFilterValues []string     `json:"quickFilterValues,omitempty"`

	// Expression is an optional AIP-160 filter over column ids.
	Expression string `json:"expression,omitempty"`
}

// PaginationModel selects the visible page.
type PaginationModel struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// RowSelectionModel lists selected row ids.
type RowSelectionModel []RowID

// ViewState is the structured view configuration of one table.
// A nil model (or a zero page size) means "not set" and defers to defaults.
type ViewState struct {
	SortModel             SortModel            `json:"sortModel"`
	FilterModel           *FilterModel         `json:"filterModel"`
	ColumnVisibilityModel map[ColumnID]bool    `json:"columnVisibilityModel"`
	PaginationModel       PaginationModel      `json:"paginationModel"`
	ColumnOrderModel      []ColumnID           `json:"columnOrderModel"`
	RowSelectionModel     RowSelectionModel    `json:"rowSelectionModel"`
	ColumnWidthModel      map[ColumnID]float64 `json:"columnWidthModel"`
}

// IsEmpty reports whether no model is set.
func (v ViewState) IsEmpty() bool {
	return v.SortModel == nil &&
		v.FilterModel == nil &&
		v.ColumnVisibilityModel == nil &&
		v.PaginationModel.PageSize <= 0 &&
		v.ColumnOrderModel == nil &&
		v.RowSelectionModel == nil &&
		v.ColumnWidthModel == nil
}

// Clone returns a deep copy.
func (v ViewState) Clone() ViewState {
	out := ViewState{
		SortModel:             slices.Clone(v.SortModel),
		ColumnVisibilityModel: maps.Clone(v.ColumnVisibilityModel),
		PaginationModel:       v.PaginationModel,
		ColumnOrderModel:      slices.Clone(v.ColumnOrderModel),
		RowSelectionModel:     slices.Clone(v.RowSelectionModel),
		ColumnWidthModel:      maps.Clone(v.ColumnWidthModel),
	}
	if v.FilterModel != nil {
		filter := *v.FilterModel
		filter.Items = slices.Clone(v.FilterModel.Items)
		filter.QuickFilterValues = slices.Clone(v.FilterModel.QuickFilterValues)
		out.FilterModel = &filter
	}
	return out
}

// Visible reports whether a column is visible; absent entries are visible.
func (v ViewState) Visible(id ColumnID) bool {
	visible, ok := v.ColumnVisibilityModel[id]
	return !ok || visible
}
