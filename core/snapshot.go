package core

import (
	"context"
	"slices"

	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/schema"
)

// Snapshot bundles the live models, the resolved columns in display order
// and an initial-state shape for hydrating a grid widget.
func (c *Controller) Snapshot() schema.TableSnapshot {
	state := c.state.Clone()
	return schema.TableSnapshot{
		UserID:       c.userID,
		TableID:      c.tableID,
		State:        state,
		Columns:      ResolveColumns(c.columns, state),
		InitialState: BuildInitialState(c.columns, state),
		Generation:   c.generation,
	}
}

// ResolveColumns orders column definitions by the state's order sequence
// and applies visibility and width. Definitions missing from the order
// follow in definition order.
func ResolveColumns(columns []schema.ColumnDef, state schema.ViewState) []schema.ResolvedColumn {
	byID := make(map[schema.ColumnID]schema.ColumnDef, len(columns))
	for _, col := range columns {
		byID[col.ID] = col
	}
	out := make([]schema.ResolvedColumn, 0, len(columns))
	add := func(def schema.ColumnDef) {
		width := def.InitialWidth()
		if w, ok := state.ColumnWidthModel[def.ID]; ok {
			width = schema.ClampWidth(w)
		}
		out = append(out, schema.ResolvedColumn{
			ID:       def.ID,
			Header:   def.Header,
			Sortable: def.IsSortable(),
			Width:    width,
			Visible:  state.Visible(def.ID),
			Index:    len(out),
		})
	}
	seen := make(map[schema.ColumnID]struct{}, len(columns))
	for _, id := range state.ColumnOrderModel {
		def, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		add(def)
	}
	for _, def := range columns {
		if _, ok := seen[def.ID]; !ok {
			add(def)
		}
	}
	return out
}

// BuildInitialState maps a view state onto the grid widget hydration shape.
func BuildInitialState(columns []schema.ColumnDef, state schema.ViewState) schema.InitialState {
	resolved := ResolveColumns(columns, state)
	initial := schema.InitialState{
		Columns: schema.InitialColumns{
			ColumnVisibilityModel: make(map[schema.ColumnID]bool, len(resolved)),
			OrderedFields:         make([]schema.ColumnID, 0, len(resolved)),
			Dimensions:            make(map[schema.ColumnID]schema.ColumnDimension, len(resolved)),
		},
		Sorting:    schema.InitialSorting{SortModel: slices.Clone(state.SortModel)},
		Pagination: schema.InitialPagination{PaginationModel: state.PaginationModel},
	}
	if initial.Sorting.SortModel == nil {
		initial.Sorting.SortModel = schema.SortModel{}
	}
	for _, col := range resolved {
		initial.Columns.ColumnVisibilityModel[col.ID] = col.Visible
		initial.Columns.OrderedFields = append(initial.Columns.OrderedFields, col.ID)
		initial.Columns.Dimensions[col.ID] = schema.ColumnDimension{Width: col.Width}
	}
	if state.FilterModel != nil {
		initial.Filter.FilterModel = *state.Clone().FilterModel
	}
	if initial.Filter.FilterModel.Items == nil {
		initial.Filter.FilterModel.Items = []schema.FilterItem{}
	}
	return initial
}

// Handlers is the callback set a render surface wires into its grid.
type Handlers struct {
	OnSortModelChange             func(model schema.SortModel)
	OnFilterModelChange           func(model schema.FilterModel)
	OnColumnVisibilityModelChange func(model map[schema.ColumnID]bool)
	OnPaginationModelChange       func(model schema.PaginationModel)
	OnColumnOrderChange           func(field schema.ColumnID, targetIndex int)
	OnRowSelectionModelChange     func(model schema.RowSelectionModel)
	OnColumnWidthChange           func(field schema.ColumnID, width float64)
}

// Handlers binds the controller's change operations to ctx. Rejected
// changes are logged and leave the state untouched.
func (c *Controller) Handlers(ctx context.Context) Handlers {
	warn := func(op string, err error) {
		if err != nil {
			logx.WithUserTable(ctx, c.userID, c.tableID).Warn("view handler rejected change", "op", op, "err", err)
		}
	}
	return Handlers{
		OnSortModelChange: func(model schema.SortModel) { c.ChangeSort(ctx, model) },
		OnFilterModelChange: func(model schema.FilterModel) {
			warn("filter", c.ChangeFilter(ctx, model))
		},
		OnColumnVisibilityModelChange: func(model map[schema.ColumnID]bool) { c.ChangeVisibility(ctx, model) },
		OnPaginationModelChange:       func(model schema.PaginationModel) { c.ChangePagination(ctx, model) },
		OnColumnOrderChange: func(field schema.ColumnID, targetIndex int) {
			warn("order", c.ChangeColumnOrder(ctx, field, targetIndex))
		},
		OnRowSelectionModelChange: func(model schema.RowSelectionModel) { c.ChangeRowSelection(ctx, model) },
		OnColumnWidthChange: func(field schema.ColumnID, width float64) {
			warn("width", c.ChangeColumnWidth(ctx, field, width))
		},
	}
}
