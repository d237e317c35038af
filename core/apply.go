package core

import (
	"maps"
	"slices"

	"pkt.systems/gridstate/internal/reorder"
	"pkt.systems/gridstate/schema"
)

// Command is a pure view state transition.
type Command func(state schema.ViewState) schema.ViewState

// ApplySort replaces the sort model. Items naming unknown or non-sortable
// columns are dropped, as are repeated fields; directions are normalized.
func ApplySort(model schema.SortModel, columns []schema.ColumnDef) Command {
	sortable := make(map[schema.ColumnID]bool, len(columns))
	for _, col := range columns {
		sortable[col.ID] = col.IsSortable()
	}
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		next := make(schema.SortModel, 0, len(model))
		seen := make(map[schema.ColumnID]struct{}, len(model))
		for _, item := range model {
			if !sortable[item.Field] {
				continue
			}
			if _, dup := seen[item.Field]; dup {
				continue
			}
			dir, err := schema.NormalizeSortDirection(string(item.Sort))
			if err != nil {
				continue
			}
			seen[item.Field] = struct{}{}
			next = append(next, schema.SortItem{Field: item.Field, Sort: dir})
		}
		out.SortModel = next
		return out
	}
}

// ApplyFilter replaces the filter model.
func ApplyFilter(model schema.FilterModel) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		filter := model
		filter.Items = slices.Clone(model.Items)
		if filter.Items == nil {
			filter.Items = []schema.FilterItem{}
		}
		filter.QuickFilterValues = slices.Clone(model.QuickFilterValues)
		out.FilterModel = &filter
		return out
	}
}

// ApplyVisibility replaces the column visibility model.
func ApplyVisibility(model map[schema.ColumnID]bool) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		out.ColumnVisibilityModel = maps.Clone(model)
		if out.ColumnVisibilityModel == nil {
			out.ColumnVisibilityModel = map[schema.ColumnID]bool{}
		}
		return out
	}
}

// ApplyPagination replaces the pagination model. A negative page becomes 0
// and a non-positive page size keeps the current size.
func ApplyPagination(model schema.PaginationModel) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		next := model
		if next.Page < 0 {
			next.Page = 0
		}
		if next.PageSize <= 0 {
			next.PageSize = state.PaginationModel.PageSize
		}
		if next.PageSize <= 0 {
			next.PageSize = schema.DefaultPageSize
		}
		out.PaginationModel = next
		return out
	}
}

// ApplyRowSelection replaces the row selection model, dropping duplicates.
func ApplyRowSelection(model schema.RowSelectionModel) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		next := make(schema.RowSelectionModel, 0, len(model))
		seen := make(map[schema.RowID]struct{}, len(model))
		for _, id := range model {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		out.RowSelectionModel = next
		return out
	}
}

// ApplyColumnWidth sets one column width, clamped to the minimum.
func ApplyColumnWidth(id schema.ColumnID, width float64) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		if out.ColumnWidthModel == nil {
			out.ColumnWidthModel = make(map[schema.ColumnID]float64, 1)
		}
		out.ColumnWidthModel[id] = schema.ClampWidth(width)
		return out
	}
}

// ApplyColumnOrder removes field from the order if present and inserts it at
// min(targetIndex, len). On an empty order the result holds only field;
// callers seed the order first.
func ApplyColumnOrder(field schema.ColumnID, targetIndex int) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		out.ColumnOrderModel = reorder.MoveTo(state.ColumnOrderModel, field, targetIndex)
		return out
	}
}

// SetColumnOrder replaces the order sequence.
func SetColumnOrder(order []schema.ColumnID) Command {
	return func(state schema.ViewState) schema.ViewState {
		out := state.Clone()
		out.ColumnOrderModel = slices.Clone(order)
		return out
	}
}
