package schema

// ResolvedColumn is a column definition with its live order, width and visibility.
type ResolvedColumn struct {
	ID       ColumnID `json:"id"`
	Header   string   `json:"header"`
	Sortable bool     `json:"sortable"`
	Width    float64  `json:"width"`
	Visible  bool     `json:"visible"`
	Index    int      `json:"index"`
}

// ColumnDimension is the per-column sizing entry of InitialState.
type ColumnDimension struct {
	Width float64 `json:"width"`
}

// InitialColumns hydrates column layout on first paint.
type InitialColumns struct {
	ColumnVisibilityModel map[ColumnID]bool            `json:"columnVisibilityModel"`
	OrderedFields         []ColumnID                   `json:"orderedFields"`
	Dimensions            map[ColumnID]ColumnDimension `json:"dimensions"`
}

// InitialSorting hydrates sorting.
type InitialSorting struct {
	SortModel SortModel `json:"sortModel"`
}

// InitialFilter hydrates filtering.
type InitialFilter struct {
	FilterModel FilterModel `json:"filterModel"`
}

// InitialPagination hydrates pagination.
type InitialPagination struct {
	PaginationModel PaginationModel `json:"paginationModel"`
}

// InitialState is the shape a third-party grid widget expects on first paint.
type InitialState struct {
	Columns    InitialColumns    `json:"columns"`
	Sorting    InitialSorting    `json:"sorting"`
	Filter     InitialFilter     `json:"filter"`
	Pagination InitialPagination `json:"pagination"`
}

// TableSnapshot bundles the live models of one table for a render surface.
type TableSnapshot struct {
	UserID       UserID           `json:"userId"`
	TableID      TableID          `json:"tableId"`
	State        ViewState        `json:"state"`
	Columns      []ResolvedColumn `json:"columns"`
	InitialState InitialState     `json:"initialState"`
	Generation   uint64           `json:"generation"`
}

// VisibleColumns returns the resolved columns that are shown, in order.
func (s TableSnapshot) VisibleColumns() []ResolvedColumn {
	out := make([]ResolvedColumn, 0, len(s.Columns))
	for _, col := range s.Columns {
		if col.Visible {
			out = append(out, col)
		}
	}
	return out
}

// Window is the output of one virtualization pass.
type Window struct {
	Rows          []VirtualRow `json:"rows"`
	PaddingTop    float64      `json:"paddingTop"`
	PaddingBottom float64      `json:"paddingBottom"`
	TotalSize     float64      `json:"totalSize"`
	ScrollOffset  float64      `json:"scrollOffset"`
	// Empty marks a zero-row dataset; render the empty state, not spacers.
	Empty bool `json:"empty"`
}
