package schema

// Table lifecycle.

// OpenTableRequest hydrates a table controller for a user.
type OpenTableRequest struct {
	UserID   UserID
	TableID  TableID
	Columns  []ColumnDef
	Defaults *ViewState
}

// OpenTableResponse reports the hydrated snapshot.
type OpenTableResponse struct {
	Snapshot TableSnapshot
	// Migrated is set when a legacy record was upgraded during the open.
	Migrated bool
}

// TableRef addresses an open table.
type TableRef struct {
	UserID  UserID
	TableID TableID
}

// GetSnapshotRequest asks for the live snapshot of an open table.
type GetSnapshotRequest struct {
	TableRef
}

// SnapshotResponse carries the snapshot after any view operation.
type SnapshotResponse struct {
	Snapshot TableSnapshot
}

// CloseTableRequest releases a table controller.
type CloseTableRequest struct {
	TableRef
}

// CloseTableResponse is empty.
type CloseTableResponse struct{}

// ResetTableRequest resets a table view to defaults.
type ResetTableRequest struct {
	TableRef
}

// Model changes.

// ChangeSortRequest replaces the sort model. When OrderBy is set it is parsed
// as an AIP-132 order_by string and takes precedence over Model.
type ChangeSortRequest struct {
	TableRef
	Model   SortModel
	OrderBy string
}

// ChangeFilterRequest replaces the filter model.
type ChangeFilterRequest struct {
	TableRef
	Model FilterModel
}

// ChangeVisibilityRequest replaces the column visibility model.
type ChangeVisibilityRequest struct {
	TableRef
	Model map[ColumnID]bool
}

// ChangePaginationRequest replaces the pagination model.
type ChangePaginationRequest struct {
	TableRef
	Model PaginationModel
}

// ChangeRowSelectionRequest replaces the row selection model.
type ChangeRowSelectionRequest struct {
	TableRef
	Model RowSelectionModel
}

// ChangeColumnWidthRequest resizes one column.
type ChangeColumnWidthRequest struct {
	TableRef
	ColumnID ColumnID
	Width    float64
}

// ChangeColumnOrderRequest moves a column to a target index.
type ChangeColumnOrderRequest struct {
	TableRef
	ColumnID    ColumnID
	TargetIndex int
}

// MoveColumnRequest is a pointer drop of Source onto Target.
type MoveColumnRequest struct {
	TableRef
	Source ColumnID
	Target ColumnID
}

// NudgeColumnRequest is a keyboard move by Delta slots.
type NudgeColumnRequest struct {
	TableRef
	ColumnID ColumnID
	Delta    int
}

// Virtualization.

// GetWindowRequest computes the visible row window of an open table.
type GetWindowRequest struct {
	TableRef
	RowCount     int
	ScrollOffset float64
	ViewportSize float64
	// RowHeight overrides the configured estimate when > 0.
	RowHeight float64
	// Overscan overrides the configured overscan when > 0.
	Overscan int
}

// GetWindowResponse reports the window.
type GetWindowResponse struct {
	Window Window
}

// MeasureRowsRequest reports measured heights keyed by row index.
type MeasureRowsRequest struct {
	TableRef
	Sizes map[int]float64
}

// MeasureRowsResponse reports the refined total size.
type MeasureRowsResponse struct {
	TotalSize float64
}
