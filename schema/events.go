package schema

// ViewEventType describes a view state event.
type ViewEventType string

const (
	// ViewEventOpened indicates a table controller was hydrated.
	ViewEventOpened ViewEventType = "opened"
	// ViewEventChanged indicates one model of the view state changed.
	ViewEventChanged ViewEventType = "changed"
	// ViewEventReset indicates the view was reset to defaults and must be reloaded.
	ViewEventReset ViewEventType = "reset"
	// ViewEventClosed indicates a table controller was released.
	ViewEventClosed ViewEventType = "closed"
)

// ChangeKind names the model touched by a change.
type ChangeKind string

const (
	ChangeSort         ChangeKind = "sort"
	ChangeFilter       ChangeKind = "filter"
	ChangeVisibility   ChangeKind = "visibility"
	ChangePagination   ChangeKind = "pagination"
	ChangeRowSelection ChangeKind = "selection"
	ChangeColumnWidth  ChangeKind = "width"
	ChangeColumnOrder  ChangeKind = "order"
)

// ViewEvent is emitted by the core service after a view state transition.
type ViewEvent struct {
	UserID     UserID
	TableID    TableID
	Type       ViewEventType
	Change     ChangeKind
	State      ViewState
	Generation uint64
	// Reload asks the render surface to discard live overrides and rehydrate.
	Reload bool
}
