package schema

// UserID identifies the user a table view belongs to.
type UserID string

// TableID identifies a table view within a user's scope.
type TableID string

// ColumnID identifies a column (the grid "field").
type ColumnID string

// RowID is the stable identity of a row used for selection state.
type RowID string

// AnonymousUser scopes settings when no user is known.
const AnonymousUser UserID = "anonymous"

// MinColumnWidth is the smallest width a column may be resized to.
const MinColumnWidth = 50

// DefaultColumnWidth applies to columns without an initial width.
const DefaultColumnWidth = 150

// DefaultPageSize applies when neither settings nor defaults carry a page size.
const DefaultPageSize = 25

// ColumnDef is a column definition supplied by the hosting page.
// The engine orders, sizes and hides columns; it never invents them.
type ColumnDef struct {
	ID       ColumnID `json:"id"`
	Header   string   `json:"header"`
	Sortable *bool    `json:"sortable,omitempty"`
	Width    float64  `json:"width,omitempty"`
	Hidden   bool     `json:"hidden,omitempty"`
}

// IsSortable reports whether the column accepts sort items. Columns are
// sortable unless explicitly disabled.
func (c ColumnDef) IsSortable() bool {
	return c.Sortable == nil || *c.Sortable
}

// InitialWidth returns the definition width clamped to the minimum, or the default.
func (c ColumnDef) InitialWidth() float64 {
	if c.Width <= 0 {
		return DefaultColumnWidth
	}
	return ClampWidth(c.Width)
}

// ClampWidth enforces MinColumnWidth.
func ClampWidth(width float64) float64 {
	if width < MinColumnWidth {
		return MinColumnWidth
	}
	return width
}

// ColumnIDs returns the ids of defs in definition order.
func ColumnIDs(defs []ColumnDef) []ColumnID {
	ids := make([]ColumnID, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	return ids
}

// VirtualRow is one rendered row of a virtualized window. Never persisted.
type VirtualRow struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Size returns the row height.
func (r VirtualRow) Size() float64 {
	return r.End - r.Start
}
