package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidUser indicates an invalid user identifier.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidTable indicates an invalid table identifier.
	ErrInvalidTable = errors.New("invalid table")
	// ErrInvalidColumn indicates an unknown or malformed column id.
	ErrInvalidColumn = errors.New("invalid column")
	// ErrDuplicateColumn indicates a column id defined twice.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrNoColumns indicates a table was opened without column definitions.
	ErrNoColumns = errors.New("no columns")
	// ErrTableNotOpen indicates a request for a table that was never opened.
	ErrTableNotOpen = errors.New("table not open")
	// ErrInvalidSort indicates a sort expression could not be parsed.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidFilter indicates a filter expression was rejected.
	ErrInvalidFilter = errors.New("invalid filter")
)
