package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeUserID trims the id and maps an absent user to AnonymousUser.
// Allowed characters: letters, digits, '.', '_', '-', '@'.
func NormalizeUserID(userID UserID) (UserID, error) {
	trimmed := strings.TrimSpace(string(userID))
	if trimmed == "" {
		return AnonymousUser, nil
	}
	if !validIdent(trimmed, '@') {
		return "", ErrInvalidUser
	}
	return UserID(trimmed), nil
}

// NormalizeTableID validates a table identifier.
// Allowed characters: letters, digits, '.', '_', '-', ':'.
func NormalizeTableID(tableID TableID) (TableID, error) {
	trimmed := strings.TrimSpace(string(tableID))
	if trimmed == "" || !validIdent(trimmed, ':') {
		return "", ErrInvalidTable
	}
	return TableID(trimmed), nil
}

// ValidateColumnDefs checks that defs are non-empty with unique, non-blank ids.
func ValidateColumnDefs(defs []ColumnDef) error {
	if len(defs) == 0 {
		return ErrNoColumns
	}
	seen := make(map[ColumnID]struct{}, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(string(def.ID)) == "" {
			return ErrInvalidColumn
		}
		if _, ok := seen[def.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	return nil
}

// NormalizeSortDirection lower-cases and validates a sort direction.
func NormalizeSortDirection(value string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", ErrInvalidSort
	}
}

func validIdent(value string, extra rune) bool {
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r == '.' || r == '_' || r == '-' || r == extra {
			continue
		}
		return false
	}
	return true
}
