package core

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/ordering"

	"pkt.systems/gridstate/schema"
)

// ParseOrderBy converts an AIP-132 order_by string ("name, amount desc")
// into a sort model.
func ParseOrderBy(orderBy string) (schema.SortModel, error) {
	if strings.TrimSpace(orderBy) == "" {
		return schema.SortModel{}, nil
	}
	var parsed ordering.OrderBy
	if err := parsed.UnmarshalString(orderBy); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidSort, err)
	}
	model := make(schema.SortModel, 0, len(parsed.Fields))
	for _, field := range parsed.Fields {
		dir := schema.SortAsc
		if field.Desc {
			dir = schema.SortDesc
		}
		model = append(model, schema.SortItem{Field: schema.ColumnID(field.Path), Sort: dir})
	}
	return model, nil
}

// FormatOrderBy renders a sort model as an AIP-132 order_by string that
// ParseOrderBy reads back.
func FormatOrderBy(model schema.SortModel) string {
	parts := make([]string, 0, len(model))
	for _, item := range model {
		part := string(item.Field)
		if item.Sort == schema.SortDesc {
			part += " desc"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
