package format

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"pkt.systems/gridstate/schema"
)

// Row is one data row keyed by column id.
type Row struct {
	ID    schema.RowID
	Cells map[schema.ColumnID]string
}

// ReadRows decodes a YAML (or JSON) sequence of mappings. The idField value
// becomes the row id; rows without it are numbered by position.
func ReadRows(r io.Reader, idField schema.ColumnID) ([]Row, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	for i, entry := range raw {
		cells := make(map[schema.ColumnID]string, len(entry))
		for key, value := range entry {
			cells[schema.ColumnID(key)] = cellString(value)
		}
		id := schema.RowID(cells[idField])
		if id == "" {
			id = schema.RowID(strconv.Itoa(i))
		}
		rows = append(rows, Row{ID: id, Cells: cells})
	}
	return rows, nil
}

// ColumnsFromRows derives column definitions from the keys of the first row,
// sorted by name.
func ColumnsFromRows(rows []Row) []schema.ColumnDef {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rows[0].Cells))
	for id := range rows[0].Cells {
		ids = append(ids, string(id))
	}
	slices.Sort(ids)
	defs := make([]schema.ColumnDef, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, schema.ColumnDef{ID: schema.ColumnID(id), Header: id})
	}
	return defs
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
