// Package format renders table views as text.
package format

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"pkt.systems/gridstate/internal/filterexpr"
	"pkt.systems/gridstate/schema"
)

// PixelsPerChar converts a column width to a cell width in characters.
const PixelsPerChar = 8

// Apply filters, sorts and pages rows the way the view state describes.
// The returned count is the number of rows that passed the filters.
func Apply(rows []Row, columns []schema.ColumnDef, state schema.ViewState) ([]Row, int, error) {
	out, err := Filter(rows, columns, state.FilterModel)
	if err != nil {
		return nil, 0, err
	}
	Sort(out, state.SortModel)
	matched := len(out)
	return Page(out, state.PaginationModel), matched, nil
}

// Filter keeps the rows accepted by the filter items, quick filter values
// and expression of model. A nil model keeps every row.
func Filter(rows []Row, columns []schema.ColumnDef, model *schema.FilterModel) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	if model == nil {
		return append(out, rows...), nil
	}
	expression, err := filterexpr.Parse(model.Expression, schema.ColumnIDs(columns))
	if err != nil {
		return nil, err
	}
	or := strings.EqualFold(model.LogicOperator, "or")
	for _, row := range rows {
		if !matchItems(row, model.Items, or) {
			continue
		}
		if !matchQuick(row, columns, model.QuickFilterValues) {
			continue
		}
		if !expression.Match(row.Cells) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func matchItems(row Row, items []schema.FilterItem, or bool) bool {
	if len(items) == 0 {
		return true
	}
	for _, item := range items {
		ok := matchItem(row.Cells[item.Field], item)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

func matchItem(cell string, item schema.FilterItem) bool {
	value := ""
	if item.Value != nil {
		value = fmt.Sprint(item.Value)
	}
	lc, lv := strings.ToLower(cell), strings.ToLower(value)
	switch item.Operator {
	case "isEmpty":
		return cell == ""
	case "isNotEmpty":
		return cell != ""
	}
	if value == "" {
		return true
	}
	switch item.Operator {
	case "contains", "":
		return strings.Contains(lc, lv)
	case "doesNotContain":
		return !strings.Contains(lc, lv)
	case "equals", "is", "=":
		return compareCells(cell, value) == 0
	case "doesNotEqual", "not", "!=":
		return compareCells(cell, value) != 0
	case "startsWith":
		return strings.HasPrefix(lc, lv)
	case "endsWith":
		return strings.HasSuffix(lc, lv)
	case ">", "after":
		return compareCells(cell, value) > 0
	case ">=", "onOrAfter":
		return compareCells(cell, value) >= 0
	case "<", "before":
		return compareCells(cell, value) < 0
	case "<=", "onOrBefore":
		return compareCells(cell, value) <= 0
	default:
		return true
	}
}

func matchQuick(row Row, columns []schema.ColumnDef, values []string) bool {
	for _, value := range values {
		needle := strings.ToLower(strings.TrimSpace(value))
		if needle == "" {
			continue
		}
		found := false
		for _, col := range columns {
			if strings.Contains(strings.ToLower(row.Cells[col.ID]), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Sort orders rows in place by model. Equal rows keep their input order.
func Sort(rows []Row, model schema.SortModel) {
	if len(model) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, item := range model {
			c := compareCells(a.Cells[item.Field], b.Cells[item.Field])
			if c == 0 {
				continue
			}
			if item.Sort == schema.SortDesc {
				return -c
			}
			return c
		}
		return 0
	})
}

// Page slices one page out of rows. A page past the end is empty.
func Page(rows []Row, model schema.PaginationModel) []Row {
	if model.PageSize <= 0 {
		return rows
	}
	start := max(model.Page, 0) * model.PageSize
	if start >= len(rows) {
		return []Row{}
	}
	end := min(start+model.PageSize, len(rows))
	return rows[start:end]
}

func compareCells(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(a, b)
}

// Render writes the visible columns of snapshot in display order. Selected
// rows are marked with an asterisk and cells are cut to the column width.
func Render(w io.Writer, snapshot schema.TableSnapshot, rows []Row) error {
	columns := snapshot.VisibleColumns()
	selected := make(map[schema.RowID]struct{}, len(snapshot.State.RowSelectionModel))
	for _, id := range snapshot.State.RowSelectionModel {
		selected[id] = struct{}{}
	}
	sorted := make(map[schema.ColumnID]schema.SortDirection, len(snapshot.State.SortModel))
	for _, item := range snapshot.State.SortModel {
		sorted[item.Field] = item.Sort
	}

	header := make([]string, 0, len(columns)+1)
	header = append(header, "")
	for _, col := range columns {
		label := col.Header
		if label == "" {
			label = string(col.ID)
		}
		switch sorted[col.ID] {
		case schema.SortAsc:
			label += " ^"
		case schema.SortDesc:
			label += " v"
		}
		header = append(header, label)
	}

	table := tablewriter.NewTable(w)
	table.Header(header)
	for _, row := range rows {
		cells := make([]string, 0, len(columns)+1)
		mark := ""
		if _, ok := selected[row.ID]; ok {
			mark = "*"
		}
		cells = append(cells, mark)
		for _, col := range columns {
			cells = append(cells, Truncate(row.Cells[col.ID], int(col.Width/PixelsPerChar)))
		}
		if err := table.Append(cells); err != nil {
			return fmt.Errorf("append row %s: %w", row.ID, err)
		}
	}
	return table.Render()
}

// Truncate cuts value to limit runes, ending with an ellipsis when cut.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
