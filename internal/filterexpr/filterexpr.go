// Package filterexpr parses AIP-160 filter expressions over table columns
// and evaluates them against row values.
package filterexpr

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"pkt.systems/gridstate/schema"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter is a checked expression bound to a column set.
type Filter struct {
	Expression string
	// Fields lists the columns the expression references, in first-use order.
	Fields []schema.ColumnID

	root *expr.Expr
}

// Declarations returns the filter declarations for a column set. Columns
// whose ids are not valid identifiers cannot be referenced and are skipped.
func Declarations(columns []schema.ColumnID) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, id := range columns {
		if !identPattern.MatchString(string(id)) {
			continue
		}
		opts = append(opts, filtering.DeclareIdent(string(id), filtering.TypeString))
	}
	return filtering.NewDeclarations(opts...)
}

// Parse checks expression against columns. An empty expression yields a nil
// Filter that matches every row.
func Parse(expression string, columns []schema.ColumnID) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	decls, err := Declarations(columns)
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(expression, decls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidFilter, err)
	}
	root := parsed.CheckedExpr.GetExpr()
	f := &Filter{Expression: expression, root: root}
	if err := f.collect(root); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate reports whether expression is acceptable for columns.
func Validate(expression string, columns []schema.ColumnID) error {
	_, err := Parse(expression, columns)
	return err
}

// Match evaluates the filter against one row. A nil filter matches.
// Values compare numerically when both sides parse as numbers.
func (f *Filter) Match(row map[schema.ColumnID]string) bool {
	if f == nil || f.root == nil {
		return true
	}
	ok, err := eval(f.root, row)
	return err == nil && ok
}

func (f *Filter) collect(e *expr.Expr) error {
	if e == nil {
		return nil
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		id := schema.ColumnID(kind.IdentExpr.Name)
		if !slices.Contains(f.Fields, id) {
			f.Fields = append(f.Fields, id)
		}
	case *expr.Expr_CallExpr:
		for _, arg := range kind.CallExpr.Args {
			if err := f.collect(arg); err != nil {
				return err
			}
		}
	case *expr.Expr_ConstExpr:
	default:
		return fmt.Errorf("%w: unsupported expression %T", schema.ErrInvalidFilter, kind)
	}
	return nil
}

func eval(e *expr.Expr, row map[schema.ColumnID]string) (bool, error) {
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return false, fmt.Errorf("expected call, got %T", e.ExprKind)
	}
	args := call.CallExpr.Args
	switch call.CallExpr.Function {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd, "_&&_":
		for _, arg := range args {
			ok, err := eval(arg, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case filtering.FunctionOr, "_||_":
		for _, arg := range args {
			ok, err := eval(arg, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case filtering.FunctionNot, "!_":
		if len(args) != 1 {
			return false, fmt.Errorf("NOT requires 1 argument")
		}
		ok, err := eval(args[0], row)
		return !ok, err
	case filtering.FunctionHas:
		return compare(args, row, func(left, right string) bool {
			return strings.Contains(strings.ToLower(left), strings.ToLower(right))
		}, nil)
	case filtering.FunctionEquals:
		return compare(args, row, func(l, r string) bool { return l == r }, func(c int) bool { return c == 0 })
	case filtering.FunctionNotEquals:
		return compare(args, row, func(l, r string) bool { return l != r }, func(c int) bool { return c != 0 })
	case filtering.FunctionLessThan:
		return compare(args, row, func(l, r string) bool { return l < r }, func(c int) bool { return c < 0 })
	case filtering.FunctionLessEquals:
		return compare(args, row, func(l, r string) bool { return l <= r }, func(c int) bool { return c <= 0 })
	case filtering.FunctionGreaterThan:
		return compare(args, row, func(l, r string) bool { return l > r }, func(c int) bool { return c > 0 })
	case filtering.FunctionGreaterEquals:
		return compare(args, row, func(l, r string) bool { return l >= r }, func(c int) bool { return c >= 0 })
	default:
		return false, fmt.Errorf("unsupported function: %s", call.CallExpr.Function)
	}
}

func compare(args []*expr.Expr, row map[schema.ColumnID]string, text func(string, string) bool, numeric func(int) bool) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("comparison requires 2 arguments")
	}
	left, err := operand(args[0], row)
	if err != nil {
		return false, err
	}
	right, err := operand(args[1], row)
	if err != nil {
		return false, err
	}
	if numeric != nil {
		if l, lerr := strconv.ParseFloat(left, 64); lerr == nil {
			if r, rerr := strconv.ParseFloat(right, 64); rerr == nil {
				switch {
				case l < r:
					return numeric(-1), nil
				case l > r:
					return numeric(1), nil
				default:
					return numeric(0), nil
				}
			}
		}
	}
	return text(left, right), nil
}

func operand(e *expr.Expr, row map[schema.ColumnID]string) (string, error) {
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return row[schema.ColumnID(kind.IdentExpr.Name)], nil
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.ConstantKind.(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return strconv.FormatInt(c.Int64Value, 10), nil
		case *expr.Constant_Uint64Value:
			return strconv.FormatUint(c.Uint64Value, 10), nil
		case *expr.Constant_DoubleValue:
			return strconv.FormatFloat(c.DoubleValue, 'f', -1, 64), nil
		case *expr.Constant_BoolValue:
			return strconv.FormatBool(c.BoolValue), nil
		default:
			return "", fmt.Errorf("unsupported constant type: %T", c)
		}
	default:
		return "", fmt.Errorf("expected identifier or constant, got %T", kind)
	}
}
