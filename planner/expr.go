// Package planner evaluates WHERE clauses against rows and chooses between a
// full scan, a direct id lookup, or a bounded range scan (spec §4.6). The
// choice depends only on the shape of the WHERE clause; the table's
// statistics set each plan's estimated cost but never change which plan is
// chosen, and no competing candidate plans are scored against each other.
package planner

import (
	"fmt"

	"vqlitedb/table"
)

// Column names one of the three fixed fields a WHERE clause may reference.
type Column string

const (
	ColumnID       Column = "id"
	ColumnUsername Column = "username"
	ColumnEmail    Column = "email"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Expr is a node in a WHERE expression tree: either a single comparison
// (Basic) or a boolean combination of two sub-expressions (And/Or).
type Expr interface {
	Eval(row table.Row) (bool, error)
}

// Basic compares one row field against a literal value.
type Basic struct {
	Column Column
	Op     Op
	Value  string // compared as a uint32 for ColumnID, as a string otherwise
}

// And evaluates Left and, only if true, Right (short-circuit).
type And struct {
	Left, Right Expr
}

// Or evaluates Left and, only if false, Right (short-circuit).
type Or struct {
	Left, Right Expr
}

func (e *Basic) Eval(row table.Row) (bool, error) {
	switch e.Column {
	case ColumnID:
		want, err := parseUint32(e.Value)
		if err != nil {
			return false, err
		}
		return compareUint32(row.ID, e.Op, want)
	case ColumnUsername:
		return compareString(row.UsernameString(), e.Op, e.Value)
	case ColumnEmail:
		return compareString(row.EmailString(), e.Op, e.Value)
	default:
		return false, fmt.Errorf("planner: unknown column %q", e.Column)
	}
}

func (e *And) Eval(row table.Row) (bool, error) {
	l, err := e.Left.Eval(row)
	if err != nil || !l {
		return false, err
	}
	return e.Right.Eval(row)
}

func (e *Or) Eval(row table.Row) (bool, error) {
	l, err := e.Left.Eval(row)
	if err != nil || l {
		return l, err
	}
	return e.Right.Eval(row)
}

func parseUint32(s string) (uint32, error) {
	var v uint32
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("planner: %q is not a valid id literal: %w", s, err)
	}
	return v, nil
}

func compareUint32(got uint32, op Op, want uint32) (bool, error) {
	switch op {
	case OpEq:
		return got == want, nil
	case OpNeq:
		return got != want, nil
	case OpLt:
		return got < want, nil
	case OpLte:
		return got <= want, nil
	case OpGt:
		return got > want, nil
	case OpGte:
		return got >= want, nil
	default:
		return false, fmt.Errorf("planner: unknown operator %q", op)
	}
}

func compareString(got string, op Op, want string) (bool, error) {
	switch op {
	case OpEq:
		return got == want, nil
	case OpNeq:
		return got != want, nil
	case OpLt:
		return got < want, nil
	case OpLte:
		return got <= want, nil
	case OpGt:
		return got > want, nil
	case OpGte:
		return got >= want, nil
	default:
		return false, fmt.Errorf("planner: unknown operator %q", op)
	}
}
