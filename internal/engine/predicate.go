package engine

import (
	"fmt"

	"github.com/outlierql/diffql"
)

// EvaluatePredicateMask compiles a boolean expression tree into a row
// bitmask over d (spec.md §4.2). It is a direct structural descendant of
// the teacher's CompositeCondition/KvCondition ToSqlClauses recursion
// (condition.go): one function per node kind, leaves validating
// operator/type compatibility before producing output — except each leaf
// here emits a Bitset instead of a SQL fragment.
//
// A String column represents SQL NULL as the empty string, matching the
// default CSV loader's empty-field convention (csvload); there is no
// separate null bitmap on Column (spec.md §3 does not define one).
func EvaluatePredicateMask(d *diffql.ColumnTable, e diffql.Expression, udfs diffql.UDFRegistry) (*diffql.Bitset, error) {
	switch v := e.(type) {
	case *diffql.Not:
		m, err := EvaluatePredicateMask(d, v.Expr, udfs)
		if err != nil {
			return nil, err
		}
		return m.Not(), nil
	case *diffql.LogicalBinary:
		left, err := EvaluatePredicateMask(d, v.Left, udfs)
		if err != nil {
			return nil, err
		}
		right, err := EvaluatePredicateMask(d, v.Right, udfs)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case diffql.LogicAnd:
			return left.And(right), nil
		case diffql.LogicOr:
			return left.Or(right), nil
		default:
			return nil, diffql.NewQueryError(diffql.UnsupportedOperator, fmt.Sprintf("unsupported logical operator %q", v.Op))
		}
	case *diffql.Comparison:
		return evaluateComparison(d, v, udfs)
	default:
		return nil, diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported WHERE expression node %T", e))
	}
}

func evaluateComparison(d *diffql.ColumnTable, c *diffql.Comparison, udfs diffql.UDFRegistry) (*diffql.Bitset, error) {
	// Both sides literal: evaluate once, produce an all-ones or all-zeros
	// mask (spec.md §4.2, scenario S6).
	if isLiteral(c.Left) && isLiteral(c.Right) {
		ok, err := compareLiterals(c.Left, c.Right, c.Op)
		if err != nil {
			return nil, err
		}
		if ok {
			return diffql.FullBitset(d.NumRows()), nil
		}
		return diffql.NewBitset(d.NumRows()), nil
	}

	// Either argument order is accepted: normalize so columnSide/funcSide is
	// the non-literal operand and literalSide is the literal.
	colSide, funcSide, litSide, op, err := normalizeComparison(c)
	if err != nil {
		return nil, err
	}

	if funcSide != nil {
		return evaluateFunctionComparison(d, funcSide, litSide, op, udfs)
	}
	return evaluateColumnComparison(d, colSide, litSide, op)
}

func isLiteral(e diffql.Expression) bool {
	switch e.(type) {
	case *diffql.StringLiteral, *diffql.DoubleLiteral, *diffql.NullLiteral:
		return true
	default:
		return false
	}
}

// normalizeComparison identifies which side is the Identifier/Dereference
// (colSide), which is the FunctionCall (funcSide), and which is the
// literal, accepting either argument order (spec.md §4.2).
func normalizeComparison(c *diffql.Comparison) (colSide *diffql.Identifier, funcSide *diffql.FunctionCall, litSide diffql.Expression, op diffql.ComparisonOp, err error) {
	op = c.Op
	left, right := c.Left, c.Right

	pick := func(a, b diffql.Expression) (*diffql.Identifier, *diffql.FunctionCall, diffql.Expression, bool) {
		switch v := a.(type) {
		case *diffql.Identifier:
			if isLiteral(b) {
				return v, nil, b, true
			}
		case *diffql.Dereference:
			if isLiteral(b) {
				return &diffql.Identifier{Name: v.Name}, nil, b, true
			}
		case *diffql.FunctionCall:
			if isLiteral(b) {
				return nil, v, b, true
			}
		}
		return nil, nil, nil, false
	}

	if id, fn, lit, ok := pick(left, right); ok {
		return id, fn, lit, op, nil
	}
	if id, fn, lit, ok := pick(right, left); ok {
		// The literal is on the left: mirror the operator so that
		// `lit op col` is evaluated as `col op' lit`.
		switch op {
		case diffql.OpLt:
			op = diffql.OpGt
		case diffql.OpLte:
			op = diffql.OpGte
		case diffql.OpGt:
			op = diffql.OpLt
		case diffql.OpGte:
			op = diffql.OpLte
		}
		return id, fn, lit, op, nil
	}
	return nil, nil, nil, op, diffql.NewQueryError(diffql.ParseOrShapeError, "comparison must have one Identifier/FunctionCall side and one literal side")
}

func evaluateColumnComparison(d *diffql.ColumnTable, id *diffql.Identifier, lit diffql.Expression, op diffql.ComparisonOp) (*diffql.Bitset, error) {
	col := d.ColumnByName(id.Name)
	if col == nil {
		return nil, diffql.NewQueryError(diffql.ColumnNotFound, fmt.Sprintf("column %q not found", id.Name)).WithIdentifier(id.Name)
	}

	switch col.Type {
	case diffql.Double:
		dv, ok := lit.(*diffql.DoubleLiteral)
		if !ok {
			return nil, diffql.NewQueryError(diffql.TypeMismatch, fmt.Sprintf("column %q is double, literal is not", id.Name)).WithIdentifier(id.Name)
		}
		return maskDoubles(col.Doubles, dv.Value, op)
	case diffql.String:
		switch sv := lit.(type) {
		case *diffql.StringLiteral:
			return maskStrings(col.Strings, sv.Value, op)
		case *diffql.NullLiteral:
			return maskStrings(col.Strings, "", op)
		default:
			return nil, diffql.NewQueryError(diffql.TypeMismatch, fmt.Sprintf("column %q is string, literal is not", id.Name)).WithIdentifier(id.Name)
		}
	default:
		return nil, diffql.NewQueryError(diffql.TypeMismatch, fmt.Sprintf("column %q has unsupported type", id.Name)).WithIdentifier(id.Name)
	}
}

func evaluateFunctionComparison(d *diffql.ColumnTable, fn *diffql.FunctionCall, lit diffql.Expression, op diffql.ComparisonOp, udfs diffql.UDFRegistry) (*diffql.Bitset, error) {
	dv, ok := lit.(*diffql.DoubleLiteral)
	if !ok {
		return nil, diffql.NewQueryError(diffql.TypeMismatch, fmt.Sprintf("UDF %q must compare against a double literal", fn.Name)).WithIdentifier(fn.Name)
	}
	if udfs == nil {
		return nil, diffql.NewQueryError(diffql.UnsupportedOperator, "no UDF registry configured").WithIdentifier(fn.Name)
	}
	udf, err := udfs.GetFunction(fn.Name, fn.Arg)
	if err != nil {
		return nil, err
	}
	vals, err := udf(d)
	if err != nil {
		return nil, err
	}
	return maskDoubles(vals, dv.Value, op)
}

func maskDoubles(vals []float64, lit float64, op diffql.ComparisonOp) (*diffql.Bitset, error) {
	m := diffql.NewBitset(len(vals))
	cmp, err := doubleComparator(op)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if cmp(v, lit) {
			m.Set(i)
		}
	}
	return m, nil
}

func maskStrings(vals []string, lit string, op diffql.ComparisonOp) (*diffql.Bitset, error) {
	m := diffql.NewBitset(len(vals))
	cmp, err := stringComparator(op)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if cmp(v, lit) {
			m.Set(i)
		}
	}
	return m, nil
}

func doubleComparator(op diffql.ComparisonOp) (func(a, b float64) bool, error) {
	switch op {
	case diffql.OpEq:
		return func(a, b float64) bool { return a == b }, nil
	case diffql.OpNeq, diffql.OpIsDistinctFrom:
		return func(a, b float64) bool { return a != b }, nil
	case diffql.OpLt:
		return func(a, b float64) bool { return a < b }, nil
	case diffql.OpLte:
		return func(a, b float64) bool { return a <= b }, nil
	case diffql.OpGt:
		return func(a, b float64) bool { return a > b }, nil
	case diffql.OpGte:
		return func(a, b float64) bool { return a >= b }, nil
	default:
		return nil, diffql.NewQueryError(diffql.UnsupportedOperator, fmt.Sprintf("unsupported comparison operator %q", op))
	}
}

func stringComparator(op diffql.ComparisonOp) (func(a, b string) bool, error) {
	switch op {
	case diffql.OpEq:
		return func(a, b string) bool { return a == b }, nil
	case diffql.OpNeq, diffql.OpIsDistinctFrom:
		return func(a, b string) bool { return a != b }, nil
	case diffql.OpLt:
		return func(a, b string) bool { return a < b }, nil
	case diffql.OpLte:
		return func(a, b string) bool { return a <= b }, nil
	case diffql.OpGt:
		return func(a, b string) bool { return a > b }, nil
	case diffql.OpGte:
		return func(a, b string) bool { return a >= b }, nil
	default:
		return nil, diffql.NewQueryError(diffql.UnsupportedOperator, fmt.Sprintf("unsupported comparison operator %q", op))
	}
}

func compareLiterals(left, right diffql.Expression, op diffql.ComparisonOp) (bool, error) {
	switch l := left.(type) {
	case *diffql.DoubleLiteral:
		r, ok := right.(*diffql.DoubleLiteral)
		if !ok {
			return false, diffql.NewQueryError(diffql.TypeMismatch, "literal comparison type mismatch")
		}
		cmp, err := doubleComparator(op)
		if err != nil {
			return false, err
		}
		return cmp(l.Value, r.Value), nil
	case *diffql.StringLiteral:
		var rv string
		switch r := right.(type) {
		case *diffql.StringLiteral:
			rv = r.Value
		case *diffql.NullLiteral:
			rv = ""
		default:
			return false, diffql.NewQueryError(diffql.TypeMismatch, "literal comparison type mismatch")
		}
		cmp, err := stringComparator(op)
		if err != nil {
			return false, err
		}
		return cmp(l.Value, rv), nil
	case *diffql.NullLiteral:
		return compareLiterals(&diffql.StringLiteral{Value: ""}, right, op)
	default:
		return false, diffql.NewQueryError(diffql.ParseOrShapeError, "unsupported literal kind")
	}
}
