package engine

import (
	"context"
	"testing"

	"github.com/outlierql/diffql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecuteQuerySpecFiltersAndProjects covers spec.md scenario S1.
func TestExecuteQuerySpecFiltersAndProjects(t *testing.T) {
	disp := newDispatcher()
	disp.Store.Import("d", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{1, 2, 3, 4, 5}},
	}))

	where := &diffql.LogicalBinary{
		Left:  &diffql.Comparison{Left: &diffql.Identifier{Name: "x"}, Op: diffql.OpGt, Right: &diffql.DoubleLiteral{Value: 2}},
		Op:    diffql.LogicAnd,
		Right: &diffql.Comparison{Left: &diffql.Identifier{Name: "x"}, Op: diffql.OpLte, Right: &diffql.DoubleLiteral{Value: 4}},
	}
	body := &diffql.QuerySpec{
		From:   &diffql.TableRef{Name: "d"},
		Where:  where,
		Select: []diffql.SelectItem{diffql.SingleColumn{Expr: &diffql.Identifier{Name: "x"}}},
	}

	result, err := disp.Execute(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, result.ColumnByName("x").Doubles)
}

// TestLiteralVsLiteralPredicate covers spec.md scenario S6.
func TestLiteralVsLiteralPredicate(t *testing.T) {
	disp := newDispatcher()
	disp.Store.Import("d", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{1, 2, 3}},
	}))

	allTrue := &diffql.QuerySpec{
		From:  &diffql.TableRef{Name: "d"},
		Where: &diffql.Comparison{Left: &diffql.DoubleLiteral{Value: 1}, Op: diffql.OpEq, Right: &diffql.DoubleLiteral{Value: 1}},
	}
	result, err := disp.Execute(context.Background(), allTrue)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NumRows())

	allFalse := &diffql.QuerySpec{
		From:  &diffql.TableRef{Name: "d"},
		Where: &diffql.Comparison{Left: &diffql.DoubleLiteral{Value: 1}, Op: diffql.OpEq, Right: &diffql.DoubleLiteral{Value: 2}},
	}
	result, err = disp.Execute(context.Background(), allFalse)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumRows())
}

// TestTableStoreImportReturnsIndependentCopy covers spec.md invariant 5.
func TestTableStoreImportReturnsIndependentCopy(t *testing.T) {
	store := NewTableStore(nil)
	store.Import("d", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{1, 2, 3}},
	}))

	fetched, err := store.Get("d")
	require.NoError(t, err)
	_ = fetched.AddColumn(&diffql.Column{Name: "y", Type: diffql.Double, Doubles: []float64{0, 0, 0}})

	again, err := store.Get("d")
	require.NoError(t, err)
	assert.Nil(t, again.ColumnByName("y"))
}

// TestUDFColumnAvailableInWhereAndOrderBy covers spec.md invariant 7: a
// UDF-derived column materialized under its SELECT alias is usable in WHERE
// and ORDER BY, and a column referenced only in WHERE (absent from SELECT)
// still filters correctly.
func TestUDFColumnAvailableInWhereAndOrderBy(t *testing.T) {
	disp := newDispatcher()
	disp.Store.Import("d", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{-3, 1, -5, 2}},
		{Name: "keep", Type: diffql.Double, Doubles: []float64{1, 1, 0, 1}},
	}))

	body := &diffql.QuerySpec{
		From: &diffql.TableRef{Name: "d"},
		Where: &diffql.LogicalBinary{
			Left:  &diffql.Comparison{Left: &diffql.Identifier{Name: "absx"}, Op: diffql.OpGt, Right: &diffql.DoubleLiteral{Value: 0}},
			Op:    diffql.LogicAnd,
			Right: &diffql.Comparison{Left: &diffql.Identifier{Name: "keep"}, Op: diffql.OpEq, Right: &diffql.DoubleLiteral{Value: 1}},
		},
		Select: []diffql.SelectItem{
			diffql.SingleColumn{Expr: &diffql.FunctionCall{Name: "abs", Arg: "x"}, Alias: "absx"},
		},
		OrderBy: &diffql.OrderByClause{Expr: &diffql.Identifier{Name: "absx"}, Ascending: true},
	}

	result, err := disp.Execute(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, 3, result.NumRows())
	assert.Equal(t, []float64{1, 2, 3}, result.ColumnByName("absx").Doubles)
}
