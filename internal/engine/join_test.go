package engine

import (
	"testing"

	"github.com/outlierql/diffql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersTable() *diffql.ColumnTable {
	return diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.String, Strings: []string{"1", "2", "3"}},
		{Name: "name", Type: diffql.String, Strings: []string{"alice", "bob", "carol"}},
	})
}

func newOrdersTable() *diffql.ColumnTable {
	return diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.String, Strings: []string{"1", "1", "2"}},
		{Name: "name", Type: diffql.String, Strings: []string{"widget", "gadget", "gizmo"}},
	})
}

// TestInnerJoinUsingQualifiesConflictingColumns covers spec.md scenario S4:
// both sides have a non-join "name" column, so both copies are qualified by
// table name in the output while the join column "id" is not.
func TestInnerJoinUsingQualifiesConflictingColumns(t *testing.T) {
	users := newUsersTable()
	orders := newOrdersTable()

	out, err := InnerJoin("users", users, "orders", orders, &diffql.UsingCriteria{Columns: []string{"id"}})
	require.NoError(t, err)

	names := out.Schema().Names()
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "orders.name")
	assert.Contains(t, names, "users.name")
	assert.NotContains(t, names, "name")

	// alice(1), bob(2) each match; carol(3) has no matching order.
	assert.Equal(t, 3, out.NumRows())
}

func TestInnerJoinOnRequiresBareIdentifier(t *testing.T) {
	users := newUsersTable()
	orders := newOrdersTable()

	_, err := InnerJoin("users", users, "orders", orders, &diffql.OnCriteria{Expr: &diffql.StringLiteral{Value: "id"}})
	require.Error(t, err)

	var qe *diffql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, diffql.InvalidJoin, qe.Kind)
}

func TestInnerJoinUsingRejectsMultipleColumns(t *testing.T) {
	users := newUsersTable()
	orders := newOrdersTable()

	_, err := InnerJoin("users", users, "orders", orders, &diffql.UsingCriteria{Columns: []string{"id", "name"}})
	require.Error(t, err)

	var qe *diffql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, diffql.InvalidJoin, qe.Kind)
}

func TestInnerJoinNaturalRequiresExactlyOneSharedColumn(t *testing.T) {
	users := newUsersTable()
	orders := newOrdersTable()

	// users and orders share both "id" and "name" - ambiguous, InvalidJoin.
	_, err := InnerJoin("users", users, "orders", orders, &diffql.NaturalCriteria{})
	require.Error(t, err)

	var qe *diffql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, diffql.InvalidJoin, qe.Kind)
}

func TestInnerJoinNaturalSingleSharedColumn(t *testing.T) {
	users := diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.String, Strings: []string{"1", "2"}},
		{Name: "city", Type: diffql.String, Strings: []string{"nyc", "sf"}},
	})
	orders := diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.String, Strings: []string{"1", "2"}},
		{Name: "total", Type: diffql.Double, Doubles: []float64{9.5, 3.0}},
	})

	out, err := InnerJoin("users", users, "orders", orders, &diffql.NaturalCriteria{})
	require.NoError(t, err)

	names := out.Schema().Names()
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "city")
	assert.Contains(t, names, "total")
	assert.Equal(t, 2, out.NumRows())
}

// TestInnerJoinTypeMismatchNamesBothTypes covers spec.md §9 note 3: the
// reported message must name both differing types rather than repeat the
// column name three times.
func TestInnerJoinTypeMismatchNamesBothTypes(t *testing.T) {
	left := diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.String, Strings: []string{"1"}},
	})
	right := diffql.NewColumnTable([]*diffql.Column{
		{Name: "id", Type: diffql.Double, Doubles: []float64{1}},
	})

	_, err := InnerJoin("left", left, "right", right, &diffql.UsingCriteria{Columns: []string{"id"}})
	require.Error(t, err)

	var qe *diffql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, diffql.TypeMismatch, qe.Kind)
	assert.Contains(t, qe.Error(), "string")
	assert.Contains(t, qe.Error(), "double")
}

func TestInnerJoinCommutativeUpToQualification(t *testing.T) {
	users := newUsersTable()
	orders := newOrdersTable()

	ab, err := InnerJoin("users", users, "orders", orders, &diffql.UsingCriteria{Columns: []string{"id"}})
	require.NoError(t, err)
	ba, err := InnerJoin("orders", orders, "users", users, &diffql.UsingCriteria{Columns: []string{"id"}})
	require.NoError(t, err)

	assert.Equal(t, ab.NumRows(), ba.NumRows())
	assert.ElementsMatch(t, ab.Schema().Names(), ba.Schema().Names())
}
