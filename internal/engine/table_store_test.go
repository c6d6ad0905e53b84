package engine

import (
	"testing"

	"github.com/outlierql/diffql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTableStoreGetReturnsIndependentCopy covers spec.md §8 invariant 5: a
// column added to a fetched table must not leak back into a later fetch.
func TestTableStoreGetReturnsIndependentCopy(t *testing.T) {
	store := NewTableStore(nil)
	store.Import("t", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{1, 2, 3}},
	}))

	first, err := store.Get("t")
	require.NoError(t, err)
	mutated := first.AddColumn(&diffql.Column{Name: "y", Type: diffql.Double, Doubles: []float64{4, 5, 6}})
	assert.Len(t, mutated.Schema().Names(), 2)

	second, err := store.Get("t")
	require.NoError(t, err)
	assert.Len(t, second.Schema().Names(), 1, "addColumn on a fetched table must not leak back into the store")
}

func TestTableStoreGetMissingTable(t *testing.T) {
	store := NewTableStore(nil)
	_, err := store.Get("nope")
	require.Error(t, err)

	var qe *diffql.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, diffql.TableNotFound, qe.Kind)
}

func TestTableStoreImportReplacesExisting(t *testing.T) {
	store := NewTableStore(nil)
	store.Import("t", diffql.NewColumnTable([]*diffql.Column{
		{Name: "x", Type: diffql.Double, Doubles: []float64{1}},
	}))
	store.Import("t", diffql.NewColumnTable([]*diffql.Column{
		{Name: "y", Type: diffql.Double, Doubles: []float64{1, 2}},
	}))

	tbl, err := store.Get("t")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"y"}, tbl.Schema().Names())
}
