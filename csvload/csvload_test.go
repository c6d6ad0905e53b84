package csvload

import (
	"strings"
	"testing"

	"github.com/outlierql/diffql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportParsesTypedColumns(t *testing.T) {
	csv := "state,metric\nCA,10\nTX,1.5\nFL,2\n"
	imp := NewImporter(nil)

	table, result, err := imp.Import(strings.NewReader(csv), []ColumnSpec{
		{Name: "state", Type: diffql.String},
		{Name: "metric", Type: diffql.Double},
	})
	require.NoError(t, err)
	require.NotNil(t, table)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Errors)

	assert.Equal(t, []string{"CA", "TX", "FL"}, table.ColumnByName("state").Strings)
	assert.Equal(t, []float64{10, 1.5, 2}, table.ColumnByName("metric").Doubles)
}

func TestImportSkipsRowWithUnparseableDouble(t *testing.T) {
	csv := "state,metric\nCA,10\nTX,not-a-number\nFL,2\n"
	imp := NewImporter(nil)

	table, result, err := imp.Import(strings.NewReader(csv), []ColumnSpec{
		{Name: "state", Type: diffql.String},
		{Name: "metric", Type: diffql.Double},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].RowNumber)
	assert.Equal(t, "metric", result.Errors[0].Column)
	assert.Equal(t, "not-a-number", result.Errors[0].RawValue)

	assert.Equal(t, []string{"CA", "FL"}, table.ColumnByName("state").Strings)
	assert.Equal(t, []float64{10, 2}, table.ColumnByName("metric").Doubles)
}

func TestImportFailsFastOnHeaderMissingDeclaredColumn(t *testing.T) {
	csv := "state\nCA\n"
	imp := NewImporter(nil)

	table, result, err := imp.Import(strings.NewReader(csv), []ColumnSpec{
		{Name: "state", Type: diffql.String},
		{Name: "metric", Type: diffql.Double},
	})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.Nil(t, result)

	var qerr *diffql.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, diffql.ImportError, qerr.Kind)
}

func TestImportFailsFastOnUnreadableStream(t *testing.T) {
	imp := NewImporter(nil)
	table, result, err := imp.Import(&errorReader{}, []ColumnSpec{{Name: "state", Type: diffql.String}})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.Nil(t, result)
}

type errorReader struct{}

func (r *errorReader) Read(p []byte) (int, error) {
	return 0, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "simulated read failure" }
