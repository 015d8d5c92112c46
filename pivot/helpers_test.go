package pivot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/datatable"
)

// mustTable builds a table from row records or fails the test.
func mustTable(t *testing.T, names []string, rows ...[]interface{}) *datatable.Table {
	t.Helper()
	tbl, err := datatable.NewTableFromRows(names, rows...)
	require.NoError(t, err)
	return tbl
}

// column returns the display form of every value in the named column.
func column(t *testing.T, tbl *datatable.Table, name string) []string {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	out := make([]string, col.Len())
	for i, v := range col.Values {
		out[i] = v.String()
	}
	return out
}

func str(s string) datatable.Value {
	return datatable.NewValue(s, datatable.TypeString)
}

func integer(i int64) datatable.Value {
	return datatable.NewValue(i, datatable.TypeInt)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(datatable.DateLayout, s)
	require.NoError(t, err)
	return d
}
