package pivot

import (
	"sort"

	"github.com/magpierre/pivotwider/datatable"
)

// rowIdentity maps input rows to output rows.
type rowIdentity struct {
	// index maps each input row to its output row.
	index []int
	// keys holds the id tuple of each output row.
	keys [][]datatable.Value
}

// count returns the number of output rows.
func (r *rowIdentity) count() int {
	return len(r.keys)
}

// resolveRows assigns each input row the position of its id tuple among the
// distinct id tuples, in first-occurrence order. Without id columns every
// input row maps to a single output row.
func resolveRows(data *datatable.Table, idCols []*datatable.Column) *rowIdentity {
	n := data.RowCount()
	index := make([]int, n)

	if len(idCols) == 0 {
		return &rowIdentity{index: index, keys: [][]datatable.Value{{}}}
	}

	ix := newTupleIndex(n)
	for row := 0; row < n; row++ {
		index[row] = ix.add(project(idCols, row))
	}
	return &rowIdentity{index: index, keys: ix.tuples}
}

// idColumns returns the id column names in table order: the selected
// columns, or every column, minus the names_from and values_from columns.
func idColumns(data *datatable.Table, pivoted []string, sel datatable.ColumnSelector) ([]string, error) {
	consumed := make(map[string]bool, len(pivoted))
	for _, name := range pivoted {
		consumed[name] = true
	}

	candidates := data.ColumnNames()
	if sel != nil {
		selected, err := datatable.SelectNames(sel, data)
		if err != nil {
			return nil, err
		}
		candidates = selected
	}

	var names []string
	for _, name := range candidates {
		if !consumed[name] {
			names = append(names, name)
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		a, _ := data.ColumnIndex(names[i])
		b, _ := data.ColumnIndex(names[j])
		return a < b
	})
	return names, nil
}
