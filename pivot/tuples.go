package pivot

import (
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// tupleIndex assigns dense ids to distinct value tuples in first-occurrence
// order. Tuples are hashed by their canonical key, so NA matches NA.
type tupleIndex struct {
	ids    map[string]int
	tuples [][]datatable.Value
}

func newTupleIndex(capacity int) *tupleIndex {
	return &tupleIndex{ids: make(map[string]int, capacity)}
}

// add returns the id of t, assigning the next id if t is new.
func (ix *tupleIndex) add(t []datatable.Value) int {
	k := datatable.TupleKey(t)
	if id, ok := ix.ids[k]; ok {
		return id
	}
	id := len(ix.tuples)
	ix.ids[k] = id
	ix.tuples = append(ix.tuples, t)
	return id
}

// columnsOf resolves column names to the table's columns.
func columnsOf(data *datatable.Table, names []string) ([]*datatable.Column, error) {
	cols := make([]*datatable.Column, len(names))
	for i, name := range names {
		col, err := data.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// project returns the values of cols at row.
func project(cols []*datatable.Column, row int) []datatable.Value {
	t := make([]datatable.Value, len(cols))
	for i, col := range cols {
		t[i] = col.Values[row]
	}
	return t
}

// uniqueTuples returns the distinct projections of data onto cols, in
// first-occurrence order.
func uniqueTuples(data *datatable.Table, cols []*datatable.Column) [][]datatable.Value {
	ix := newTupleIndex(data.RowCount())
	for row := 0; row < data.RowCount(); row++ {
		ix.add(project(cols, row))
	}
	return ix.tuples
}

// joinKey renders a key tuple for use in a column name. Nulls render as NA.
func joinKey(key []datatable.Value, sep string) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}
