package pivot

import (
	"github.com/magpierre/pivotwider/datatable"
)

// resolveColumns matches every input row's names_from tuple against the keys
// of one value column's entries and returns the entry position per row.
// Rows whose tuple is not in entries get -1 and contribute nothing.
//
// Entry keys are coerced to the types of keyCols first, so a spec read from
// text still matches typed data.
func resolveColumns(keyCols []*datatable.Column, entries []SpecEntry, rows int) ([]int, error) {
	positions := make(map[string]int, len(entries))
	for pos, e := range entries {
		key := make([]datatable.Value, len(keyCols))
		for k, col := range keyCols {
			v, err := datatable.Coerce(e.Key[k], col.Type)
			if err != nil {
				return nil, &TypeCastError{Column: col.Name, From: e.Key[k].Type, To: col.Type, Err: err}
			}
			key[k] = v
		}
		k := datatable.TupleKey(key)
		if _, dup := positions[k]; !dup {
			positions[k] = pos
		}
	}

	index := make([]int, rows)
	for row := 0; row < rows; row++ {
		if pos, ok := positions[datatable.TupleKey(project(keyCols, row))]; ok {
			index[row] = pos
		} else {
			index[row] = -1
		}
	}
	return index, nil
}
