package pivot

import (
	"fmt"

	"github.com/magpierre/pivotwider/datatable"
)

// resolvedCells holds at most one value per output cell of a value column.
type resolvedCells struct {
	// offsets are linear grid offsets, row + rows*col, in first-contribution order.
	offsets []int
	// values[i] is the content of the cell at offsets[i].
	values []datatable.Value
	// dataType is the output column type; elemType its element type for lists.
	dataType datatable.DataType
	elemType datatable.DataType
	// ambiguous counts cells with more than one contributor.
	ambiguous int
}

// resolveCells groups the values of one value column by output cell.
//
// Without an aggregator, cells pass through unchanged when every cell has a
// single contributor; otherwise every cell becomes a list of its contributors
// in input order. The List aggregator always produces lists. Any other
// aggregator is applied to every cell, singletons included, and its results
// are cast to their common type.
func resolveCells(values *datatable.Column, rowIdx, colIdx []int, rows int, agg Aggregator) (*resolvedCells, error) {
	groups := make(map[int]int)
	var offsets []int
	var members [][]datatable.Value

	for i, col := range colIdx {
		if col < 0 {
			continue
		}
		off := rowIdx[i] + rows*col
		g, ok := groups[off]
		if !ok {
			g = len(offsets)
			groups[off] = g
			offsets = append(offsets, off)
			members = append(members, nil)
		}
		members[g] = append(members[g], values.Values[i])
	}

	out := &resolvedCells{
		offsets:  offsets,
		values:   make([]datatable.Value, len(offsets)),
		dataType: values.Type,
		elemType: values.ElemType,
	}
	for _, m := range members {
		if len(m) > 1 {
			out.ambiguous++
		}
	}

	switch {
	case agg == nil && out.ambiguous == 0:
		for g, m := range members {
			out.values[g] = m[0]
		}

	case agg == nil || isListAggregator(agg):
		out.dataType, out.elemType = datatable.TypeList, values.Type
		for g, m := range members {
			out.values[g] = datatable.NewValue(m, datatable.TypeList)
		}

	default:
		for g, m := range members {
			v, err := agg.Aggregate(m)
			if err != nil {
				return nil, fmt.Errorf("values_fn for %q: %w", values.Name, err)
			}
			out.values[g] = v
		}
		if err := out.unify(values.Name); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// unify casts aggregated values to their common type.
func (c *resolvedCells) unify(column string) error {
	if len(c.values) == 0 {
		return nil
	}
	dataType, elemType, err := commonValueType(c.values)
	if err != nil {
		return &TypeCastError{Column: column, From: c.values[0].Type, To: c.values[0].Type, Err: err}
	}
	for i, v := range c.values {
		cast, err := datatable.Cast(v, dataType)
		if err != nil {
			return &TypeCastError{Column: column, From: v.Type, To: dataType, Err: err}
		}
		c.values[i] = cast
	}
	c.dataType, c.elemType = dataType, elemType
	return nil
}
