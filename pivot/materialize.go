package pivot

import (
	"fmt"
	"reflect"

	"github.com/magpierre/pivotwider/datatable"
)

// materialize scatters resolved cells into a dense grid prefilled with fill
// and splits it into one output column per entry.
func materialize(cells *resolvedCells, rows int, entries []SpecEntry, fill datatable.Value) ([]*datatable.Column, error) {
	g := newGrid(rows, len(entries), fill)
	if err := g.scatter(cells.offsets, cells.values); err != nil {
		return nil, err
	}

	cols := make([]*datatable.Column, len(entries))
	for j, e := range entries {
		col, err := datatable.NewColumn(e.Name, cells.dataType, g.column(j))
		if err != nil {
			return nil, fmt.Errorf("materialize %q: %w", e.Name, err)
		}
		col.ElemType = cells.elemType
		cols[j] = col
	}
	return cols, nil
}

// assemble joins the id columns and the value columns. Value columns are
// put in spec order unless one of the spec's names is absent.
func assemble(idCols []*datatable.Column, rows *rowIdentity, valueCols []*datatable.Column, spec *Spec) (*datatable.Table, error) {
	out := make([]*datatable.Column, 0, len(idCols)+len(valueCols))

	for i, src := range idCols {
		values := make([]datatable.Value, rows.count())
		for r, key := range rows.keys {
			values[r] = key[i]
		}
		col, err := datatable.NewColumn(src.Name, src.Type, values)
		if err != nil {
			return nil, err
		}
		col.ElemType = src.ElemType
		out = append(out, col)
	}

	byName := make(map[string]*datatable.Column, len(valueCols))
	for _, col := range valueCols {
		byName[col.Name] = col
	}
	ordered := make([]*datatable.Column, 0, len(valueCols))
	for _, name := range spec.Names() {
		col, ok := byName[name]
		if !ok {
			ordered = valueCols
			break
		}
		ordered = append(ordered, col)
	}

	return datatable.NewTableWithRows(rows.count(), append(out, ordered...)...)
}

// checkFill reports a FillCardinalityError unless raw is a single value.
// A one-element slice counts as a single value.
func checkFill(column string, raw interface{}) error {
	if v, ok := raw.(datatable.Value); ok {
		if v.Type == datatable.TypeList && len(v.List()) != 1 {
			return &FillCardinalityError{Column: column}
		}
		return nil
	}
	if _, ok := raw.([]byte); ok {
		return nil
	}
	rv := reflect.ValueOf(raw)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() != 1 {
		return &FillCardinalityError{Column: column}
	}
	if rv.Kind() == reflect.Map {
		return &FillCardinalityError{Column: column}
	}
	return nil
}

// resolveFill converts the configured fill to the output type of a value
// column. Missing cells of a list column are filled with a one-element list.
func resolveFill(column string, raw interface{}, dataType, elemType datatable.DataType) (datatable.Value, error) {
	if err := checkFill(column, raw); err != nil {
		return datatable.Value{}, err
	}

	v, err := scalarOf(raw)
	if err != nil {
		return datatable.Value{}, &TypeCastError{Column: column, From: datatable.TypeStruct, To: dataType, Err: err}
	}

	target := dataType
	if dataType == datatable.TypeList {
		target = elemType
	}
	cast, err := datatable.Coerce(v, target)
	if err != nil {
		return datatable.Value{}, &TypeCastError{Column: column, From: v.Type, To: target, Err: err}
	}
	if dataType == datatable.TypeList {
		return datatable.NewValue([]datatable.Value{cast}, datatable.TypeList), nil
	}
	return cast, nil
}

// scalarOf converts a fill to a Value, unwrapping one-element slices.
func scalarOf(raw interface{}) (datatable.Value, error) {
	if v, ok := raw.(datatable.Value); ok {
		if v.Type == datatable.TypeList {
			return v.List()[0], nil
		}
		return v, nil
	}
	if _, ok := raw.([]byte); !ok {
		rv := reflect.ValueOf(raw)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			raw = rv.Index(0).Interface()
		}
	}
	return datatable.ValueOf(raw)
}
