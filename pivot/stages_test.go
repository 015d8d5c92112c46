package pivot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/datatable"
)

func TestResolveRowsFirstOccurrence(t *testing.T) {
	data := mustTable(t, []string{"id", "grp"},
		[]interface{}{2, "x"},
		[]interface{}{1, nil},
		[]interface{}{2, "x"},
		[]interface{}{1, nil},
		[]interface{}{1, "y"},
	)
	cols, err := columnsOf(data, []string{"id", "grp"})
	require.NoError(t, err)

	rows := resolveRows(data, cols)
	assert.Equal(t, []int{0, 1, 0, 1, 2}, rows.index)
	assert.Equal(t, 3, rows.count())
	assert.True(t, rows.keys[1][1].IsNull)
}

func TestResolveRowsWithoutIDColumns(t *testing.T) {
	data := mustTable(t, []string{"name", "value"},
		[]interface{}{"a", 1},
		[]interface{}{"b", 2},
	)
	rows := resolveRows(data, nil)
	assert.Equal(t, []int{0, 0}, rows.index)
	assert.Equal(t, 1, rows.count())
}

func TestIDColumnsKeepTableOrder(t *testing.T) {
	data := mustTable(t, []string{"a", "name", "b", "value", "c"},
		[]interface{}{1, "k", 2, 3, 4},
	)
	spec, err := BuildSpec(data, Cols("name"), Cols("value"), "", "_")
	require.NoError(t, err)

	pivoted := append(append([]string(nil), spec.KeyColumns...), spec.ValueColumns()...)
	names, err := idColumns(data, pivoted, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	names, err = idColumns(data, pivoted, Cols("c", "value", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names)
}

func TestResolveColumnsExcludesUnknownKeys(t *testing.T) {
	data := mustTable(t, []string{"k"},
		[]interface{}{1}, []interface{}{2}, []interface{}{3}, []interface{}{1},
	)
	keyCols, err := columnsOf(data, []string{"k"})
	require.NoError(t, err)

	// Text keys are coerced to the Int key column.
	entries := []SpecEntry{
		{Name: "three", Value: "v", Key: []datatable.Value{str("3")}},
		{Name: "one", Value: "v", Key: []datatable.Value{integer(1)}},
	}
	idx, err := resolveColumns(keyCols, entries, data.RowCount())
	require.NoError(t, err)
	assert.Equal(t, []int{1, -1, 0, 1}, idx)

	bad := []SpecEntry{{Name: "x", Value: "v", Key: []datatable.Value{str("x")}}}
	_, err = resolveColumns(keyCols, bad, data.RowCount())
	var castErr *TypeCastError
	require.True(t, errors.As(err, &castErr))
	assert.Equal(t, "k", castErr.Column)
}

func TestResolveCellsPassThrough(t *testing.T) {
	values := datatable.IntColumn("v", 10, 20, 30)
	cells, err := resolveCells(values, []int{0, 1, 1}, []int{0, 0, -1}, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, cells.offsets)
	assert.Equal(t, datatable.TypeInt, cells.dataType)
	assert.Equal(t, 0, cells.ambiguous)
	assert.Equal(t, int64(20), cells.values[1].Raw)
}

func TestResolveCellsCollisionsBecomeLists(t *testing.T) {
	values := datatable.IntColumn("v", 2, 4, 6, 8)
	cells, err := resolveCells(values, []int{0, 0, 0, 1}, []int{0, 0, 0, 0}, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, cells.ambiguous)
	assert.Equal(t, datatable.TypeList, cells.dataType)
	assert.Equal(t, datatable.TypeInt, cells.elemType)
	assert.Equal(t, "[2, 4, 6]", cells.values[0].String())
	assert.Equal(t, "[8]", cells.values[1].String())
}

func TestResolveCellsAggregatesEveryCell(t *testing.T) {
	values := datatable.IntColumn("v", 1, 2, 3)

	// Singletons stay Int, the collision yields a Float; the column is Float.
	halve := AggregatorFunc(func(vs []datatable.Value) (datatable.Value, error) {
		if len(vs) == 1 {
			return vs[0], nil
		}
		return Mean.Aggregate(vs)
	})
	cells, err := resolveCells(values, []int{0, 0, 1}, []int{0, 0, 0}, 2, halve)
	require.NoError(t, err)
	assert.Equal(t, datatable.TypeFloat, cells.dataType)
	assert.Equal(t, 1.5, cells.values[0].Raw)
	assert.Equal(t, 3.0, cells.values[1].Raw)

	boom := AggregatorFunc(func([]datatable.Value) (datatable.Value, error) {
		return datatable.Value{}, errors.New("boom")
	})
	_, err = resolveCells(values, []int{0, 0, 1}, []int{0, 0, 0}, 2, boom)
	assert.ErrorContains(t, err, "boom")

	mixed := AggregatorFunc(func(vs []datatable.Value) (datatable.Value, error) {
		if len(vs) == 1 {
			return str("one"), nil
		}
		return integer(2), nil
	})
	_, err = resolveCells(values, []int{0, 0, 1}, []int{0, 0, 0}, 2, mixed)
	assert.ErrorIs(t, err, ErrTypeCast)
}

func TestGridIsColumnMajor(t *testing.T) {
	g := newGrid(2, 3, datatable.NewNullValue(datatable.TypeInt))
	require.NoError(t, g.scatter([]int{1, 4}, []datatable.Value{integer(7), integer(9)}))

	v, err := g.at(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Raw)

	v, err = g.at(0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Raw)

	assert.True(t, g.column(1)[0].IsNull)
	assert.Len(t, g.column(2), 2)

	_, err = g.at(2, 0)
	assert.ErrorIs(t, err, errGridBounds)
	assert.ErrorIs(t, g.scatter([]int{6}, []datatable.Value{integer(1)}), errGridBounds)
}

func TestResolveFill(t *testing.T) {
	v, err := resolveFill("v", 0, datatable.TypeFloat, datatable.TypeString)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Raw)

	v, err = resolveFill("v", "12", datatable.TypeInt, datatable.TypeString)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v.Raw)

	v, err = resolveFill("v", []int{5}, datatable.TypeInt, datatable.TypeString)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Raw)

	v, err = resolveFill("v", 0, datatable.TypeList, datatable.TypeInt)
	require.NoError(t, err)
	assert.Equal(t, "[0]", v.String())

	_, err = resolveFill("v", []int{1, 2}, datatable.TypeInt, datatable.TypeString)
	var cardErr *FillCardinalityError
	require.True(t, errors.As(err, &cardErr))
	assert.Equal(t, "v", cardErr.Column)

	_, err = resolveFill("v", "abc", datatable.TypeInt, datatable.TypeString)
	var castErr *TypeCastError
	require.True(t, errors.As(err, &castErr))
	assert.Equal(t, datatable.TypeString, castErr.From)
	assert.Equal(t, datatable.TypeInt, castErr.To)
}

func TestAssembleFallsBackWhenSpecNameMissing(t *testing.T) {
	rows := &rowIdentity{index: []int{0}, keys: [][]datatable.Value{{}}}
	valueCols := []*datatable.Column{datatable.IntColumn("b", 2), datatable.IntColumn("a", 1)}

	spec := &Spec{Entries: []SpecEntry{{Name: "a"}, {Name: "b"}}}
	tbl, err := assemble(nil, rows, valueCols, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())

	spec = &Spec{Entries: []SpecEntry{{Name: "a"}, {Name: "c"}}}
	tbl, err = assemble(nil, rows, valueCols, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, tbl.ColumnNames())
}
