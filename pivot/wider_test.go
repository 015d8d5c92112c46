package pivot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/datatable"
)

func TestWiderFillsMissingCells(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 10},
		[]interface{}{2, "b", 5},
	)

	out, err := Wider(data, WithValuesFill(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a", "b"}, out.ColumnNames())
	assert.Equal(t, []string{"10", "0"}, column(t, out, "a"))
	assert.Equal(t, []string{"0", "5"}, column(t, out, "b"))

	out, err = Wider(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA", "5"}, column(t, out, "b"))
	colType, err := out.ColumnType(2)
	require.NoError(t, err)
	assert.Equal(t, datatable.TypeInt, colType)
}

func TestWiderPerColumnFillTakesPrecedence(t *testing.T) {
	data := mustTable(t, []string{"id", "key", "x", "y"},
		[]interface{}{1, "a", 1.5, "p"},
		[]interface{}{2, "b", 2.5, "q"},
	)

	out, err := Wider(data,
		WithNamesFrom(Cols("key")),
		WithValuesFrom(Cols("x", "y")),
		WithValuesFill("0"),
		WithValuesFillFor("y", "none"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x_a", "x_b", "y_a", "y_b"}, out.ColumnNames())
	assert.Equal(t, []string{"1.5", "0"}, column(t, out, "x_a"))
	assert.Equal(t, []string{"none", "q"}, column(t, out, "y_b"))
}

func TestWiderAggregatesWithMean(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 2},
		[]interface{}{1, "a", 4},
		[]interface{}{1, "a", 6},
	)

	var warnings []Warning
	out, err := Wider(data, WithValuesFn(Mean), WithWarningHandler(func(w Warning) {
		warnings = append(warnings, w)
	}))
	require.NoError(t, err)

	cell, err := out.Cell(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, cell.Raw)
	assert.Empty(t, warnings)
}

func TestWiderDefaultCollisionPolicy(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 2},
		[]interface{}{1, "a", 4},
		[]interface{}{1, "a", 6},
		[]interface{}{2, "a", 1},
		[]interface{}{2, "b", 3},
	)

	var logs bytes.Buffer
	var warnings []Warning
	out, err := Wider(data,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithWarningHandler(func(w Warning) { warnings = append(warnings, w) }),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"[2, 4, 6]", "[1]"}, column(t, out, "a"))
	assert.Equal(t, []string{"NA", "[3]"}, column(t, out, "b"))

	col, err := out.Column("a")
	require.NoError(t, err)
	assert.Equal(t, datatable.TypeList, col.Type)
	assert.Equal(t, datatable.TypeInt, col.ElemType)

	require.Len(t, warnings, 1)
	assert.Equal(t, CodeAmbiguousCells, warnings[0].Code)
	assert.Equal(t, "value", warnings[0].Column)
	assert.Equal(t, 1, warnings[0].Cells)
	assert.Contains(t, warnings[0].String(), "pivot.List")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestWiderListAggregatorIsSilent(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 2},
		[]interface{}{1, "a", 4},
	)

	warned := false
	out, err := Wider(data,
		WithValuesFnFor("value", List),
		WithWarningHandler(func(Warning) { warned = true }),
	)
	require.NoError(t, err)
	assert.False(t, warned)
	assert.Equal(t, []string{"[2, 4]"}, column(t, out, "a"))
}

func TestWiderFillOnListColumn(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 2},
		[]interface{}{1, "a", 4},
		[]interface{}{2, "b", 1},
	)

	out, err := Wider(data, WithValuesFill(0), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, err)
	assert.Equal(t, []string{"[2, 4]", "[0]"}, column(t, out, "a"))
}

func TestWiderPerColumnAggregatorOverridesDefault(t *testing.T) {
	data := mustTable(t, []string{"id", "key", "x", "y"},
		[]interface{}{1, "a", 1, 10},
		[]interface{}{1, "a", 3, 20},
	)

	out, err := Wider(data,
		WithNamesFrom(Cols("key")),
		WithValuesFrom(Cols("x", "y")),
		WithValuesFn(Sum),
		WithValuesFnFor("y", Max),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, column(t, out, "x_a"))
	assert.Equal(t, []string{"20"}, column(t, out, "y_a"))
}

func TestWiderNameDerivation(t *testing.T) {
	data := mustTable(t, []string{"id", "variable", "estimate", "moe"},
		[]interface{}{"001", "x", 10.5, 1.2},
		[]interface{}{"002", "x", 11.5, 1.4},
	)

	out, err := Wider(data, WithNamesFrom(Cols("variable")), WithValuesFrom(Cols("estimate", "moe")))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "estimate_x", "moe_x"}, out.ColumnNames())
	assert.Equal(t, 2, out.RowCount())
}

func TestWiderColumnOrderFollowsSpec(t *testing.T) {
	data := mustTable(t, []string{"id", "key", "zeta", "alpha"},
		[]interface{}{1, "y", 1, 2},
		[]interface{}{1, "x", 3, 4},
	)

	out, err := Wider(data, WithNamesFrom(Cols("key")), WithValuesFrom(Cols("zeta", "alpha")), WithNamesSep("."))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "zeta.y", "zeta.x", "alpha.y", "alpha.x"}, out.ColumnNames())

	spec := &Spec{
		KeyColumns: []string{"key"},
		Entries: []SpecEntry{
			{Name: "second", Value: "alpha", Key: []datatable.Value{str("x")}},
			{Name: "first", Value: "zeta", Key: []datatable.Value{str("y")}},
			{Name: "third", Value: "zeta", Key: []datatable.Value{str("x")}},
		},
	}
	out, err = Wider(data, WithSpec(spec))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "second", "first", "third"}, out.ColumnNames())
	assert.Equal(t, []string{"4"}, column(t, out, "second"))
	assert.Equal(t, []string{"3"}, column(t, out, "third"))
}

func TestWiderWithoutIDColumnsHasOneRow(t *testing.T) {
	data := mustTable(t, []string{"name", "value"},
		[]interface{}{"a", 1},
		[]interface{}{"b", 2},
		[]interface{}{"c", 3},
	)

	out, err := Wider(data)
	require.NoError(t, err)
	assert.Equal(t, 1, out.RowCount())
	assert.Equal(t, []string{"a", "b", "c"}, out.ColumnNames())
	assert.Equal(t, []string{"2"}, column(t, out, "b"))
}

func TestWiderEmptyInput(t *testing.T) {
	data, err := datatable.NewTable(datatable.StringColumn("name"), datatable.IntColumn("value"))
	require.NoError(t, err)

	out, err := Wider(data)
	require.NoError(t, err)
	assert.Equal(t, 1, out.RowCount())
	assert.NotContains(t, out.ColumnNames(), "value")
	assert.Empty(t, out.ColumnNames())

	withID, err := datatable.NewTable(
		datatable.IntColumn("id"), datatable.StringColumn("name"), datatable.IntColumn("value"),
	)
	require.NoError(t, err)

	out, err = Wider(withID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.RowCount())
	assert.Equal(t, []string{"id"}, out.ColumnNames())
}

func TestWiderExplicitIDColumnsDropOthers(t *testing.T) {
	data := mustTable(t, []string{"id", "note", "name", "value"},
		[]interface{}{1, "first", "a", 1},
		[]interface{}{1, "second", "b", 2},
	)

	out, err := Wider(data, WithIDCols(Cols("id")))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a", "b"}, out.ColumnNames())
	assert.Equal(t, 1, out.RowCount())

	out, err = Wider(data)
	require.NoError(t, err)
	assert.Equal(t, 2, out.RowCount())
}

func TestWiderPartialSpecCoverage(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 1},
		[]interface{}{2, "b", 2},
	)
	spec := &Spec{
		KeyColumns: []string{"name"},
		Entries:    []SpecEntry{{Name: "only_a", Value: "value", Key: []datatable.Value{str("a")}}},
	}

	out, err := Wider(data, WithSpec(spec))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "only_a"}, out.ColumnNames())
	assert.Equal(t, []string{"1", "NA"}, column(t, out, "only_a"))
}

func TestWiderRepeatedSpecKeyFeedsFirstEntry(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 1},
		[]interface{}{2, "a", 2},
	)
	key := []datatable.Value{str("a")}
	spec := &Spec{
		KeyColumns: []string{"name"},
		Entries: []SpecEntry{
			{Name: "first", Value: "value", Key: key},
			{Name: "second", Value: "value", Key: key},
		},
	}

	out, err := Wider(data, WithSpec(spec), WithValuesFill(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "first", "second"}, out.ColumnNames())
	assert.Equal(t, []string{"1", "2"}, column(t, out, "first"))
	assert.Equal(t, []string{"0", "0"}, column(t, out, "second"))
}

func TestWiderNullKeysAreMatched(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, nil, 1},
		[]interface{}{2, nil, 2},
		[]interface{}{2, "a", 3},
	)

	out, err := Wider(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "NA", "a"}, out.ColumnNames())
	assert.Equal(t, []string{"1", "2"}, column(t, out, "NA"))
}

func TestWiderErrors(t *testing.T) {
	data := mustTable(t, []string{"id", "name", "value"},
		[]interface{}{1, "a", 1},
		[]interface{}{1, "id", 2},
	)

	_, err := Wider(nil)
	assert.ErrorIs(t, err, datatable.ErrNoDataSource)

	_, err = Wider(data)
	var dupErr *DuplicateNamesError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, []string{"id"}, dupErr.Names)

	_, err = Wider(data, WithNamesPrefix("k_"), WithValuesFill([]int{1, 2}))
	assert.ErrorIs(t, err, ErrFillCardinality)

	_, err = Wider(data, WithNamesPrefix("k_"), WithValuesFill("abc"))
	assert.ErrorIs(t, err, ErrTypeCast)

	_, err = Wider(data, WithNamesPrefix("k_"), WithValuesFillFor("nope", 0))
	assert.ErrorIs(t, err, ErrUnknownValueColumn)

	_, err = Wider(data, WithNamesPrefix("k_"), WithValuesFnFor("nope", Sum))
	assert.ErrorIs(t, err, ErrUnknownValueColumn)

	_, err = Wider(data, WithNamesFrom(Cols("missing")))
	assert.ErrorIs(t, err, datatable.ErrColumnNotFound)

	spec := &Spec{
		KeyColumns: []string{"missing"},
		Entries:    []SpecEntry{{Name: "x", Value: "value", Key: []datatable.Value{str("a")}}},
	}
	_, err = Wider(data, WithSpec(spec))
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = Wider(data, WithSpec(&Spec{}))
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestWiderShape(t *testing.T) {
	data := mustTable(t, []string{"site", "day", "metric", "reading"},
		[]interface{}{"n", 1, "temp", 20.5},
		[]interface{}{"n", 1, "wind", 3.0},
		[]interface{}{"s", 1, "temp", 22.0},
		[]interface{}{"s", 2, "rain", 0.4},
		[]interface{}{"n", 2, "temp", 19.0},
	)

	out, err := Wider(data, WithNamesFrom(Cols("metric")), WithValuesFrom(Cols("reading")))
	require.NoError(t, err)

	spec, err := BuildSpec(data, Cols("metric"), Cols("reading"), "", "_")
	require.NoError(t, err)

	assert.Equal(t, 4, out.RowCount())
	assert.Equal(t, 2+len(spec.Entries), out.ColumnCount())
	assert.Equal(t, []string{"site", "day", "temp", "wind", "rain"}, out.ColumnNames())
}

func TestWiderRoundTripsWithLonger(t *testing.T) {
	data := mustTable(t, []string{"country", "year", "name", "value"},
		[]interface{}{"nl", 2020, "pop", 17},
		[]interface{}{"nl", 2020, "gdp", 900},
		[]interface{}{"se", 2020, "pop", 10},
		[]interface{}{"se", 2020, "gdp", 540},
		[]interface{}{"nl", 2021, "pop", 18},
		[]interface{}{"nl", 2021, "gdp", 1000},
	)

	spec, err := BuildSpec(data, Cols("name"), Cols("value"), "", "_")
	require.NoError(t, err)
	wide, err := Wider(data, WithSpec(spec))
	require.NoError(t, err)

	assert.Equal(t, canonicalRows(t, data), canonicalRows(t, longer(t, wide, spec, []string{"country", "year"})))
}

// longer is the inverse of Wider for a spec with one key column: one output
// row per (wide row, spec entry), skipping missing cells.
func longer(t *testing.T, wide *datatable.Table, spec *Spec, idNames []string) *datatable.Table {
	t.Helper()
	names := append(append([]string(nil), idNames...), spec.KeyColumns[0], spec.Entries[0].Value)

	var rows [][]interface{}
	for r := 0; r < wide.RowCount(); r++ {
		for _, e := range spec.Entries {
			col, err := wide.Column(e.Name)
			require.NoError(t, err)
			if col.Values[r].IsNull {
				continue
			}
			var row []interface{}
			for _, id := range idNames {
				idCol, err := wide.Column(id)
				require.NoError(t, err)
				row = append(row, idCol.Values[r])
			}
			rows = append(rows, append(row, e.Key[0], col.Values[r]))
		}
	}
	return mustTable(t, names, rows...)
}

func canonicalRows(t *testing.T, tbl *datatable.Table) []string {
	t.Helper()
	out := make([]string, tbl.RowCount())
	for r := range out {
		row, err := tbl.Row(r)
		require.NoError(t, err)
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprintf("%s:%s", v.Type, v)
		}
		out[r] = strings.Join(parts, "|")
	}
	sort.Strings(out)
	return out
}
