package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/datatable"
)

func sampleTable(t *testing.T) *datatable.Table {
	t.Helper()
	tbl, err := datatable.NewTable(
		datatable.StringColumn("id", "a"),
		datatable.StringColumn("variable", "x"),
		datatable.FloatColumn("estimate", 1),
		datatable.FloatColumn("moe", 2),
		datatable.IntColumn("year", 2020),
	)
	require.NoError(t, err)
	return tbl
}

func TestNameSelector(t *testing.T) {
	tbl := sampleTable(t)

	idx, err := (&NameSelector{Names: []string{"moe", "id", "moe"}}).Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, idx)

	_, err = (&NameSelector{Names: []string{"nope"}}).Select(tbl)
	assert.ErrorIs(t, err, datatable.ErrColumnNotFound)

	_, err = (&NameSelector{Names: []string{"id"}}).Select(nil)
	assert.ErrorIs(t, err, datatable.ErrNoDataSource)
}

func TestPositionSelector(t *testing.T) {
	tbl := sampleTable(t)

	idx, err := (&PositionSelector{Positions: []int{4, 1}}).Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, idx)

	_, err = (&PositionSelector{Positions: []int{5}}).Select(tbl)
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)
	assert.Equal(t, "position in [4, 1]", (&PositionSelector{Positions: []int{4, 1}}).Description())
}

func TestPredicateSelectors(t *testing.T) {
	tbl := sampleTable(t)

	idx, err := OfType(datatable.TypeFloat).Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, idx)

	m, err := Matching("^(id|year)$")
	require.NoError(t, err)
	idx, err = m.Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, idx)

	_, err = Matching("(")
	assert.ErrorIs(t, err, datatable.ErrInvalidFilter)

	idx, err = Everything().Select(tbl)
	require.NoError(t, err)
	assert.Len(t, idx, 5)
}

func TestNotSelector(t *testing.T) {
	tbl := sampleTable(t)

	idx, err := (&NotSelector{Inner: &NameSelector{Names: []string{"variable", "estimate"}}}).Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 4}, idx)
}

func TestCompositeSelector(t *testing.T) {
	tbl := sampleTable(t)
	names := &NameSelector{Names: []string{"moe", "id", "estimate"}}

	and := &CompositeSelector{Selectors: []datatable.ColumnSelector{names, OfType(datatable.TypeFloat)}, Logic: LogicAND}
	idx, err := and.Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, idx)

	or := &CompositeSelector{Selectors: []datatable.ColumnSelector{OfType(datatable.TypeInt), names}, Logic: LogicOR}
	idx, err = or.Select(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 0, 2}, idx)

	idx, err = (&CompositeSelector{}).Select(tbl)
	require.NoError(t, err)
	assert.Empty(t, idx)

	_, err = (&CompositeSelector{Selectors: []datatable.ColumnSelector{names}, Logic: LogicOp(7)}).Select(tbl)
	assert.ErrorIs(t, err, datatable.ErrInvalidFilter)

	assert.Equal(t, "(type in [Int] OR name in [moe, id, estimate])", or.Description())
}

func TestParseExpression(t *testing.T) {
	tbl := sampleTable(t)

	tests := []struct {
		expr string
		want []int
	}{
		{"type = Float", []int{2, 3}},
		{"type = float AND name ~ est", []int{2}},
		{"position >= 3 OR name = id", []int{0, 3, 4}},
		{"pos < 1", []int{0}},
		{"type != String", []int{2, 3, 4}},
		{"var", []int{1}},
		{"name = 'moe'", []int{3}},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			sel, err := ParseExpression(tc.expr)
			require.NoError(t, err)
			idx, err := sel.Select(tbl)
			require.NoError(t, err)
			assert.Equal(t, tc.want, idx)
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "colour = red", "type = Complex", "position = x", "name = a AND", "AND name = a"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseExpression(expr)
			assert.ErrorIs(t, err, datatable.ErrInvalidFilter)
		})
	}
}
