package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/pivotwider/datatable"
	"github.com/magpierre/pivotwider/pivot"
)

const rangeScript = `
func Aggregate(values []interface{}) interface{} {
	lo, hi := values[0].(int64), values[0].(int64)
	for _, v := range values[1:] {
		x := v.(int64)
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi - lo
}
`

func intValues(xs ...int64) []datatable.Value {
	out := make([]datatable.Value, len(xs))
	for i, x := range xs {
		out[i] = datatable.NewValue(x, datatable.TypeInt)
	}
	return out
}

func TestCompileWithoutPackageClause(t *testing.T) {
	agg, err := Compile(rangeScript)
	require.NoError(t, err)

	got, err := agg.Aggregate(intValues(4, 9, 2))
	require.NoError(t, err)
	assert.Equal(t, datatable.TypeInt, got.Type)
	assert.Equal(t, int64(7), got.Raw)
}

func TestCompileNumericSignature(t *testing.T) {
	src := `package stats

import "math"

func Aggregate(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v * v
	}
	return math.Sqrt(s)
}
`
	agg, err := Compile(src)
	require.NoError(t, err)

	values := []datatable.Value{
		datatable.NewValue(int64(3), datatable.TypeInt),
		datatable.NewValue(decimal.NewFromInt(4), datatable.TypeDecimal),
	}
	got, err := agg.Aggregate(values)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Raw)

	got, err = agg.Aggregate(append(values, datatable.NewNullValue(datatable.TypeInt)))
	require.NoError(t, err)
	assert.True(t, got.IsNull)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("func Aggregate( {")
	assert.Error(t, err)

	_, err = Compile("func Other(values []interface{}) interface{} { return nil }")
	assert.ErrorIs(t, err, ErrNoAggregate)

	_, err = Compile("func Aggregate(s string) string { return s }")
	assert.ErrorIs(t, err, ErrSignature)
}

func TestScriptPanicIsReturned(t *testing.T) {
	agg, err := Compile(rangeScript)
	require.NoError(t, err)

	_, err = agg.Aggregate([]datatable.Value{datatable.NewValue("x", datatable.TypeString)})
	assert.ErrorContains(t, err, "panicked")
}

func TestScriptInWider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "range.go")
	require.NoError(t, os.WriteFile(path, []byte(rangeScript), 0o600))

	agg, err := Load(path)
	require.NoError(t, err)

	long, err := datatable.NewTableFromRows([]string{"id", "name", "value"},
		[]interface{}{1, "a", 3},
		[]interface{}{1, "a", 8},
		[]interface{}{2, "a", 5},
	)
	require.NoError(t, err)

	wide, err := pivot.Wider(long, pivot.WithValuesFn(agg))
	require.NoError(t, err)
	col, err := wide.Column("a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), col.Values[0].Raw)
	assert.Equal(t, int64(0), col.Values[1].Raw)
}
