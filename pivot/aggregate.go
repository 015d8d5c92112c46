package pivot

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magpierre/pivotwider/datatable"
)

// Aggregator summarises the values contributing to one output cell.
// values holds at least one element, in input order.
type Aggregator interface {
	Aggregate(values []datatable.Value) (datatable.Value, error)
}

// AggregatorFunc adapts a function to the Aggregator interface.
type AggregatorFunc func(values []datatable.Value) (datatable.Value, error)

// Aggregate calls f(values).
func (f AggregatorFunc) Aggregate(values []datatable.Value) (datatable.Value, error) {
	return f(values)
}

type listAggregator struct{}

func (listAggregator) Aggregate(values []datatable.Value) (datatable.Value, error) {
	return datatable.NewValue(append([]datatable.Value(nil), values...), datatable.TypeList), nil
}

// Built-in aggregators. Numeric summaries return null when any input is null.
var (
	// List collects every contributing value into a list-valued cell and
	// suppresses the ambiguous-cell warning.
	List Aggregator = listAggregator{}

	// Length counts contributing values, nulls included.
	Length Aggregator = AggregatorFunc(length)

	// Sum adds numeric values. Int and Bool sum to Int; an Int total that
	// overflows is an error.
	Sum Aggregator = AggregatorFunc(sum)

	// Mean averages numeric values. Decimal stays Decimal, other types give Float.
	Mean Aggregator = AggregatorFunc(mean)

	// Median returns the middle value. Decimal stays Decimal, other types give Float.
	Median Aggregator = AggregatorFunc(median)

	// Min returns the smallest value of an ordered type.
	Min Aggregator = AggregatorFunc(func(v []datatable.Value) (datatable.Value, error) { return extreme(v, -1) })

	// Max returns the largest value of an ordered type.
	Max Aggregator = AggregatorFunc(func(v []datatable.Value) (datatable.Value, error) { return extreme(v, 1) })

	// First returns the first contributing value.
	First Aggregator = AggregatorFunc(func(v []datatable.Value) (datatable.Value, error) { return pick(v, 0) })

	// Last returns the last contributing value.
	Last Aggregator = AggregatorFunc(func(v []datatable.Value) (datatable.Value, error) { return pick(v, len(v)-1) })
)

var builtinAggregators = map[string]Aggregator{
	"list":   List,
	"length": Length,
	"count":  Length,
	"sum":    Sum,
	"mean":   Mean,
	"median": Median,
	"min":    Min,
	"max":    Max,
	"first":  First,
	"last":   Last,
}

// AggregatorByName returns the built-in aggregator with the given name
// (list, length, count, sum, mean, median, min, max, first, last).
func AggregatorByName(name string) (Aggregator, error) {
	agg, ok := builtinAggregators[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("pivot: unknown aggregator %q", name)
	}
	return agg, nil
}

func isListAggregator(agg Aggregator) bool {
	_, ok := agg.(listAggregator)
	return ok
}

func length(values []datatable.Value) (datatable.Value, error) {
	return datatable.NewValue(int64(len(values)), datatable.TypeInt), nil
}

func pick(values []datatable.Value, i int) (datatable.Value, error) {
	if len(values) == 0 {
		return datatable.NewNullValue(datatable.TypeString), nil
	}
	return values[i], nil
}

func anyNull(values []datatable.Value) bool {
	for _, v := range values {
		if v.IsNull {
			return true
		}
	}
	return false
}

func inputType(values []datatable.Value) datatable.DataType {
	if len(values) == 0 {
		return datatable.TypeFloat
	}
	return values[0].Type
}

func unsupported(op string, dt datatable.DataType) error {
	return fmt.Errorf("%w: %s is not defined for %s", datatable.ErrTypeMismatch, op, dt)
}

func sum(values []datatable.Value) (datatable.Value, error) {
	dt := inputType(values)
	switch dt {
	case datatable.TypeInt, datatable.TypeBool:
		if anyNull(values) {
			return datatable.NewNullValue(datatable.TypeInt), nil
		}
		var total int64
		for _, v := range values {
			i, err := datatable.Cast(v, datatable.TypeInt)
			if err != nil {
				return datatable.Value{}, err
			}
			x := i.Raw.(int64)
			if (x > 0 && total > math.MaxInt64-x) || (x < 0 && total < math.MinInt64-x) {
				return datatable.Value{}, fmt.Errorf("%w: sum overflows %s", datatable.ErrTypeMismatch, datatable.TypeInt)
			}
			total += x
		}
		return datatable.NewValue(total, datatable.TypeInt), nil

	case datatable.TypeFloat:
		if anyNull(values) {
			return datatable.NewNullValue(datatable.TypeFloat), nil
		}
		var total float64
		for _, v := range values {
			total += v.Raw.(float64)
		}
		return datatable.NewValue(total, datatable.TypeFloat), nil

	case datatable.TypeDecimal:
		if anyNull(values) {
			return datatable.NewNullValue(datatable.TypeDecimal), nil
		}
		total := decimal.Zero
		for _, v := range values {
			total = total.Add(v.Raw.(decimal.Decimal))
		}
		return datatable.NewValue(total, datatable.TypeDecimal), nil
	}
	return datatable.Value{}, unsupported("sum", dt)
}

func mean(values []datatable.Value) (datatable.Value, error) {
	dt := inputType(values)
	if len(values) == 0 {
		return datatable.NewNullValue(datatable.TypeFloat), nil
	}
	switch dt {
	case datatable.TypeDecimal:
		s, err := sum(values)
		if err != nil || s.IsNull {
			return s, err
		}
		n := decimal.NewFromInt(int64(len(values)))
		return datatable.NewValue(s.Raw.(decimal.Decimal).Div(n), datatable.TypeDecimal), nil

	case datatable.TypeInt, datatable.TypeFloat, datatable.TypeBool:
		floats, ok, err := asFloats(values)
		if err != nil || !ok {
			return datatable.NewNullValue(datatable.TypeFloat), err
		}
		var total float64
		for _, f := range floats {
			total += f
		}
		return datatable.NewValue(total/float64(len(floats)), datatable.TypeFloat), nil
	}
	return datatable.Value{}, unsupported("mean", dt)
}

func median(values []datatable.Value) (datatable.Value, error) {
	dt := inputType(values)
	if len(values) == 0 {
		return datatable.NewNullValue(datatable.TypeFloat), nil
	}
	switch dt {
	case datatable.TypeDecimal:
		if anyNull(values) {
			return datatable.NewNullValue(datatable.TypeDecimal), nil
		}
		ds := make([]decimal.Decimal, len(values))
		for i, v := range values {
			ds[i] = v.Raw.(decimal.Decimal)
		}
		sort.Slice(ds, func(i, j int) bool { return ds[i].LessThan(ds[j]) })
		mid := len(ds) / 2
		if len(ds)%2 == 1 {
			return datatable.NewValue(ds[mid], datatable.TypeDecimal), nil
		}
		return datatable.NewValue(ds[mid-1].Add(ds[mid]).Div(decimal.NewFromInt(2)), datatable.TypeDecimal), nil

	case datatable.TypeInt, datatable.TypeFloat, datatable.TypeBool:
		floats, ok, err := asFloats(values)
		if err != nil || !ok {
			return datatable.NewNullValue(datatable.TypeFloat), err
		}
		sort.Float64s(floats)
		mid := len(floats) / 2
		if len(floats)%2 == 1 {
			return datatable.NewValue(floats[mid], datatable.TypeFloat), nil
		}
		return datatable.NewValue((floats[mid-1]+floats[mid])/2, datatable.TypeFloat), nil
	}
	return datatable.Value{}, unsupported("median", dt)
}

// asFloats converts numeric values to float64. ok is false if any value is null.
func asFloats(values []datatable.Value) ([]float64, bool, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v.IsNull {
			return nil, false, nil
		}
		f, err := datatable.Cast(v, datatable.TypeFloat)
		if err != nil {
			return nil, false, err
		}
		out[i] = f.Raw.(float64)
	}
	return out, true, nil
}

// extreme returns the minimum (sign < 0) or maximum (sign > 0).
func extreme(values []datatable.Value, sign int) (datatable.Value, error) {
	dt := inputType(values)
	if len(values) == 0 || anyNull(values) {
		return datatable.NewNullValue(dt), nil
	}

	best := values[0]
	for _, v := range values[1:] {
		c, err := compare(v, best)
		if err != nil {
			return datatable.Value{}, err
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}

// compare orders two non-null values of the same type.
func compare(a, b datatable.Value) (int, error) {
	if a.Type != b.Type {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", datatable.ErrTypeMismatch, a.Type, b.Type)
	}
	switch a.Type {
	case datatable.TypeInt:
		x, y := a.Raw.(int64), b.Raw.(int64)
		return cmpOrdered(x < y, x > y), nil
	case datatable.TypeFloat:
		x, y := a.Raw.(float64), b.Raw.(float64)
		return cmpOrdered(x < y, x > y), nil
	case datatable.TypeString:
		return strings.Compare(a.Raw.(string), b.Raw.(string)), nil
	case datatable.TypeDecimal:
		return a.Raw.(decimal.Decimal).Cmp(b.Raw.(decimal.Decimal)), nil
	case datatable.TypeDate, datatable.TypeTimestamp:
		return a.Raw.(time.Time).Compare(b.Raw.(time.Time)), nil
	case datatable.TypeBool:
		x, y := a.Raw.(bool), b.Raw.(bool)
		return cmpOrdered(!x && y, x && !y), nil
	}
	return 0, unsupported("ordering", a.Type)
}

func cmpOrdered(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
