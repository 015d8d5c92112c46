package datatable

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Cast converts v to the target type. Only lossless conversions succeed:
//
//	Int     -> Float, Decimal
//	Float   -> Int (integral values only), Decimal
//	Decimal -> Float, Int (integral values only)
//	Bool    -> Int, Float
//	Date    -> Timestamp
//
// Nulls cast to a null of the target type. Every other pair fails with
// ErrTypeMismatch.
func Cast(v Value, to DataType) (Value, error) {
	if v.IsNull {
		return NewNullValue(to), nil
	}
	if v.Type == to {
		return v, nil
	}

	switch v.Type {
	case TypeInt:
		i := v.Raw.(int64)
		switch to {
		case TypeFloat:
			return NewValue(float64(i), TypeFloat), nil
		case TypeDecimal:
			return NewValue(decimal.NewFromInt(i), TypeDecimal), nil
		}

	case TypeFloat:
		f := v.Raw.(float64)
		switch to {
		case TypeInt:
			if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
				return NewValue(int64(f), TypeInt), nil
			}
			return Value{}, castError(v, to, "loses precision")
		case TypeDecimal:
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, castError(v, to, "is not finite")
			}
			return NewValue(decimal.NewFromFloat(f), TypeDecimal), nil
		}

	case TypeDecimal:
		d := v.Raw.(decimal.Decimal)
		switch to {
		case TypeFloat:
			return NewValue(d.InexactFloat64(), TypeFloat), nil
		case TypeInt:
			if d.Equal(d.Truncate(0)) && d.BigInt().IsInt64() {
				return NewValue(d.IntPart(), TypeInt), nil
			}
			return Value{}, castError(v, to, "loses precision")
		}

	case TypeBool:
		b := v.Raw.(bool)
		var i int64
		if b {
			i = 1
		}
		switch to {
		case TypeInt:
			return NewValue(i, TypeInt), nil
		case TypeFloat:
			return NewValue(float64(i), TypeFloat), nil
		}

	case TypeDate:
		if to == TypeTimestamp {
			return NewValue(v.Raw.(time.Time), TypeTimestamp), nil
		}
	}

	return Value{}, castError(v, to, "is not convertible")
}

func castError(v Value, to DataType, reason string) error {
	return fmt.Errorf("%w: cannot cast %s %s to %s: value %s", ErrTypeMismatch, v.Type, v.String(), to, reason)
}

// CommonType returns the type both a and b can be cast to without loss.
func CommonType(a, b DataType) (DataType, error) {
	if a == b {
		return a, nil
	}

	pair := func(x, y DataType) bool {
		return (a == x && b == y) || (a == y && b == x)
	}

	switch {
	case pair(TypeInt, TypeFloat), pair(TypeFloat, TypeDecimal), pair(TypeBool, TypeFloat):
		return TypeFloat, nil
	case pair(TypeInt, TypeDecimal):
		return TypeDecimal, nil
	case pair(TypeBool, TypeInt):
		return TypeInt, nil
	case pair(TypeDate, TypeTimestamp):
		return TypeTimestamp, nil
	}

	return 0, fmt.Errorf("%w: no common type for %s and %s", ErrTypeMismatch, a, b)
}
