package datatable

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts used when parsing and formatting temporal values.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339Nano
)

// Parse converts the text form of a value to the given type. Binary values
// are base64 encoded. Struct and List values cannot be parsed.
func Parse(s string, dataType DataType) (Value, error) {
	switch dataType {
	case TypeString:
		return NewValue(s, TypeString), nil

	case TypeInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(i, TypeInt), nil

	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(f, TypeFloat), nil

	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(b, TypeBool), nil

	case TypeDate:
		t, err := time.Parse(DateLayout, strings.TrimSpace(s))
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewDateValue(t), nil

	case TypeTimestamp:
		t, err := time.Parse(TimestampLayout, strings.TrimSpace(s))
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(t.UTC(), TypeTimestamp), nil

	case TypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(d, TypeDecimal), nil

	case TypeBinary:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, parseError(s, dataType, err)
		}
		return NewValue(b, TypeBinary), nil
	}

	return Value{}, fmt.Errorf("%w: cannot parse %s values", ErrTypeMismatch, dataType)
}

// Text returns the form of v that Parse accepts for v.Type.
func Text(v Value) string {
	if v.IsNull {
		return ""
	}
	switch v.Type {
	case TypeBinary:
		return base64.StdEncoding.EncodeToString(v.Raw.([]byte))
	case TypeDate:
		return v.Raw.(time.Time).Format(DateLayout)
	case TypeTimestamp:
		return v.Raw.(time.Time).Format(TimestampLayout)
	}
	return v.Formatted
}

// Coerce converts v to the given type, parsing string values when no
// lossless cast exists.
func Coerce(v Value, to DataType) (Value, error) {
	if out, err := Cast(v, to); err == nil {
		return out, nil
	} else if v.Type != TypeString {
		return Value{}, err
	}
	return Parse(v.Raw.(string), to)
}

func parseError(s string, dataType DataType, err error) error {
	return fmt.Errorf("%w: cannot parse %q as %s: %v", ErrTypeMismatch, s, dataType, err)
}
