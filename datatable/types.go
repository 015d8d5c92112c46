// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package datatable provides the in-memory tabular data model used by the
// pivot engine: typed, null-aware cell values, uniformly typed columns and
// tables that expose them through the DataSource interface.
package datatable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeString represents string data.
	TypeString DataType = iota
	// TypeInt represents integer data (stored as int64).
	TypeInt
	// TypeFloat represents floating-point data (stored as float64).
	TypeFloat
	// TypeBool represents boolean data.
	TypeBool
	// TypeDate represents date data (without time).
	TypeDate
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeBinary represents binary/blob data.
	TypeBinary
	// TypeDecimal represents decimal/numeric data (fixed precision).
	TypeDecimal
	// TypeStruct represents structured data (nested fields).
	TypeStruct
	// TypeList represents list/array data.
	TypeList
)

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeTimestamp:
		return "Timestamp"
	case TypeBinary:
		return "Binary"
	case TypeDecimal:
		return "Decimal"
	case TypeStruct:
		return "Struct"
	case TypeList:
		return "List"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// ParseDataType is the inverse of DataType.String. Matching is case-insensitive.
func ParseDataType(s string) (DataType, error) {
	for dt := TypeString; dt <= TypeList; dt++ {
		if strings.EqualFold(dt.String(), s) {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown data type %q", ErrTypeMismatch, s)
}

// Value is a typed container for cell values.
// It holds the raw value, type information, and a pre-formatted string for display.
type Value struct {
	// Raw holds the underlying value.
	// The type depends on the DataType field:
	//   TypeString    string
	//   TypeInt       int64
	//   TypeFloat     float64
	//   TypeBool      bool
	//   TypeDate      time.Time (UTC midnight)
	//   TypeTimestamp time.Time
	//   TypeBinary    []byte
	//   TypeDecimal   decimal.Decimal
	//   TypeList      []Value
	Raw interface{}

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is a pre-formatted string representation for display.
	// Null values format as the empty string.
	Formatted string
}

// NewValue creates a new Value from a raw value and type.
// The raw value must already have the Go type documented on Value.Raw.
func NewValue(raw interface{}, dataType DataType) Value {
	if raw == nil {
		return NewNullValue(dataType)
	}

	return Value{
		Raw:       raw,
		Type:      dataType,
		IsNull:    false,
		Formatted: formatValue(raw, dataType),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{
		Raw:       nil,
		Type:      dataType,
		IsNull:    true,
		Formatted: "",
	}
}

// EmptyValue returns the placeholder used for cells nothing was written to.
// Every type uses its null.
func EmptyValue(dataType DataType) Value {
	return NewNullValue(dataType)
}

// String returns the display form of the value, rendering nulls as "NA".
func (v Value) String() string {
	if v.IsNull {
		return "NA"
	}
	return v.Formatted
}

// List returns the elements of a list value. It returns nil for nulls and
// for values that are not lists.
func (v Value) List() []Value {
	if v.IsNull || v.Type != TypeList {
		return nil
	}
	elems, _ := v.Raw.([]Value)
	return elems
}

// Equal reports whether two values are equal. Nulls compare equal to nulls
// of the same type, so it is safe to use for key matching.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	if v.IsNull || other.IsNull {
		return v.IsNull == other.IsNull
	}
	return v.Key() == other.Key()
}

// Key returns a canonical encoding of the value. Two values have the same key
// if and only if they are Equal. Floats normalise -0 to 0 and all NaNs to one key.
func (v Value) Key() string {
	var b strings.Builder
	writeKey(&b, v)
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	b.WriteString(strconv.Itoa(int(v.Type)))
	if v.IsNull {
		b.WriteString("!;")
		return
	}
	b.WriteByte(':')

	var s string
	switch v.Type {
	case TypeString:
		s = v.Raw.(string)
	case TypeInt:
		s = strconv.FormatInt(v.Raw.(int64), 10)
	case TypeFloat:
		f := v.Raw.(float64)
		switch {
		case math.IsNaN(f):
			s = "NaN"
		case f == 0:
			s = "0"
		default:
			s = strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeBool:
		s = strconv.FormatBool(v.Raw.(bool))
	case TypeDate, TypeTimestamp:
		// Seconds and nanoseconds separately; UnixNano overflows outside 1678-2262.
		t := v.Raw.(time.Time)
		s = strconv.FormatInt(t.Unix(), 10) + "." + strconv.Itoa(t.Nanosecond())
	case TypeBinary:
		s = string(v.Raw.([]byte))
	case TypeDecimal:
		// Normalise trailing zeros so 1.50 and 1.5 share a key.
		s = v.Raw.(decimal.Decimal).String()
	case TypeList:
		elems := v.Raw.([]Value)
		b.WriteString(strconv.Itoa(len(elems)))
		b.WriteByte('[')
		for _, e := range elems {
			writeKey(b, e)
		}
		b.WriteString("];")
		return
	default:
		s = fmt.Sprintf("%v", v.Raw)
	}

	// Length prefix keeps concatenated keys unambiguous.
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
	b.WriteByte(';')
}

// TupleKey returns the canonical key of an ordered tuple of values.
func TupleKey(values []Value) string {
	var b strings.Builder
	for _, v := range values {
		writeKey(&b, v)
	}
	return b.String()
}

// formatValue converts a raw value to a formatted string.
func formatValue(raw interface{}, dataType DataType) string {
	if raw == nil {
		return ""
	}

	switch dataType {
	case TypeFloat:
		if f, ok := raw.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeDate:
		if t, ok := raw.(time.Time); ok {
			return t.Format(DateLayout)
		}
	case TypeTimestamp:
		if t, ok := raw.(time.Time); ok {
			return t.Format(TimestampLayout)
		}
	case TypeBinary:
		if bs, ok := raw.([]byte); ok {
			return string(bs)
		}
	case TypeList:
		if elems, ok := raw.([]Value); ok {
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = e.String()
			}
			return "[" + strings.Join(parts, ", ") + "]"
		}
	}

	return fmt.Sprintf("%v", raw)
}

// ValueOf builds a Value from a plain Go value, propagating its Go type to a
// DataType. A nil input yields a null String; use NewNullValue for typed nulls.
// Values that already are a Value are returned unchanged.
func ValueOf(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NewNullValue(TypeString), nil
	case Value:
		return x, nil
	case string:
		return NewValue(x, TypeString), nil
	case int:
		return NewValue(int64(x), TypeInt), nil
	case int8:
		return NewValue(int64(x), TypeInt), nil
	case int16:
		return NewValue(int64(x), TypeInt), nil
	case int32:
		return NewValue(int64(x), TypeInt), nil
	case int64:
		return NewValue(x, TypeInt), nil
	case uint8:
		return NewValue(int64(x), TypeInt), nil
	case uint16:
		return NewValue(int64(x), TypeInt), nil
	case uint32:
		return NewValue(int64(x), TypeInt), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows int64", ErrTypeMismatch, x)
		}
		return NewValue(int64(x), TypeInt), nil
	case float32:
		return NewValue(float64(x), TypeFloat), nil
	case float64:
		return NewValue(x, TypeFloat), nil
	case bool:
		return NewValue(x, TypeBool), nil
	case time.Time:
		return NewValue(x, TypeTimestamp), nil
	case []byte:
		return NewValue(x, TypeBinary), nil
	case decimal.Decimal:
		return NewValue(x, TypeDecimal), nil
	case []Value:
		return NewValue(x, TypeList), nil
	case []interface{}:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return NewValue(elems, TypeList), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, raw)
	}
}

// NewDateValue creates a date value, truncating t to midnight UTC.
func NewDateValue(t time.Time) Value {
	y, m, d := t.Date()
	return NewValue(time.Date(y, m, d, 0, 0, 0, 0, time.UTC), TypeDate)
}

// Metadata holds optional metadata about a data source.
type Metadata map[string]interface{}
