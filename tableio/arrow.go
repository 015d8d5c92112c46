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

package tableio

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/magpierre/pivotwider/datatable"
)

// decimalPrecision is the precision of every Decimal column written to Arrow.
const decimalPrecision = 38

// FromArrow copies an Arrow table into a datatable.Table. Integer types map
// to Int, floating point types to Float, DECIMAL128 to Decimal and LIST to
// List. Struct values become their JSON text; other unsupported types their
// Arrow string form.
func FromArrow(tbl arrow.Table) (*datatable.Table, error) {
	if tbl == nil {
		return nil, datatable.ErrNoDataSource
	}

	schema := tbl.Schema()
	cols := make([]*datatable.Column, tbl.NumCols())
	for i := range cols {
		field := schema.Field(i)
		dataType, elemType := dataTypeOf(field.Type)

		values := make([]datatable.Value, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for pos := 0; pos < chunk.Len(); pos++ {
				v, err := valueAt(chunk, pos)
				if err != nil {
					return nil, fmt.Errorf("column %q row %d: %w", field.Name, len(values), err)
				}
				values = append(values, v)
			}
		}

		col, err := datatable.NewColumn(field.Name, dataType, values)
		if err != nil {
			return nil, err
		}
		col.ElemType = elemType
		cols[i] = col
	}

	return datatable.NewTable(cols...)
}

// ToArrow builds an Arrow table from t. The caller must Release it.
// Timestamps are written in nanoseconds (UTC) and decimals as
// DECIMAL128(38, s), where s is the largest scale in the column.
func ToArrow(t *datatable.Table, mem memory.Allocator) (arrow.Table, error) {
	if t == nil {
		return nil, datatable.ErrNoDataSource
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	fields := make([]arrow.Field, t.ColumnCount())
	columns := make([]arrow.Column, t.ColumnCount())
	for i := range fields {
		col, err := t.ColumnAt(i)
		if err != nil {
			return nil, err
		}

		dtype, err := arrowTypeOf(col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dtype, Nullable: true}

		builder := array.NewBuilder(mem, dtype)
		for _, v := range col.Values {
			if err := appendValue(builder, v); err != nil {
				builder.Release()
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
		arr := builder.NewArray()
		builder.Release()

		chunked := arrow.NewChunked(dtype, []arrow.Array{arr})
		arr.Release()
		columns[i] = *arrow.NewColumn(fields[i], chunked)
		chunked.Release()
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columns, int64(t.RowCount())), nil
}

// dataTypeOf maps an Arrow type to a column type and list element type.
func dataTypeOf(dt arrow.DataType) (datatable.DataType, datatable.DataType) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return datatable.TypeString, datatable.TypeString
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return datatable.TypeBinary, datatable.TypeString
	case arrow.BOOL:
		return datatable.TypeBool, datatable.TypeString
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return datatable.TypeInt, datatable.TypeString
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return datatable.TypeFloat, datatable.TypeString
	case arrow.DATE32, arrow.DATE64:
		return datatable.TypeDate, datatable.TypeString
	case arrow.TIMESTAMP:
		return datatable.TypeTimestamp, datatable.TypeString
	case arrow.DECIMAL128:
		return datatable.TypeDecimal, datatable.TypeString
	case arrow.LIST, arrow.LARGE_LIST:
		elem, _ := dataTypeOf(dt.(arrow.ListLikeType).Elem())
		return datatable.TypeList, elem
	default:
		return datatable.TypeString, datatable.TypeString
	}
}

// valueAt returns the value of col at pos, typed as dataTypeOf describes.
func valueAt(col arrow.Array, pos int) (datatable.Value, error) {
	dataType, _ := dataTypeOf(col.DataType())
	if col.IsNull(pos) {
		return datatable.NewNullValue(dataType), nil
	}

	switch c := col.(type) {
	case *array.String:
		return datatable.NewValue(c.Value(pos), datatable.TypeString), nil
	case *array.LargeString:
		return datatable.NewValue(c.Value(pos), datatable.TypeString), nil
	case *array.Binary:
		return datatable.NewValue(append([]byte(nil), c.Value(pos)...), datatable.TypeBinary), nil
	case *array.LargeBinary:
		return datatable.NewValue(append([]byte(nil), c.Value(pos)...), datatable.TypeBinary), nil
	case *array.FixedSizeBinary:
		return datatable.NewValue(append([]byte(nil), c.Value(pos)...), datatable.TypeBinary), nil
	case *array.Boolean:
		return datatable.NewValue(c.Value(pos), datatable.TypeBool), nil
	case *array.Int8:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Int16:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Int32:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Int64:
		return datatable.NewValue(c.Value(pos), datatable.TypeInt), nil
	case *array.Uint8:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Uint16:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Uint32:
		return datatable.NewValue(int64(c.Value(pos)), datatable.TypeInt), nil
	case *array.Uint64:
		u := c.Value(pos)
		if u > math.MaxInt64 {
			return datatable.Value{}, fmt.Errorf("%w: %d overflows int64", datatable.ErrTypeMismatch, u)
		}
		return datatable.NewValue(int64(u), datatable.TypeInt), nil
	case *array.Float16:
		return datatable.NewValue(float64(c.Value(pos).Float32()), datatable.TypeFloat), nil
	case *array.Float32:
		return datatable.NewValue(float64(c.Value(pos)), datatable.TypeFloat), nil
	case *array.Float64:
		return datatable.NewValue(c.Value(pos), datatable.TypeFloat), nil
	case *array.Date32:
		return datatable.NewDateValue(c.Value(pos).ToTime()), nil
	case *array.Date64:
		return datatable.NewDateValue(c.Value(pos).ToTime()), nil
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return datatable.NewValue(c.Value(pos).ToTime(unit).UTC(), datatable.TypeTimestamp), nil
	case *array.Decimal128:
		scale := c.DataType().(*arrow.Decimal128Type).Scale
		return datatable.NewValue(decimal.NewFromBigInt(c.Value(pos).BigInt(), -scale), datatable.TypeDecimal), nil
	case *array.List:
		start, end := c.ValueOffsets(pos)
		return listValue(c.ListValues(), start, end)
	case *array.LargeList:
		start, end := c.ValueOffsets(pos)
		return listValue(c.ListValues(), start, end)
	case *array.Struct:
		b, err := json.Marshal(c.GetOneForMarshal(pos))
		if err != nil {
			return datatable.Value{}, err
		}
		return datatable.NewValue(string(b), datatable.TypeString), nil
	}

	return datatable.NewValue(col.ValueStr(pos), datatable.TypeString), nil
}

func listValue(values arrow.Array, start, end int64) (datatable.Value, error) {
	elems := make([]datatable.Value, 0, end-start)
	for i := start; i < end; i++ {
		v, err := valueAt(values, int(i))
		if err != nil {
			return datatable.Value{}, err
		}
		elems = append(elems, v)
	}
	return datatable.NewValue(elems, datatable.TypeList), nil
}

// arrowTypeOf returns the Arrow type a column is written as.
func arrowTypeOf(col *datatable.Column) (arrow.DataType, error) {
	if col.Type == datatable.TypeDecimal {
		return &arrow.Decimal128Type{Precision: decimalPrecision, Scale: decimalScale(col.Values)}, nil
	}
	if col.Type == datatable.TypeList {
		var elems []datatable.Value
		for _, v := range col.Values {
			elems = append(elems, v.List()...)
		}
		elem, err := arrowTypeOf(&datatable.Column{Type: col.ElemType, Values: elems})
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}
	return scalarArrowType(col.Type)
}

func scalarArrowType(dt datatable.DataType) (arrow.DataType, error) {
	switch dt {
	case datatable.TypeString:
		return arrow.BinaryTypes.String, nil
	case datatable.TypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case datatable.TypeFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case datatable.TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case datatable.TypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case datatable.TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}, nil
	case datatable.TypeBinary:
		return arrow.BinaryTypes.Binary, nil
	}
	return nil, fmt.Errorf("%w: %s has no Arrow mapping", datatable.ErrTypeMismatch, dt)
}

// decimalScale returns the largest number of fractional digits in values.
func decimalScale(values []datatable.Value) int32 {
	var scale int32
	for _, v := range values {
		if v.IsNull || v.Type != datatable.TypeDecimal {
			continue
		}
		if s := -v.Raw.(decimal.Decimal).Exponent(); s > scale {
			scale = s
		}
	}
	return scale
}

// appendValue appends v to a builder created for the column's Arrow type.
func appendValue(builder array.Builder, v datatable.Value) error {
	if v.IsNull {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.StringBuilder:
		b.Append(v.Raw.(string))
	case *array.Int64Builder:
		b.Append(v.Raw.(int64))
	case *array.Float64Builder:
		b.Append(v.Raw.(float64))
	case *array.BooleanBuilder:
		b.Append(v.Raw.(bool))
	case *array.BinaryBuilder:
		b.Append(v.Raw.([]byte))
	case *array.Date32Builder:
		b.Append(arrow.Date32FromTime(v.Raw.(time.Time)))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.Raw.(time.Time).UnixNano()))
	case *array.Decimal128Builder:
		scale := b.Type().(*arrow.Decimal128Type).Scale
		b.Append(decimal128.FromBigInt(v.Raw.(decimal.Decimal).Shift(scale).BigInt()))
	case *array.ListBuilder:
		b.Append(true)
		for _, e := range v.List() {
			if err := appendValue(b.ValueBuilder(), e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: cannot append %s to %T", datatable.ErrTypeMismatch, v.Type, builder)
	}
	return nil
}
