package tableio

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/magpierre/pivotwider/datatable"
)

// ReadJSON reads an array of objects, or a single object, into a table.
// Columns appear in the order their keys are first seen. Numbers become Int
// when every value of the column is integral and Float otherwise. Arrays
// become List values and nested objects are kept as JSON text.
func ReadJSON(r io.Reader) (*datatable.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	b := newJSONBuilder()
	switch tok {
	case json.Delim('['):
		for dec.More() {
			if err := b.readObject(dec); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("failed to read JSON: %w", err)
		}
	case json.Delim('{'):
		if err := b.readFields(dec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: JSON must be an object or an array of objects", datatable.ErrTypeMismatch)
	}

	return b.table()
}

// WriteJSON writes t as an array of objects, one per row, keeping the
// column order for the keys.
func WriteJSON(w io.Writer, t *datatable.Table) error {
	bw := bufio.NewWriter(w)
	names := t.ColumnNames()

	keys := make([][]byte, len(names))
	for i, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw.WriteString("[")
	for r := 0; r < t.RowCount(); r++ {
		row, err := t.Row(r)
		if err != nil {
			return err
		}
		if r > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for i, v := range row {
			if i > 0 {
				bw.WriteString(", ")
			}
			val, err := json.Marshal(jsonValue(v))
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", names[i], r, err)
			}
			bw.Write(keys[i])
			bw.WriteString(": ")
			bw.Write(val)
		}
		bw.WriteString("}")
	}
	if t.RowCount() > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")

	return bw.Flush()
}

// jsonValue converts v to the Go value marshalled for it.
func jsonValue(v datatable.Value) interface{} {
	if v.IsNull {
		return nil
	}
	switch v.Type {
	case datatable.TypeFloat:
		f := v.Raw.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case datatable.TypeDecimal:
		return json.Number(v.Raw.(decimal.Decimal).String())
	case datatable.TypeDate, datatable.TypeTimestamp, datatable.TypeBinary:
		return datatable.Text(v)
	case datatable.TypeList:
		elems := v.List()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = jsonValue(e)
		}
		return out
	}
	return v.Raw
}

// jsonBuilder collects object fields into columns.
type jsonBuilder struct {
	names  []string
	index  map[string]int
	values [][]datatable.Value
	rows   int
}

func newJSONBuilder() *jsonBuilder {
	return &jsonBuilder{index: make(map[string]int)}
}

func (b *jsonBuilder) readObject(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("%w: row %d is not an object", datatable.ErrTypeMismatch, b.rows)
	}
	return b.readFields(dec)
}

// readFields reads the fields of an object whose opening brace has been
// consumed, including the closing brace.
func (b *jsonBuilder) readFields(dec *json.Decoder) error {
	row := b.rows
	b.rows++

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: object key %v", datatable.ErrTypeMismatch, tok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to read field %q: %w", key, err)
		}
		v, err := jsonToValue(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		b.set(key, row, v)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	return nil
}

func (b *jsonBuilder) set(key string, row int, v datatable.Value) {
	c, ok := b.index[key]
	if !ok {
		c = len(b.names)
		b.index[key] = c
		b.names = append(b.names, key)
		b.values = append(b.values, nil)
	}
	for len(b.values[c]) < row {
		b.values[c] = append(b.values[c], datatable.NewNullValue(datatable.TypeString))
	}
	if len(b.values[c]) == row {
		b.values[c] = append(b.values[c], v)
	} else {
		b.values[c][row] = v
	}
}

func (b *jsonBuilder) table() (*datatable.Table, error) {
	cols := make([]*datatable.Column, len(b.names))
	for c, name := range b.names {
		values := b.values[c]
		for len(values) < b.rows {
			values = append(values, datatable.NewNullValue(datatable.TypeString))
		}
		col, err := unifyColumn(name, values)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	return datatable.NewTable(cols...)
}

// unifyColumn casts values to their common type.
func unifyColumn(name string, values []datatable.Value) (*datatable.Column, error) {
	dataType, elemType, err := commonType(values)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	out := make([]datatable.Value, len(values))
	for i, v := range values {
		if out[i], err = castTo(v, dataType, elemType); err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
	}
	if dataType == datatable.TypeList {
		return datatable.NewListColumn(name, elemType, out)
	}
	return datatable.NewColumn(name, dataType, out)
}

// commonType returns the type all non-null values share, and for lists the
// common element type. An all-null column is String.
func commonType(values []datatable.Value) (datatable.DataType, datatable.DataType, error) {
	var dataType, elemType datatable.DataType
	seen, seenElem := false, false

	for _, v := range values {
		if v.IsNull {
			continue
		}
		if !seen {
			dataType, seen = v.Type, true
		} else if t, err := datatable.CommonType(dataType, v.Type); err != nil {
			return 0, 0, err
		} else {
			dataType = t
		}
		if v.Type != datatable.TypeList {
			continue
		}
		et, ok, err := commonElemType(v.List())
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			continue
		}
		if !seenElem {
			elemType, seenElem = et, true
		} else if elemType, err = datatable.CommonType(elemType, et); err != nil {
			return 0, 0, err
		}
	}

	if !seen {
		return datatable.TypeString, datatable.TypeString, nil
	}
	if !seenElem {
		elemType = datatable.TypeString
	}
	return dataType, elemType, nil
}

func commonElemType(elems []datatable.Value) (datatable.DataType, bool, error) {
	t, _, err := commonType(elems)
	for _, e := range elems {
		if !e.IsNull {
			return t, true, err
		}
	}
	return 0, false, nil
}

func castTo(v datatable.Value, dataType, elemType datatable.DataType) (datatable.Value, error) {
	if v.IsNull {
		return datatable.NewNullValue(dataType), nil
	}
	if dataType != datatable.TypeList {
		return datatable.Cast(v, dataType)
	}
	elems := v.List()
	out := make([]datatable.Value, len(elems))
	for i, e := range elems {
		c, err := castTo(e, elemType, elemType)
		if err != nil {
			return datatable.Value{}, err
		}
		out[i] = c
	}
	return datatable.NewValue(out, datatable.TypeList), nil
}

// jsonToValue converts a decoded JSON value.
func jsonToValue(raw interface{}) (datatable.Value, error) {
	switch x := raw.(type) {
	case nil:
		return datatable.NewNullValue(datatable.TypeString), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return datatable.NewValue(i, datatable.TypeInt), nil
		}
		f, err := x.Float64()
		if err != nil {
			return datatable.Value{}, fmt.Errorf("%w: number %s", datatable.ErrTypeMismatch, x)
		}
		return datatable.NewValue(f, datatable.TypeFloat), nil
	case []interface{}:
		elems := make([]datatable.Value, len(x))
		for i, e := range x {
			v, err := jsonToValue(e)
			if err != nil {
				return datatable.Value{}, err
			}
			elems[i] = v
		}
		return datatable.NewValue(elems, datatable.TypeList), nil
	case map[string]interface{}:
		text, err := json.Marshal(x)
		if err != nil {
			return datatable.Value{}, err
		}
		return datatable.NewValue(string(text), datatable.TypeString), nil
	}
	return datatable.ValueOf(raw)
}
