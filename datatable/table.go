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

package datatable

import (
	"fmt"
)

// Column is a named, uniformly typed sequence of values.
type Column struct {
	// Name is the column name, unique within a table.
	Name string

	// Type is the type shared by every value in the column.
	Type DataType

	// ElemType is the element type of a TypeList column. It is ignored for
	// other column types.
	ElemType DataType

	// Values holds one value per row.
	Values []Value
}

// NewColumn creates a column and checks that every value has the column's type.
// Null values are retyped to the column type.
func NewColumn(name string, dataType DataType, values []Value) (*Column, error) {
	col := &Column{Name: name, Type: dataType, Values: make([]Value, len(values))}
	for i, v := range values {
		if v.IsNull {
			col.Values[i] = NewNullValue(dataType)
			continue
		}
		if v.Type != dataType {
			return nil, fmt.Errorf("%w: column %q is %s but row %d holds %s",
				ErrTypeMismatch, name, dataType, i, v.Type)
		}
		col.Values[i] = v
	}
	return col, nil
}

// NewListColumn creates a TypeList column whose elements have elemType.
func NewListColumn(name string, elemType DataType, values []Value) (*Column, error) {
	col, err := NewColumn(name, TypeList, values)
	if err != nil {
		return nil, err
	}
	col.ElemType = elemType
	return col, nil
}

// StringColumn creates a non-null string column.
func StringColumn(name string, values ...string) *Column {
	col := &Column{Name: name, Type: TypeString, Values: make([]Value, len(values))}
	for i, v := range values {
		col.Values[i] = NewValue(v, TypeString)
	}
	return col
}

// IntColumn creates a non-null integer column.
func IntColumn(name string, values ...int64) *Column {
	col := &Column{Name: name, Type: TypeInt, Values: make([]Value, len(values))}
	for i, v := range values {
		col.Values[i] = NewValue(v, TypeInt)
	}
	return col
}

// FloatColumn creates a non-null float column.
func FloatColumn(name string, values ...float64) *Column {
	col := &Column{Name: name, Type: TypeFloat, Values: make([]Value, len(values))}
	for i, v := range values {
		col.Values[i] = NewValue(v, TypeFloat)
	}
	return col
}

// BoolColumn creates a non-null boolean column.
func BoolColumn(name string, values ...bool) *Column {
	col := &Column{Name: name, Type: TypeBool, Values: make([]Value, len(values))}
	for i, v := range values {
		col.Values[i] = NewValue(v, TypeBool)
	}
	return col
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	return len(c.Values)
}

// Clone returns a deep copy of the column header and value slice.
// Raw payloads are immutable by convention and shared.
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Type: c.Type, ElemType: c.ElemType, Values: values}
}

// Table is an in-memory, column-oriented DataSource.
// A Table is immutable after construction and safe for concurrent reads.
type Table struct {
	columns  []*Column
	index    map[string]int
	rows     int
	metadata Metadata
}

// NewTable creates a table from columns. Column names must be unique and all
// columns must have the same length. The columns are copied.
func NewTable(columns ...*Column) (*Table, error) {
	rows := 0
	if len(columns) > 0 && columns[0] != nil {
		rows = columns[0].Len()
	}
	return NewTableWithRows(rows, columns...)
}

// NewTableWithRows is NewTable with an explicit row count, so a table
// without columns can still have rows.
func NewTableWithRows(rows int, columns ...*Column) (*Table, error) {
	if rows < 0 {
		return nil, fmt.Errorf("%w: %d rows", ErrLengthMismatch, rows)
	}
	t := &Table{
		columns: make([]*Column, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}

	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("%w: column %d is nil", ErrInvalidColumn, i)
		}
		if _, exists := t.index[col.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrLengthMismatch, col.Name, col.Len(), t.rows)
		}
		t.index[col.Name] = i
		t.columns[i] = col.Clone()
	}

	return t, nil
}

// NewTableFromRows creates a table from row records. Each column's type is
// taken from its first non-nil value (String if every value is nil); the
// remaining values must have the same Go-derived type.
func NewTableFromRows(names []string, rows ...[]interface{}) (*Table, error) {
	values := make([][]Value, len(names))
	for c := range names {
		values[c] = make([]Value, len(rows))
	}

	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d",
				ErrLengthMismatch, r, len(row), len(names))
		}
		for c, raw := range row {
			v, err := ValueOf(raw)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", names[c], r, err)
			}
			values[c][r] = v
		}
	}

	columns := make([]*Column, len(names))
	for c, name := range names {
		dataType := TypeString
		elemType := TypeString
		for _, v := range values[c] {
			if !v.IsNull {
				dataType = v.Type
				if elems := v.List(); len(elems) > 0 {
					elemType = elems[0].Type
				}
				break
			}
		}
		col, err := NewColumn(name, dataType, values[c])
		if err != nil {
			return nil, err
		}
		col.ElemType = elemType
		columns[c] = col
	}

	return NewTableWithRows(len(rows), columns...)
}

// WithMetadata returns a shallow copy of the table carrying md.
func (t *Table) WithMetadata(md Metadata) *Table {
	out := *t
	out.metadata = make(Metadata, len(md))
	for k, v := range md {
		out.metadata[k] = v
	}
	return &out
}

// RowCount returns the total number of rows.
func (t *Table) RowCount() int {
	return t.rows
}

// ColumnCount returns the total number of columns.
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// ColumnName returns the name of the column at the given index.
func (t *Table) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(t.columns) {
		return "", fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return t.columns[col].Name, nil
}

// ColumnType returns the data type of the column at the given index.
func (t *Table) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(t.columns) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return t.columns[col].Type, nil
}

// Cell returns the value at the specified row and column.
func (t *Table) Cell(row, col int) (Value, error) {
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	if col < 0 || col >= len(t.columns) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return t.columns[col].Values[row], nil
}

// Row returns all values for the specified row.
func (t *Table) Row(row int) ([]Value, error) {
	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	out := make([]Value, len(t.columns))
	for i, col := range t.columns {
		out[i] = col.Values[row]
	}
	return out, nil
}

// Metadata returns a copy of the table metadata.
func (t *Table) Metadata() Metadata {
	out := make(Metadata, len(t.metadata))
	for k, v := range t.metadata {
		out[k] = v
	}
	return out
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return i, nil
}

// Column returns the named column. The returned column must not be modified.
func (t *Table) Column(name string) (*Column, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return t.columns[i], nil
}

// ColumnAt returns the column at position i. The returned column must not be modified.
func (t *Table) ColumnAt(i int) (*Column, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidColumn, i)
	}
	return t.columns[i], nil
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Select returns a new table holding the named columns in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	out, err := NewTableWithRows(t.rows, cols...)
	if err != nil {
		return nil, err
	}
	out.metadata = t.Metadata()
	return out, nil
}
