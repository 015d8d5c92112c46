package pivot

import (
	"fmt"

	"github.com/magpierre/pivotwider/datatable"
)

// Reserved column names of the spec table.
const (
	NameField  = ".name"
	ValueField = ".value"
)

// SpecEntry describes one output column.
type SpecEntry struct {
	// Name is the output column name.
	Name string
	// Value is the input column supplying the cells.
	Value string
	// Key holds the names_from values this column represents, one per
	// Spec.KeyColumns entry.
	Key []datatable.Value
}

// Spec is an explicit reshape specification: one entry per output column,
// in output order. A Spec is not modified by Wider.
type Spec struct {
	// KeyColumns are the names_from columns the entry keys refer to.
	KeyColumns []string
	// Entries are the output columns in their declared order.
	Entries []SpecEntry
}

// BuildSpec derives a spec from the distinct names_from combinations of data,
// in first-occurrence order. With one values_from column an entry is named
// namesPrefix followed by the key values joined by namesSep. With several,
// the value column name and namesSep are prepended and entries are ordered
// value-major.
func BuildSpec(data *datatable.Table, namesFrom, valuesFrom datatable.ColumnSelector, namesPrefix, namesSep string) (*Spec, error) {
	if data == nil {
		return nil, datatable.ErrNoDataSource
	}

	keyCols, err := datatable.SelectNames(namesFrom, data)
	if err != nil {
		return nil, fmt.Errorf("names_from: %w", err)
	}
	if len(keyCols) == 0 {
		return nil, fmt.Errorf("%w: names_from", ErrEmptySelection)
	}
	valueCols, err := datatable.SelectNames(valuesFrom, data)
	if err != nil {
		return nil, fmt.Errorf("values_from: %w", err)
	}
	if len(valueCols) == 0 {
		return nil, fmt.Errorf("%w: values_from", ErrEmptySelection)
	}

	cols, err := columnsOf(data, keyCols)
	if err != nil {
		return nil, err
	}
	keys := uniqueTuples(data, cols)

	base := make([]string, len(keys))
	for i, key := range keys {
		base[i] = namesPrefix + joinKey(key, namesSep)
	}

	spec := &Spec{
		KeyColumns: keyCols,
		Entries:    make([]SpecEntry, 0, len(valueCols)*len(keys)),
	}
	for _, value := range valueCols {
		for i, key := range keys {
			name := base[i]
			if len(valueCols) > 1 {
				name = value + namesSep + name
			}
			spec.Entries = append(spec.Entries, SpecEntry{Name: name, Value: value, Key: key})
		}
	}

	if dups := duplicates(spec.Names()); len(dups) > 0 {
		return nil, &DuplicateNamesError{Names: dups}
	}
	return spec, nil
}

// ValidateSpec checks that every entry has a name, a value column and a key
// of the right arity, and that names are unique. A key may repeat within a
// value column; the first such entry receives the cells and the others are
// filled.
func ValidateSpec(spec *Spec) error {
	if spec == nil {
		return &InvalidSpecError{Reason: "spec is nil"}
	}
	if len(spec.Entries) == 0 {
		return &InvalidSpecError{Reason: "spec has no entries"}
	}

	for _, name := range spec.KeyColumns {
		if name == NameField || name == ValueField {
			return &InvalidSpecError{Reason: fmt.Sprintf("key column %q is reserved", name)}
		}
	}
	if dups := duplicates(spec.KeyColumns); len(dups) > 0 {
		return &InvalidSpecError{Reason: "key columns are not unique", Err: &DuplicateNamesError{Names: dups}}
	}

	for i, e := range spec.Entries {
		if e.Name == "" {
			return &InvalidSpecError{Reason: fmt.Sprintf("entry %d: %s is missing", i, NameField)}
		}
		if e.Value == "" {
			return &InvalidSpecError{Reason: fmt.Sprintf("entry %d: %s is missing", i, ValueField)}
		}
		if len(e.Key) != len(spec.KeyColumns) {
			return &InvalidSpecError{Reason: fmt.Sprintf("entry %q has %d key values, expected %d",
				e.Name, len(e.Key), len(spec.KeyColumns))}
		}
	}

	if dups := duplicates(spec.Names()); len(dups) > 0 {
		return &InvalidSpecError{Reason: NameField + " is not unique", Err: &DuplicateNamesError{Names: dups}}
	}
	return nil
}

// Names returns the output column names in spec order.
func (s *Spec) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Name
	}
	return names
}

// ValueColumns returns the distinct value columns in first-occurrence order.
func (s *Spec) ValueColumns() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range s.Entries {
		if !seen[e.Value] {
			seen[e.Value] = true
			out = append(out, e.Value)
		}
	}
	return out
}

// entriesFor returns the entries fed by one value column, in spec order.
func (s *Spec) entriesFor(value string) []SpecEntry {
	var out []SpecEntry
	for _, e := range s.Entries {
		if e.Value == value {
			out = append(out, e)
		}
	}
	return out
}

// Table returns the spec as a table with the reserved .name and .value
// columns followed by one column per key column.
func (s *Spec) Table() (*datatable.Table, error) {
	n := len(s.Entries)
	names := make([]datatable.Value, n)
	values := make([]datatable.Value, n)
	for i, e := range s.Entries {
		names[i] = datatable.NewValue(e.Name, datatable.TypeString)
		values[i] = datatable.NewValue(e.Value, datatable.TypeString)
	}

	nameCol, _ := datatable.NewColumn(NameField, datatable.TypeString, names)
	valueCol, _ := datatable.NewColumn(ValueField, datatable.TypeString, values)
	cols := []*datatable.Column{nameCol, valueCol}

	for k, keyName := range s.KeyColumns {
		keyValues := make([]datatable.Value, n)
		for i, e := range s.Entries {
			if k < len(e.Key) {
				keyValues[i] = e.Key[k]
			} else {
				keyValues[i] = datatable.NewNullValue(datatable.TypeString)
			}
		}
		col, err := unifiedColumn(keyName, keyValues)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return datatable.NewTable(cols...)
}

// SpecFromTable reads a spec from a table with string .name and .value
// columns. Every other column is a key column.
func SpecFromTable(t *datatable.Table) (*Spec, error) {
	if t == nil {
		return nil, &InvalidSpecError{Reason: "spec table is nil"}
	}
	nameCol, err := t.Column(NameField)
	if err != nil {
		return nil, &InvalidSpecError{Reason: NameField + " column is missing", Err: err}
	}
	valueCol, err := t.Column(ValueField)
	if err != nil {
		return nil, &InvalidSpecError{Reason: ValueField + " column is missing", Err: err}
	}
	if nameCol.Type != datatable.TypeString || valueCol.Type != datatable.TypeString {
		return nil, &InvalidSpecError{Reason: NameField + " and " + ValueField + " must be strings"}
	}

	spec := &Spec{}
	var keyCols []*datatable.Column
	for _, name := range t.ColumnNames() {
		if name == NameField || name == ValueField {
			continue
		}
		col, _ := t.Column(name)
		spec.KeyColumns = append(spec.KeyColumns, name)
		keyCols = append(keyCols, col)
	}

	for row := 0; row < t.RowCount(); row++ {
		name, value := nameCol.Values[row], valueCol.Values[row]
		if name.IsNull {
			return nil, &InvalidSpecError{Reason: fmt.Sprintf("row %d: %s is missing", row, NameField)}
		}
		if value.IsNull {
			return nil, &InvalidSpecError{Reason: fmt.Sprintf("row %d: %s is missing", row, ValueField)}
		}
		spec.Entries = append(spec.Entries, SpecEntry{
			Name:  name.Raw.(string),
			Value: value.Raw.(string),
			Key:   project(keyCols, row),
		})
	}

	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// unifiedColumn builds a column from values that may mix compatible types.
func unifiedColumn(name string, values []datatable.Value) (*datatable.Column, error) {
	dataType, elemType, err := commonValueType(values)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	cast := make([]datatable.Value, len(values))
	for i, v := range values {
		if cast[i], err = datatable.Cast(v, dataType); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	}
	if dataType == datatable.TypeList {
		return datatable.NewListColumn(name, elemType, cast)
	}
	return datatable.NewColumn(name, dataType, cast)
}

// commonValueType returns the type every non-null value can be cast to,
// and the element type when that is a list. All-null input keeps the type
// of the first value.
func commonValueType(values []datatable.Value) (datatable.DataType, datatable.DataType, error) {
	if len(values) == 0 {
		return datatable.TypeString, datatable.TypeString, nil
	}

	dataType := values[0].Type
	first := true
	for _, v := range values {
		if v.IsNull {
			continue
		}
		if first {
			dataType, first = v.Type, false
			continue
		}
		t, err := datatable.CommonType(dataType, v.Type)
		if err != nil {
			return 0, 0, err
		}
		dataType = t
	}

	elemType := datatable.TypeString
	if dataType == datatable.TypeList {
		var elems []datatable.Value
		for _, v := range values {
			elems = append(elems, v.List()...)
		}
		if len(elems) > 0 {
			t, _, err := commonValueType(elems)
			if err != nil {
				return 0, 0, err
			}
			elemType = t
		}
	}
	return dataType, elemType, nil
}
