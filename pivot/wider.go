package pivot

import (
	"fmt"
	"sort"

	"github.com/magpierre/pivotwider/datatable"
)

// Wider reshapes a long table into a wide one. Each distinct id tuple
// becomes an output row and each spec entry an output column, filled from
// the rows whose names_from values match the entry's key.
//
// Structural problems (an invalid spec, colliding names, a bad fill) return
// an error and no table. Cells with several contributors and no aggregator
// become lists and raise a Warning.
func Wider(data *datatable.Table, opts ...Option) (*datatable.Table, error) {
	if data == nil {
		return nil, datatable.ErrNoDataSource
	}
	o := gatherOptions(opts)

	spec, pivoted, err := o.resolveSpec(data)
	if err != nil {
		return nil, err
	}

	idNames, err := idColumns(data, pivoted, o.idCols)
	if err != nil {
		return nil, fmt.Errorf("id_cols: %w", err)
	}
	if dups := duplicates(append(append([]string(nil), idNames...), spec.Names()...)); len(dups) > 0 {
		return nil, &DuplicateNamesError{Names: dups}
	}

	valueNames := spec.ValueColumns()
	if err := o.validate(valueNames); err != nil {
		return nil, err
	}

	keyCols, err := columnsOf(data, spec.KeyColumns)
	if err != nil {
		return nil, fmt.Errorf("names_from: %w", err)
	}
	idCols, err := columnsOf(data, idNames)
	if err != nil {
		return nil, fmt.Errorf("id_cols: %w", err)
	}

	rows := resolveRows(data, idCols)
	o.logger.Debug("resolved rows", "input_rows", data.RowCount(), "output_rows", rows.count(), "id_cols", idNames)

	// Value columns are processed in name order; assemble restores spec order.
	order := append([]string(nil), valueNames...)
	sort.Strings(order)

	var valueCols []*datatable.Column
	for _, name := range order {
		cols, err := o.widen(data, name, spec.entriesFor(name), keyCols, rows)
		if err != nil {
			return nil, err
		}
		valueCols = append(valueCols, cols...)
	}

	return assemble(idCols, rows, valueCols, spec)
}

// widen produces the output columns fed by one value column.
func (o *options) widen(data *datatable.Table, name string, entries []SpecEntry, keyCols []*datatable.Column, rows *rowIdentity) ([]*datatable.Column, error) {
	values, err := data.Column(name)
	if err != nil {
		return nil, fmt.Errorf("values_from: %w", err)
	}

	colIdx, err := resolveColumns(keyCols, entries, data.RowCount())
	if err != nil {
		return nil, err
	}

	agg := o.aggregator(name)
	cells, err := resolveCells(values, rows.index, colIdx, rows.count(), agg)
	if err != nil {
		return nil, err
	}
	if agg == nil && cells.ambiguous > 0 {
		o.warn(ambiguousCellsWarning(name, cells.ambiguous))
	}

	empty := datatable.EmptyValue(cells.dataType)
	if raw, ok := o.fillValue(name); ok {
		if empty, err = resolveFill(name, raw, cells.dataType, cells.elemType); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("resolved value column",
		"column", name, "type", cells.dataType.String(), "output_cols", len(entries),
		"cells", len(cells.offsets), "ambiguous", cells.ambiguous)

	return materialize(cells, rows.count(), entries, empty)
}

// resolveSpec returns the configured spec after validation, or derives one,
// together with the names_from and values_from columns it pivots. A derived
// spec of an empty table has no entries but still consumes its value columns.
func (o *options) resolveSpec(data *datatable.Table) (*Spec, []string, error) {
	if o.spec == nil {
		spec, err := BuildSpec(data, o.namesFrom, o.valuesFrom, o.namesPrefix, o.namesSep)
		if err != nil {
			return nil, nil, err
		}
		valueCols, err := datatable.SelectNames(o.valuesFrom, data)
		if err != nil {
			return nil, nil, fmt.Errorf("values_from: %w", err)
		}
		return spec, append(append([]string(nil), spec.KeyColumns...), valueCols...), nil
	}

	if err := ValidateSpec(o.spec); err != nil {
		return nil, nil, err
	}
	pivoted := append(append([]string(nil), o.spec.KeyColumns...), o.spec.ValueColumns()...)
	for _, name := range pivoted {
		if _, err := data.ColumnIndex(name); err != nil {
			return nil, nil, &InvalidSpecError{Reason: "spec refers to a column not in the data", Err: err}
		}
	}
	return o.spec, pivoted, nil
}

// validate checks per-column fills and aggregators against the value
// columns and checks that every fill is a single value.
func (o *options) validate(valueNames []string) error {
	known := make(map[string]bool, len(valueNames))
	for _, name := range valueNames {
		known[name] = true
	}

	for _, name := range sortedKeys(o.fillFor) {
		if !known[name] {
			return fmt.Errorf("%w: values_fill for %q", ErrUnknownValueColumn, name)
		}
		if v := o.fillFor[name]; v != nil {
			if err := checkFill(name, v); err != nil {
				return err
			}
		}
	}
	for _, name := range sortedKeys(o.fnFor) {
		if !known[name] {
			return fmt.Errorf("%w: values_fn for %q", ErrUnknownValueColumn, name)
		}
	}

	if o.hasFill {
		for _, name := range valueNames {
			if err := checkFill(name, o.fill); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
