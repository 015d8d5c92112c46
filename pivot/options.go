package pivot

import (
	"log/slog"

	"github.com/magpierre/pivotwider/datatable"
)

// Defaults applied when the corresponding option is not given.
const (
	// DefaultNamesFrom is the column supplying output column names.
	DefaultNamesFrom = "name"

	// DefaultValuesFrom is the column supplying cell values.
	DefaultValuesFrom = "value"

	// DefaultNamesSep joins key values, and the value column name when
	// several value columns are pivoted.
	DefaultNamesSep = "_"

	// DefaultNamesPrefix is prepended to every derived output column name.
	DefaultNamesPrefix = ""
)

// Option configures Wider.
type Option func(*options)

type options struct {
	idCols     datatable.ColumnSelector
	namesFrom  datatable.ColumnSelector
	valuesFrom datatable.ColumnSelector

	namesPrefix string
	namesSep    string

	// fill for every value column; hasFill distinguishes "no fill" from a nil fill.
	fill    interface{}
	hasFill bool
	fillFor map[string]interface{}

	fn    Aggregator
	fnFor map[string]Aggregator

	spec *Spec

	logger    *slog.Logger
	onWarning WarningHandler
}

func gatherOptions(opts []Option) *options {
	o := &options{
		namesFrom:   Cols(DefaultNamesFrom),
		valuesFrom:  Cols(DefaultValuesFrom),
		namesPrefix: DefaultNamesPrefix,
		namesSep:    DefaultNamesSep,
		fillFor:     make(map[string]interface{}),
		fnFor:       make(map[string]Aggregator),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithIDCols sets the columns identifying output rows. By default every
// column not used by names_from or values_from is an id column.
func WithIDCols(sel datatable.ColumnSelector) Option {
	return func(o *options) { o.idCols = sel }
}

// WithNamesFrom sets the columns whose values name the output columns.
func WithNamesFrom(sel datatable.ColumnSelector) Option {
	return func(o *options) { o.namesFrom = sel }
}

// WithValuesFrom sets the columns whose values fill the output cells.
func WithValuesFrom(sel datatable.ColumnSelector) Option {
	return func(o *options) { o.valuesFrom = sel }
}

// WithNamesPrefix sets the string prepended to every derived column name.
func WithNamesPrefix(prefix string) Option {
	return func(o *options) { o.namesPrefix = prefix }
}

// WithNamesSep sets the separator used when deriving column names.
func WithNamesSep(sep string) Option {
	return func(o *options) { o.namesSep = sep }
}

// WithValuesFill fills missing cells of every value column with v, cast to
// the column's output type. v must be a scalar Go value or a datatable.Value.
// A nil v leaves missing cells empty (null).
func WithValuesFill(v interface{}) Option {
	return func(o *options) {
		o.fill = v
		o.hasFill = v != nil
	}
}

// WithValuesFillFor fills missing cells of one value column. It takes
// precedence over WithValuesFill for that column.
func WithValuesFillFor(column string, v interface{}) Option {
	return func(o *options) { o.fillFor[column] = v }
}

// WithValuesFn summarises every cell of every value column with agg.
func WithValuesFn(agg Aggregator) Option {
	return func(o *options) { o.fn = agg }
}

// WithValuesFnFor summarises the cells of one value column with agg. It
// takes precedence over WithValuesFn for that column.
func WithValuesFnFor(column string, agg Aggregator) Option {
	return func(o *options) { o.fnFor[column] = agg }
}

// WithSpec pivots according to a pre-built spec instead of deriving one
// from names_from and values_from.
func WithSpec(spec *Spec) Option {
	return func(o *options) { o.spec = spec }
}

// WithLogger sets the logger for stage diagnostics and warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWarningHandler registers a callback receiving every warning.
func WithWarningHandler(h WarningHandler) Option {
	return func(o *options) { o.onWarning = h }
}

// fillValue returns the configured fill for a value column.
func (o *options) fillValue(column string) (interface{}, bool) {
	if v, ok := o.fillFor[column]; ok {
		return v, v != nil
	}
	return o.fill, o.hasFill
}

// aggregator returns the configured aggregator for a value column, or nil.
func (o *options) aggregator(column string) Aggregator {
	if agg, ok := o.fnFor[column]; ok {
		return agg
	}
	return o.fn
}

func (o *options) warn(w Warning) {
	o.logger.Warn(w.Message, "code", string(w.Code), "column", w.Column, "cells", w.Cells)
	if o.onWarning != nil {
		o.onWarning(w)
	}
}
