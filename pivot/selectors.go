package pivot

import (
	"github.com/magpierre/pivotwider/datatable"
	"github.com/magpierre/pivotwider/internal/filter"
)

// Cols selects columns by name, in the order given.
func Cols(names ...string) datatable.ColumnSelector {
	return &filter.NameSelector{Names: names}
}

// ColsAt selects columns by zero-based position, in the order given.
func ColsAt(positions ...int) datatable.ColumnSelector {
	return &filter.PositionSelector{Positions: positions}
}

// ColsOfType selects the columns of the given types, in table order.
func ColsOfType(types ...datatable.DataType) datatable.ColumnSelector {
	return filter.OfType(types...)
}

// ColsMatching selects the columns whose name matches a regular expression.
func ColsMatching(pattern string) (datatable.ColumnSelector, error) {
	sel, err := filter.Matching(pattern)
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// ColsWhere compiles a selection expression such as "type = Float AND name ~ est".
func ColsWhere(expr string) (datatable.ColumnSelector, error) {
	sel, err := filter.ParseExpression(expr)
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// Everything selects every column.
func Everything() datatable.ColumnSelector {
	return filter.Everything()
}

// AllOf selects the columns every selector picks.
func AllOf(sels ...datatable.ColumnSelector) datatable.ColumnSelector {
	return &filter.CompositeSelector{Selectors: sels, Logic: filter.LogicAND}
}

// AnyOf selects the columns any selector picks.
func AnyOf(sels ...datatable.ColumnSelector) datatable.ColumnSelector {
	return &filter.CompositeSelector{Selectors: sels, Logic: filter.LogicOR}
}

// Except selects every column sel does not pick.
func Except(sel datatable.ColumnSelector) datatable.ColumnSelector {
	return &filter.NotSelector{Inner: sel}
}
