// Package filter implements column selectors for datatable sources: by name,
// position, type or pattern, their negation and AND/OR composition, plus a
// small expression language that compiles to the same selectors.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// NameSelector selects columns by exact name, in the order given.
type NameSelector struct {
	Names []string
}

// Select implements the ColumnSelector interface.
func (f *NameSelector) Select(src datatable.DataSource) ([]int, error) {
	index, err := columnIndex(src)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(f.Names))
	out := make([]int, 0, len(f.Names))
	for _, name := range f.Names {
		c, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", datatable.ErrColumnNotFound, name)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Description implements the ColumnSelector interface.
func (f *NameSelector) Description() string {
	return "name in [" + strings.Join(f.Names, ", ") + "]"
}

// PositionSelector selects columns by zero-based position, in the order given.
type PositionSelector struct {
	Positions []int
}

// Select implements the ColumnSelector interface.
func (f *PositionSelector) Select(src datatable.DataSource) ([]int, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}

	seen := make(map[int]bool, len(f.Positions))
	out := make([]int, 0, len(f.Positions))
	for _, p := range f.Positions {
		if p < 0 || p >= src.ColumnCount() {
			return nil, fmt.Errorf("%w: %d", datatable.ErrInvalidColumn, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// Description implements the ColumnSelector interface.
func (f *PositionSelector) Description() string {
	parts := make([]string, len(f.Positions))
	for i, p := range f.Positions {
		parts[i] = strconv.Itoa(p)
	}
	return "position in [" + strings.Join(parts, ", ") + "]"
}

// PredicateSelector selects, in table order, the columns a predicate accepts.
type PredicateSelector struct {
	// Match is called once per column.
	Match func(info ColumnInfo) bool

	// Label is returned by Description.
	Label string
}

// ColumnInfo describes one column to a predicate.
type ColumnInfo struct {
	Position int
	Name     string
	Type     datatable.DataType
}

// Select implements the ColumnSelector interface.
func (f *PredicateSelector) Select(src datatable.DataSource) ([]int, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}

	out := make([]int, 0)
	for c := 0; c < src.ColumnCount(); c++ {
		name, err := src.ColumnName(c)
		if err != nil {
			return nil, err
		}
		dt, err := src.ColumnType(c)
		if err != nil {
			return nil, err
		}
		if f.Match(ColumnInfo{Position: c, Name: name, Type: dt}) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Description implements the ColumnSelector interface.
func (f *PredicateSelector) Description() string {
	return f.Label
}

// Everything selects every column.
func Everything() *PredicateSelector {
	return &PredicateSelector{
		Match: func(ColumnInfo) bool { return true },
		Label: "everything",
	}
}

// OfType selects the columns whose type is one of types.
func OfType(types ...datatable.DataType) *PredicateSelector {
	want := make(map[datatable.DataType]bool, len(types))
	parts := make([]string, len(types))
	for i, dt := range types {
		want[dt] = true
		parts[i] = dt.String()
	}
	return &PredicateSelector{
		Match: func(info ColumnInfo) bool { return want[info.Type] },
		Label: "type in [" + strings.Join(parts, ", ") + "]",
	}
}

// Matching selects the columns whose name matches the regular expression.
func Matching(pattern string) (*PredicateSelector, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}
	return &PredicateSelector{
		Match: func(info ColumnInfo) bool { return re.MatchString(info.Name) },
		Label: "name matches /" + pattern + "/",
	}, nil
}

// NotSelector selects, in table order, every column Inner does not select.
type NotSelector struct {
	Inner datatable.ColumnSelector
}

// Select implements the ColumnSelector interface.
func (f *NotSelector) Select(src datatable.DataSource) ([]int, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}
	inner, err := f.Inner.Select(src)
	if err != nil {
		return nil, err
	}
	drop := toSet(inner)
	out := make([]int, 0, src.ColumnCount()-len(drop))
	for c := 0; c < src.ColumnCount(); c++ {
		if !drop[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Description implements the ColumnSelector interface.
func (f *NotSelector) Description() string {
	return "NOT " + f.Inner.Description()
}

func columnIndex(src datatable.DataSource) (map[string]int, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}
	index := make(map[string]int, src.ColumnCount())
	for c := 0; c < src.ColumnCount(); c++ {
		name, err := src.ColumnName(c)
		if err != nil {
			return nil, err
		}
		index[name] = c
	}
	return index, nil
}
