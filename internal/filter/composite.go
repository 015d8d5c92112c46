package filter

import (
	"fmt"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// LogicOp represents a logical operator for combining selectors.
type LogicOp int

const (
	// LogicAND keeps the columns every selector picks.
	LogicAND LogicOp = iota
	// LogicOR keeps the columns at least one selector picks.
	LogicOR
)

// String returns the string representation of a LogicOp.
func (op LogicOp) String() string {
	switch op {
	case LogicAND:
		return "AND"
	case LogicOR:
		return "OR"
	default:
		return fmt.Sprintf("unknown(%d)", op)
	}
}

// CompositeSelector combines multiple selectors with AND or OR logic.
// AND keeps the order of the first selector; OR keeps first-seen order.
type CompositeSelector struct {
	// Selectors is the list of selectors to combine.
	Selectors []datatable.ColumnSelector

	// Logic specifies how to combine the selectors (AND or OR).
	Logic LogicOp
}

// Select implements the ColumnSelector interface.
func (f *CompositeSelector) Select(src datatable.DataSource) ([]int, error) {
	if len(f.Selectors) == 0 {
		return []int{}, nil // Empty composite selects nothing
	}

	switch f.Logic {
	case LogicAND:
		result, err := f.Selectors[0].Select(src)
		if err != nil {
			return nil, err
		}
		for _, sel := range f.Selectors[1:] {
			if len(result) == 0 {
				return result, nil // Short-circuit once nothing is left
			}
			next, err := sel.Select(src)
			if err != nil {
				return nil, err
			}
			keep := toSet(next)
			filtered := result[:0:0]
			for _, c := range result {
				if keep[c] {
					filtered = append(filtered, c)
				}
			}
			result = filtered
		}
		return result, nil

	case LogicOR:
		seen := make(map[int]bool)
		result := make([]int, 0)
		for _, sel := range f.Selectors {
			next, err := sel.Select(src)
			if err != nil {
				return nil, err
			}
			for _, c := range next {
				if !seen[c] {
					seen[c] = true
					result = append(result, c)
				}
			}
		}
		return result, nil

	default:
		return nil, fmt.Errorf("%w: unknown logic operator %d", datatable.ErrInvalidFilter, f.Logic)
	}
}

// Description implements the ColumnSelector interface.
func (f *CompositeSelector) Description() string {
	if len(f.Selectors) == 0 {
		return "empty selection"
	}

	descriptions := make([]string, len(f.Selectors))
	for i, sel := range f.Selectors {
		descriptions[i] = sel.Description()
	}

	logicStr := f.Logic.String()
	return "(" + strings.Join(descriptions, " "+logicStr+" ") + ")"
}

func toSet(idx []int) map[int]bool {
	set := make(map[int]bool, len(idx))
	for _, c := range idx {
		set[c] = true
	}
	return set
}
