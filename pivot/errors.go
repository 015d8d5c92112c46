package pivot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// Sentinel errors. Match them with errors.Is; the typed errors below carry
// the details and report themselves as their sentinel.
var (
	// ErrInvalidSpec is returned when a reshape spec is structurally invalid.
	ErrInvalidSpec = errors.New("pivot: invalid spec")

	// ErrDuplicateNames is returned when output column names collide.
	ErrDuplicateNames = errors.New("pivot: duplicate output column names")

	// ErrFillCardinality is returned when a fill value is not a single scalar.
	ErrFillCardinality = errors.New("pivot: fill value must be a single scalar")

	// ErrTypeCast is returned when a value cannot be cast to an output column type.
	ErrTypeCast = errors.New("pivot: type cast failed")

	// ErrUnknownValueColumn is returned when a fill or aggregator is configured
	// for a column that is not a value column.
	ErrUnknownValueColumn = errors.New("pivot: not a value column")

	// ErrEmptySelection is returned when names_from or values_from selects no columns.
	ErrEmptySelection = errors.New("pivot: selection is empty")
)

// InvalidSpecError reports why a spec failed validation.
type InvalidSpecError struct {
	Reason string
	Err    error
}

func (e *InvalidSpecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidSpec, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSpec, e.Reason)
}

// Is reports ErrInvalidSpec.
func (e *InvalidSpecError) Is(target error) bool { return target == ErrInvalidSpec }

// Unwrap returns the underlying cause, if any.
func (e *InvalidSpecError) Unwrap() error { return e.Err }

// DuplicateNamesError lists the output column names that occur more than once.
type DuplicateNamesError struct {
	Names []string
}

func (e *DuplicateNamesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateNames, strings.Join(e.Names, ", "))
}

// Is reports ErrDuplicateNames.
func (e *DuplicateNamesError) Is(target error) bool { return target == ErrDuplicateNames }

// FillCardinalityError names the value column whose fill is not a scalar.
type FillCardinalityError struct {
	Column string
}

func (e *FillCardinalityError) Error() string {
	return fmt.Sprintf("%s: column %q", ErrFillCardinality, e.Column)
}

// Is reports ErrFillCardinality.
func (e *FillCardinalityError) Is(target error) bool { return target == ErrFillCardinality }

// TypeCastError reports a failed cast into an output column.
type TypeCastError struct {
	Column string
	From   datatable.DataType
	To     datatable.DataType
	Err    error
}

func (e *TypeCastError) Error() string {
	return fmt.Sprintf("%s: column %q: %s to %s: %v", ErrTypeCast, e.Column, e.From, e.To, e.Err)
}

// Is reports ErrTypeCast.
func (e *TypeCastError) Is(target error) bool { return target == ErrTypeCast }

// Unwrap returns the underlying cast failure.
func (e *TypeCastError) Unwrap() error { return e.Err }

// duplicates returns the names occurring more than once, in first-seen order.
func duplicates(names []string) []string {
	count := make(map[string]int, len(names))
	var dups []string
	for _, n := range names {
		count[n]++
		if count[n] == 2 {
			dups = append(dups, n)
		}
	}
	return dups
}
