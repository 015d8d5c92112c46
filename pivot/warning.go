package pivot

import (
	"fmt"
	"strings"
)

// WarningCode identifies the kind of a non-fatal diagnostic.
type WarningCode string

// CodeAmbiguousCells is raised when several input rows map to one output
// cell and no aggregator was configured for the value column.
const CodeAmbiguousCells WarningCode = "ambiguous-cells"

// Warning is a non-fatal diagnostic raised while pivoting. Processing
// continues; the output shape may be degraded (list-valued cells).
type Warning struct {
	// Code is a unique identifier for this type of diagnostic.
	Code WarningCode
	// Message is the human-readable description.
	Message string
	// Column is the value column the warning relates to.
	Column string
	// Cells is the number of output cells with more than one contributor.
	Cells int
	// Suggestions are potential fixes or alternatives.
	Suggestions []string
}

// String renders the warning with its suggestions, one per line.
func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Message)
	for _, s := range w.Suggestions {
		b.WriteString("\n* ")
		b.WriteString(s)
	}
	return b.String()
}

// WarningHandler receives warnings as they are raised.
type WarningHandler func(Warning)

func ambiguousCellsWarning(column string, cells int) Warning {
	return Warning{
		Code:    CodeAmbiguousCells,
		Message: fmt.Sprintf("Values in %q are not uniquely identified; output will contain list-cols.", column),
		Column:  column,
		Cells:   cells,
		Suggestions: []string{
			fmt.Sprintf("Use WithValuesFnFor(%q, pivot.List) to suppress this warning.", column),
			fmt.Sprintf("Use WithValuesFnFor(%q, pivot.Length) to identify where the duplicates arise.", column),
			fmt.Sprintf("Use WithValuesFnFor(%q, <aggregator>) to summarise duplicates.", column),
		},
	}
}
