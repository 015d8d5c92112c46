package datatable

// DataSource provides read-only access to tabular data.
// Implementations must be thread-safe for concurrent reads.
// All methods should return errors rather than panic.
type DataSource interface {
	// RowCount returns the total number of rows in the data source.
	RowCount() int

	// ColumnCount returns the total number of columns in the data source.
	ColumnCount() int

	// ColumnName returns the name of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns the data type of the column at the given index.
	// Returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)

	// Cell returns the value at the specified row and column.
	// Returns ErrInvalidRow if row is out of range.
	// Returns ErrInvalidColumn if col is out of range.
	Cell(row, col int) (Value, error)

	// Row returns all values for the specified row.
	// Returns ErrInvalidRow if row is out of range.
	Row(row int) ([]Value, error)

	// Metadata returns optional metadata about the data source.
	// Returns an empty Metadata map if no metadata is available.
	Metadata() Metadata
}

// ColumnSelector picks a subset of a data source's columns.
// Implementations return column indices without duplicates, in the order the
// selection defines, and report unknown names as ErrColumnNotFound.
type ColumnSelector interface {
	// Select returns the indices of the selected columns.
	Select(src DataSource) ([]int, error)

	// Description returns a human-readable description of the selection.
	Description() string
}

// SelectNames resolves a selector against src and returns column names.
// A nil selector selects nothing.
func SelectNames(sel ColumnSelector, src DataSource) ([]string, error) {
	if src == nil {
		return nil, ErrNoDataSource
	}
	if sel == nil {
		return nil, nil
	}
	idx, err := sel.Select(src)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(idx))
	for i, c := range idx {
		name, err := src.ColumnName(c)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}
