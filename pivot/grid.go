package pivot

import (
	"errors"
	"fmt"

	"github.com/magpierre/pivotwider/datatable"
)

// errGridBounds indicates a cell offset outside the grid.
var errGridBounds = errors.New("pivot: cell outside grid")

// grid is a dense column-major matrix of cell values for one value column.
// The cell at (row, col) is stored at row + rows*col, so each output column
// is a contiguous run of the backing slice.
type grid struct {
	rows, cols int
	data       []datatable.Value
}

// newGrid allocates a rows×cols grid with every cell set to empty.
// Complexity: O(rows*cols) time and memory.
func newGrid(rows, cols int, empty datatable.Value) *grid {
	data := make([]datatable.Value, rows*cols)
	for i := range data {
		data[i] = empty
	}
	return &grid{rows: rows, cols: cols, data: data}
}

// at returns the cell at (row, col).
func (g *grid) at(row, col int) (datatable.Value, error) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return datatable.Value{}, fmt.Errorf("grid.at(%d,%d): %w", row, col, errGridBounds)
	}
	return g.data[row+g.rows*col], nil
}

// scatter writes values[i] to linear offset offsets[i].
func (g *grid) scatter(offsets []int, values []datatable.Value) error {
	for i, off := range offsets {
		if off < 0 || off >= len(g.data) {
			return fmt.Errorf("grid.scatter(%d): %w", off, errGridBounds)
		}
		g.data[off] = values[i]
	}
	return nil
}

// column returns the cells of column col. The slice aliases the grid.
func (g *grid) column(col int) []datatable.Value {
	return g.data[g.rows*col : g.rows*(col+1)]
}
