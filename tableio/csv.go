// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tableio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// NullTokens are the CSV cell texts read as null.
var NullTokens = []string{"", "NA"}

// inferOrder is the order in which column types are tried when reading CSV.
var inferOrder = []datatable.DataType{
	datatable.TypeInt,
	datatable.TypeFloat,
	datatable.TypeBool,
	datatable.TypeDate,
	datatable.TypeTimestamp,
}

// ReadCSV reads a CSV document with a header row. A zero sep is detected
// from the header line. Each column gets the first of Int, Float, Bool,
// Date and Timestamp that all its non-null cells parse as, else String.
func ReadCSV(r io.Reader, sep rune) (*datatable.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if sep == 0 {
		sep = detectCSVSeparator(firstLine(content))
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sep
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV has no header", datatable.ErrEmptyData)
	}

	header := records[0]
	cols := make([]*datatable.Column, len(header))
	for c, name := range header {
		cells := make([]string, len(records)-1)
		for i, rec := range records[1:] {
			cells[i] = strings.TrimSpace(rec[c])
		}
		col, err := inferColumn(strings.TrimSpace(name), cells)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}

	t, err := datatable.NewTable(cols...)
	if err != nil {
		return nil, err
	}
	return t.WithMetadata(datatable.Metadata{"separator": separatorName(sep)}), nil
}

// WriteCSV writes t with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, t *datatable.Table, sep rune) error {
	writer := csv.NewWriter(w)
	if sep != 0 {
		writer.Comma = sep
	}

	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for r := 0; r < t.RowCount(); r++ {
		row, err := t.Row(r)
		if err != nil {
			return err
		}
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = datatable.Text(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func isNullToken(s string) bool {
	for _, tok := range NullTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// inferColumn types a column of CSV cells.
func inferColumn(name string, cells []string) (*datatable.Column, error) {
	dataType := datatable.TypeString
	for _, candidate := range inferOrder {
		if parsesAs(cells, candidate) {
			dataType = candidate
			break
		}
	}

	values := make([]datatable.Value, len(cells))
	for i, s := range cells {
		if isNullToken(s) {
			values[i] = datatable.NewNullValue(dataType)
			continue
		}
		v, err := datatable.Parse(s, dataType)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		values[i] = v
	}
	return datatable.NewColumn(name, dataType, values)
}

// parsesAs reports whether every non-null cell parses as dataType and at
// least one cell is not null.
func parsesAs(cells []string, dataType datatable.DataType) bool {
	seen := false
	for _, s := range cells {
		if isNullToken(s) {
			continue
		}
		if _, err := datatable.Parse(s, dataType); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func firstLine(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSuffix(string(content), "\r")
}

// detectCSVSeparator picks the most frequent of comma, semicolon, tab and
// pipe in line, defaulting to comma.
func detectCSVSeparator(line string) rune {
	if line == "" {
		return ','
	}

	// Candidates in tie-break order.
	separators := []rune{',', ';', '\t', '|'}

	maxCount := 0
	detectedSep := ','
	for _, sep := range separators {
		if count := strings.Count(line, string(sep)); count > maxCount {
			maxCount = count
			detectedSep = sep
		}
	}
	return detectedSep
}

// separatorName returns a human-readable name for a separator.
func separatorName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(sep)
	}
}
