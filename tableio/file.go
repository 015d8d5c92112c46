// Package tableio reads and writes datatable tables as CSV, JSON, Parquet
// and Arrow, and loads tables from Delta Sharing servers.
package tableio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/magpierre/pivotwider/datatable"
)

// FileType represents the type of a data file.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeParquet
	FileTypeJSON
	FileTypeDeltaSharingProfile
)

// String returns the name of the file type.
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "CSV"
	case FileTypeParquet:
		return "Parquet"
	case FileTypeJSON:
		return "JSON"
	case FileTypeDeltaSharingProfile:
		return "Delta Sharing Profile"
	default:
		return "Unknown"
	}
}

// ErrUnsupportedFormat is returned for files whose type cannot be handled.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFileType determines the file type from the extension, and for JSON
// extensions from the content.
func DetectFileType(filePath string, content []byte) FileType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".tsv":
		return FileTypeCSV
	case ".parquet":
		return FileTypeParquet
	case ".json", ".share", ".txt":
		if isDeltaSharingProfile(content) {
			return FileTypeDeltaSharingProfile
		}
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}

// isDeltaSharingProfile checks for the shareCredentialsVersion, endpoint
// and bearerToken keys of a Delta Sharing profile.
func isDeltaSharingProfile(content []byte) bool {
	var profile map[string]interface{}
	if err := json.Unmarshal(content, &profile); err != nil {
		return false
	}

	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasBearerToken := profile["bearerToken"]

	return hasVersion && hasEndpoint && hasBearerToken
}

// ReadFile loads a CSV, JSON or Parquet file.
func ReadFile(ctx context.Context, filePath string) (*datatable.Table, error) {
	if strings.ToLower(filepath.Ext(filePath)) == ".parquet" {
		t, err := ReadParquet(ctx, filePath)
		if err != nil {
			return nil, err
		}
		return withSource(t, filePath, FileTypeParquet), nil
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var t *datatable.Table
	ft := DetectFileType(filePath, content)
	switch ft {
	case FileTypeCSV:
		t, err = ReadCSV(bytes.NewReader(content), 0)
	case FileTypeJSON:
		t, err = ReadJSON(bytes.NewReader(content))
	case FileTypeDeltaSharingProfile:
		return nil, fmt.Errorf("%w: %s is a Delta Sharing profile, not a data file", ErrUnsupportedFormat, filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filePath, err)
	}
	return withSource(t, filePath, ft), nil
}

func withSource(t *datatable.Table, filePath string, ft FileType) *datatable.Table {
	md := datatable.Metadata{}
	for k, v := range t.Metadata() {
		md[k] = v
	}
	md["source"] = filePath
	md["file_type"] = ft.String()
	return t.WithMetadata(md)
}

// WriteFile writes t in the format named by the extension of filePath.
func WriteFile(filePath string, t *datatable.Table) (err error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return WriteTo(f, t, format)
}

// Formats lists the output formats WriteTo accepts.
var Formats = []string{"csv", "tsv", "json", "parquet"}

// WriteTo writes t to w in the given format. TSV is CSV separated by tabs.
func WriteTo(w io.Writer, t *datatable.Table, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return WriteCSV(w, t, ',')
	case "tsv":
		return WriteCSV(w, t, '\t')
	case "json":
		return WriteJSON(w, t)
	case "parquet":
		return WriteParquet(w, t)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
