package locdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format tags the supported raw table encodings.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ext returns the filename extension stripped when deriving dataset names.
func (f Format) ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatParquet:
		return ".parquet"
	}
	return ""
}

// ColumnMap names the source columns holding each recognised role. Z is
// required for 3D imports and must be empty for 2D; Frame is optional.
type ColumnMap struct {
	Channel string
	X       string
	Y       string
	Z       string
	Frame   string
}

// names lists the mapped source column names in canonical order.
func (m ColumnMap) names(dim int) []string {
	cols := []string{m.Channel, m.X, m.Y}
	if dim == 3 {
		cols = append(cols, m.Z)
	}
	if m.Frame != "" {
		cols = append(cols, m.Frame)
	}
	return cols
}

// ImportTable reads a raw localization table and builds a PointCloud. Only
// the mapped columns are read; they are renamed to the canonical schema
// (channel, x, y, z, frame) so nothing downstream needs the source names.
// The dataset name is the source filename with directory and format
// extension stripped.
func ImportTable(path string, format Format, dim int, cols ColumnMap, channelLabels []string) (*PointCloud, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: dim must be 2 or 3, got %d", ErrDimensionColumnMismatch, dim)
	}
	if dim == 2 && cols.Z != "" {
		return nil, fmt.Errorf("%w: no z column may be mapped for 2D data", ErrDimensionColumnMismatch)
	}
	if dim == 3 && cols.Z == "" {
		return nil, fmt.Errorf("%w: a z column must be mapped for 3D data", ErrDimensionColumnMismatch)
	}

	var table *Table
	var err error
	switch format {
	case FormatCSV:
		table, err = readCSVTable(path, dim, cols)
	case FormatParquet:
		table, err = readParquetTable(path, dim, cols)
	default:
		return nil, fmt.Errorf("%w: %q (want csv or parquet)", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), format.ext())
	return NewPointCloud(name, dim, table, channelLabels)
}

// readCSVTable projects the mapped columns out of a CSV file.
func readCSVTable(path string, dim int, cols ColumnMap) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: missing header row", path)
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range cols.names(dim) {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("read %s: column %q not found", path, name)
		}
	}

	n := len(records) - 1
	table := &Table{
		Channel: make([]int64, n),
		X:       make([]float64, n),
		Y:       make([]float64, n),
	}
	if dim == 3 {
		table.Z = make([]float64, n)
	}
	if cols.Frame != "" {
		table.Frame = make([]int64, n)
	}

	for i, rec := range records[1:] {
		if table.Channel[i], err = parseIntField(rec[index[cols.Channel]]); err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.Channel, err)
		}
		if table.X[i], err = strconv.ParseFloat(rec[index[cols.X]], 64); err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.X, err)
		}
		if table.Y[i], err = strconv.ParseFloat(rec[index[cols.Y]], 64); err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.Y, err)
		}
		if dim == 3 {
			if table.Z[i], err = strconv.ParseFloat(rec[index[cols.Z]], 64); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.Z, err)
			}
		}
		if cols.Frame != "" {
			if table.Frame[i], err = parseIntField(rec[index[cols.Frame]]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.Frame, err)
			}
		}
	}
	return table, nil
}

// parseIntField parses an integer column value, tolerating float-formatted
// integers ("2.0") which some acquisition software emits.
func parseIntField(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// readParquetTable projects the mapped columns out of a parquet file.
func readParquetTable(path string, dim int, cols ColumnMap) (*Table, error) {
	raw, err := readParquetColumns(path, cols.names(dim))
	if err != nil {
		return nil, err
	}

	table := &Table{}
	if table.Channel, err = raw.ints(cols.Channel); err != nil {
		return nil, err
	}
	if table.X, err = raw.floats(cols.X); err != nil {
		return nil, err
	}
	if table.Y, err = raw.floats(cols.Y); err != nil {
		return nil, err
	}
	if dim == 3 {
		if table.Z, err = raw.floats(cols.Z); err != nil {
			return nil, err
		}
	}
	if cols.Frame != "" {
		if table.Frame, err = raw.ints(cols.Frame); err != nil {
			return nil, err
		}
	}
	return table, nil
}
