package locdata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// Metadata keys stored in the parquet file footer. Each value has a fixed
// text encoding (plain string for name, decimal for dim, JSON for the rest)
// and is parsed back to its native type on load.
const (
	metaName         = "name"
	metaDim          = "dim"
	metaChannels     = "channels"
	metaChannelLabel = "channel_label"
	metaGTLabelMap   = "gt_label_map"
	metaBinSizes     = "bin_sizes"
	metaHistoEdges   = "histo_edges"
	metaColumns      = "columns"
)

// parquetRow is the on-disk row shape. Optional columns are pointers so the
// schema stays fixed while absent columns encode as nulls; the metaColumns
// footer entry records which are live.
type parquetRow struct {
	Channel int64    `parquet:"channel"`
	X       float64  `parquet:"x"`
	Y       float64  `parquet:"y"`
	Z       *float64 `parquet:"z,optional"`
	Frame   *int64   `parquet:"frame,optional"`
	XPixel  *int64   `parquet:"x_pixel,optional"`
	YPixel  *int64   `parquet:"y_pixel,optional"`
	ZPixel  *int64   `parquet:"z_pixel,optional"`
	GTLabel *int64   `parquet:"gt_label,optional"`
}

// SaveOptions controls what SaveParquet writes.
type SaveOptions struct {
	// DropZeroLabel filters out rows whose gt_label is background (0).
	DropZeroLabel bool
	// DropPixelColumns omits the x/y/z_pixel columns.
	DropPixelColumns bool
	// Overwrite permits clobbering an existing file. When false and the
	// destination exists, SaveParquet fails with ErrFileExists and leaves
	// the file untouched.
	Overwrite bool
}

// SaveParquet writes the point cloud and its metadata to a single parquet
// file. The table goes in the column data; name, dim, channels, labels, the
// label map and the histogram geometry (bin sizes and edges) go in the
// footer key-value metadata, so the file is self-describing and LoadParquet
// can rebuild an identical entity.
func SaveParquet(pc *PointCloud, path string, opts SaveOptions) error {
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (set Overwrite to replace)", ErrFileExists, path)
		}
	}

	table := pc.Table
	if opts.DropZeroLabel && table.HasLabels() {
		keep := make([]int, 0, table.Len())
		for r := 0; r < table.Len(); r++ {
			if table.GTLabel[r] != BackgroundLabel {
				keep = append(keep, r)
			}
		}
		table = table.selectRows(keep)
	}
	if opts.DropPixelColumns {
		trimmed := *table
		trimmed.XPixel, trimmed.YPixel, trimmed.ZPixel = nil, nil, nil
		table = &trimmed
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	options := []parquet.WriterOption{
		parquet.KeyValueMetadata(metaName, pc.Name),
		parquet.KeyValueMetadata(metaDim, strconv.Itoa(pc.Dim)),
		parquet.KeyValueMetadata(metaChannels, mustJSON(pc.Channels)),
		parquet.KeyValueMetadata(metaChannelLabel, mustJSON(pc.ChannelLabels)),
		parquet.KeyValueMetadata(metaGTLabelMap, mustJSON(stringKeyed(pc.GTLabelMap))),
		parquet.KeyValueMetadata(metaBinSizes, mustJSON(pc.BinSizes)),
		parquet.KeyValueMetadata(metaHistoEdges, mustJSON(pc.HistoEdges)),
		parquet.KeyValueMetadata(metaColumns, mustJSON(table.Columns())),
	}

	w := parquet.NewGenericWriter[parquetRow](f, options...)
	rows := make([]parquetRow, table.Len())
	for r := range rows {
		rows[r] = parquetRow{
			Channel: table.Channel[r],
			X:       table.X[r],
			Y:       table.Y[r],
		}
		if table.Z != nil {
			rows[r].Z = &table.Z[r]
		}
		if table.Frame != nil {
			rows[r].Frame = &table.Frame[r]
		}
		if table.XPixel != nil {
			rows[r].XPixel = &table.XPixel[r]
			rows[r].YPixel = &table.YPixel[r]
		}
		if table.ZPixel != nil {
			rows[r].ZPixel = &table.ZPixel[r]
		}
		if table.GTLabel != nil {
			rows[r].GTLabel = &table.GTLabel[r]
		}
	}
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}

// LoadParquet reads a file written by SaveParquet and rebuilds the
// PointCloud, including every metadata field and the histogram geometry.
// The dense count grids themselves are not stored; mask reconciliation and
// pixel re-indexing work directly off the restored edges, and re-running
// Render with the same bin counts reproduces the grids.
func LoadParquet(path string) (*PointCloud, error) {
	canonical := []string{
		ColChannel, ColX, ColY, ColZ, ColFrame,
		ColXPixel, ColYPixel, ColZPixel, ColGTLabel,
	}
	raw, err := readParquetColumns(path, canonical)
	if err != nil {
		return nil, err
	}

	dim, err := strconv.Atoi(raw.meta[metaDim])
	if err != nil {
		return nil, fmt.Errorf("load %s: bad dim metadata %q", path, raw.meta[metaDim])
	}

	var channels []int64
	if err := decodeJSONMeta(raw.meta, metaChannels, &channels); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	var labels []string
	if err := decodeJSONMeta(raw.meta, metaChannelLabel, &labels); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	var binSizes []float64
	if err := decodeJSONMeta(raw.meta, metaBinSizes, &binSizes); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	var histoEdges [][]float64
	if err := decodeJSONMeta(raw.meta, metaHistoEdges, &histoEdges); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if histoEdges != nil && len(histoEdges) != len(binSizes) {
		return nil, fmt.Errorf("load %s: %d edge axes for %d bin sizes",
			path, len(histoEdges), len(binSizes))
	}
	for a, e := range histoEdges {
		if len(e) < 2 {
			return nil, fmt.Errorf("load %s: axis %d has %d edges, want at least 2",
				path, a, len(e))
		}
	}
	var rawMap map[string]string
	if err := decodeJSONMeta(raw.meta, metaGTLabelMap, &rawMap); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	gtMap := make(map[int64]string, len(rawMap))
	for k, v := range rawMap {
		label, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load %s: non-integer gt label key %q", path, k)
		}
		gtMap[label] = v
	}

	var columns []string
	if err := decodeJSONMeta(raw.meta, metaColumns, &columns); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	live := make(map[string]bool, len(columns))
	for _, c := range columns {
		live[c] = true
	}
	if columns == nil {
		// Foreign file without our column manifest: infer presence.
		for _, c := range canonical {
			if raw.has(c) && !raw.allNull(c) {
				live[c] = true
			}
		}
	}

	table := &Table{}
	if table.Channel, err = raw.ints(ColChannel); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if table.X, err = raw.floats(ColX); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if table.Y, err = raw.floats(ColY); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	optFloat := func(name string, dst *[]float64) error {
		if !live[name] {
			return nil
		}
		v, err := raw.floats(name)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		*dst = v
		return nil
	}
	optInt := func(name string, dst *[]int64) error {
		if !live[name] {
			return nil
		}
		v, err := raw.ints(name)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		*dst = v
		return nil
	}
	if err := optFloat(ColZ, &table.Z); err != nil {
		return nil, err
	}
	if err := optInt(ColFrame, &table.Frame); err != nil {
		return nil, err
	}
	if err := optInt(ColXPixel, &table.XPixel); err != nil {
		return nil, err
	}
	if err := optInt(ColYPixel, &table.YPixel); err != nil {
		return nil, err
	}
	if err := optInt(ColZPixel, &table.ZPixel); err != nil {
		return nil, err
	}
	if err := optInt(ColGTLabel, &table.GTLabel); err != nil {
		return nil, err
	}

	if dim == 3 && !table.HasZ() {
		return nil, fmt.Errorf("load %s: %w: dim 3 but no z column", path, ErrDimensionColumnMismatch)
	}
	if len(labels) > 0 && len(channels) > len(labels) {
		return nil, fmt.Errorf("load %s: %w", path, ErrLabelCountMismatch)
	}

	return &PointCloud{
		Name:          raw.meta[metaName],
		Dim:           dim,
		Table:         table,
		Channels:      channels,
		ChannelLabels: labels,
		BinSizes:      binSizes,
		HistoEdges:    histoEdges,
		GTLabelMap:    gtMap,
	}, nil
}

// mustJSON encodes a metadata value; the inputs are plain slices and maps so
// encoding cannot fail.
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// stringKeyed converts the label map to JSON-encodable string keys.
func stringKeyed(m map[int64]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.FormatInt(k, 10)] = v
	}
	return out
}

// decodeJSONMeta parses one JSON metadata value; a missing key or JSON null
// leaves dst at its zero value.
func decodeJSONMeta(meta map[string]string, key string, dst any) error {
	s, ok := meta[key]
	if !ok || s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("bad %s metadata %q: %v", key, s, err)
	}
	return nil
}

// columnSet holds the projected raw values of selected parquet columns plus
// the footer key-value metadata.
type columnSet struct {
	meta map[string]string
	cols map[string][]parquet.Value
	rows int
}

func (c *columnSet) has(name string) bool { return c.cols[name] != nil }

func (c *columnSet) allNull(name string) bool {
	for _, v := range c.cols[name] {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

func (c *columnSet) floats(name string) ([]float64, error) {
	vals, ok := c.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q not present", name)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, err := valueFloat(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func (c *columnSet) ints(name string) ([]int64, error) {
	vals, ok := c.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q not present", name)
	}
	out := make([]int64, len(vals))
	for i, v := range vals {
		n, err := valueInt(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = n
	}
	return out, nil
}

func valueFloat(v parquet.Value) (float64, error) {
	switch v.Kind() {
	case parquet.Double:
		return v.Double(), nil
	case parquet.Float:
		return float64(v.Float()), nil
	case parquet.Int64:
		return float64(v.Int64()), nil
	case parquet.Int32:
		return float64(v.Int32()), nil
	}
	return 0, fmt.Errorf("value kind %s is not numeric", v.Kind())
}

func valueInt(v parquet.Value) (int64, error) {
	switch v.Kind() {
	case parquet.Int64:
		return v.Int64(), nil
	case parquet.Int32:
		return int64(v.Int32()), nil
	case parquet.Double:
		return int64(v.Double()), nil
	case parquet.Float:
		return int64(v.Float()), nil
	}
	return 0, fmt.Errorf("value kind %s is not numeric", v.Kind())
}

// readParquetColumns opens a parquet file and projects the wanted columns
// (those present in the schema) into memory, along with the footer metadata.
// Files are read whole; there is no streaming contract.
func readParquetColumns(path string, want []string) (*columnSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	meta := make(map[string]string)
	for _, kv := range pf.Metadata().KeyValueMetadata {
		meta[kv.Key] = kv.Value
	}

	schema := pf.Schema()
	byIndex := make(map[int]string, len(want))
	cols := make(map[string][]parquet.Value, len(want))
	for _, name := range want {
		if lc, ok := schema.Lookup(name); ok {
			byIndex[lc.ColumnIndex] = name
			cols[name] = []parquet.Value{}
		}
	}

	rowCount := 0
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				rowCount++
				for _, v := range row {
					if name, ok := byIndex[v.Column()]; ok {
						cols[name] = append(cols[name], v.Clone())
					}
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			if n == 0 {
				break
			}
		}
		rows.Close()
	}

	return &columnSet{meta: meta, cols: cols, rows: rowCount}, nil
}
