package locdata

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
)

// CSVOptions controls what ExportCSV writes. CSV has no metadata slot, so
// channel labels can only travel as an extra per-row column.
type CSVOptions struct {
	// DropZeroLabel filters out rows whose gt_label is background (0).
	DropZeroLabel bool
	// DropPixelColumns omits the x/y/z_pixel columns.
	DropPixelColumns bool
	// ChannelLabelColumn adds a chan_label column resolved from the
	// channel labels. Rows whose channel has no label are dropped, matching
	// an inner join against the label list.
	ChannelLabelColumn bool
	// Overwrite permits clobbering an existing file.
	Overwrite bool
}

// ExportCSV writes the localization table as plain CSV. Metadata (name, dim,
// bin sizes, label map) is not representable in CSV and is not written; use
// SaveParquet for a self-describing file.
func ExportCSV(pc *PointCloud, path string, opts CSVOptions) error {
	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (set Overwrite to replace)", ErrFileExists, path)
		}
	}

	table := pc.Table
	keep := make([]int, 0, table.Len())
	for r := 0; r < table.Len(); r++ {
		if opts.DropZeroLabel && table.HasLabels() && table.GTLabel[r] == BackgroundLabel {
			continue
		}
		if opts.ChannelLabelColumn && (table.Channel[r] < 0 || int(table.Channel[r]) >= len(pc.ChannelLabels)) {
			continue
		}
		keep = append(keep, r)
	}
	table = table.selectRows(keep)
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

	w := csv.NewWriter(f)
	header := table.Columns()
	if opts.ChannelLabelColumn {
		header = append(header, "chan_label")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for r := 0; r < table.Len(); r++ {
		record = record[:0]
		record = append(record,
			strconv.FormatInt(table.Channel[r], 10),
			formatCoord(table.X[r]),
			formatCoord(table.Y[r]),
		)
		if table.Z != nil {
			record = append(record, formatCoord(table.Z[r]))
		}
		if table.Frame != nil {
			record = append(record, strconv.FormatInt(table.Frame[r], 10))
		}
		if table.XPixel != nil {
			record = append(record,
				strconv.FormatInt(table.XPixel[r], 10),
				strconv.FormatInt(table.YPixel[r], 10))
		}
		if table.ZPixel != nil {
			record = append(record, strconv.FormatInt(table.ZPixel[r], 10))
		}
		if table.GTLabel != nil {
			record = append(record, strconv.FormatInt(table.GTLabel[r], 10))
		}
		if opts.ChannelLabelColumn {
			record = append(record, pc.ChannelLabels[table.Channel[r]])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	log.Printf("Exported %d localizations to %s", table.Len(), path)
	return nil
}

// formatCoord renders a coordinate with the shortest representation that
// parses back to the identical float64.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
