// Package locdata holds the canonical SMLM point-cloud data structure and
// the operations that transform it: import from tabular files, histogram
// rendering, pixel indexing, label-mask reconciliation, and persistence.
//
// A PointCloud owns its table exclusively; every stage mutates the same
// instance in place and nothing is shared between instances.
package locdata

import (
	"fmt"
	"sort"
)

// Canonical column names. The loader renames mapped source columns to these
// at import time; nothing downstream does dynamic column lookup.
const (
	ColChannel = "channel"
	ColX       = "x"
	ColY       = "y"
	ColZ       = "z"
	ColFrame   = "frame"
	ColXPixel  = "x_pixel"
	ColYPixel  = "y_pixel"
	ColZPixel  = "z_pixel"
	ColGTLabel = "gt_label"
)

// BackgroundLabel is the reserved gt_label value for unlabeled points.
const BackgroundLabel = 0

// Table is the columnar localization table. Channel, X and Y are always
// populated; the remaining columns are nil until the stage that produces
// them has run (or the source file carried them).
type Table struct {
	Channel []int64
	X       []float64
	Y       []float64
	Z       []float64 // nil for 2D data
	Frame   []int64   // nil when the source had no frame column

	XPixel []int64 // nil before pixel indexing
	YPixel []int64
	ZPixel []int64 // nil for 2D data

	GTLabel []int64 // nil before mask reconciliation
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Channel) }

// HasZ reports whether the table carries a z column.
func (t *Table) HasZ() bool { return t.Z != nil }

// HasFrame reports whether the table carries a frame column.
func (t *Table) HasFrame() bool { return t.Frame != nil }

// HasPixels reports whether pixel columns have been computed.
func (t *Table) HasPixels() bool { return t.XPixel != nil }

// HasLabels reports whether a gt_label column is present.
func (t *Table) HasLabels() bool { return t.GTLabel != nil }

// Columns lists the canonical names of the columns present, in schema order.
func (t *Table) Columns() []string {
	cols := []string{ColChannel, ColX, ColY}
	if t.HasZ() {
		cols = append(cols, ColZ)
	}
	if t.HasFrame() {
		cols = append(cols, ColFrame)
	}
	if t.HasPixels() {
		cols = append(cols, ColXPixel, ColYPixel)
		if t.ZPixel != nil {
			cols = append(cols, ColZPixel)
		}
	}
	if t.HasLabels() {
		cols = append(cols, ColGTLabel)
	}
	return cols
}

// selectRows builds a new table containing only the rows at the given
// indices, preserving column presence.
func (t *Table) selectRows(idx []int) *Table {
	out := &Table{
		Channel: make([]int64, len(idx)),
		X:       make([]float64, len(idx)),
		Y:       make([]float64, len(idx)),
	}
	if t.HasZ() {
		out.Z = make([]float64, len(idx))
	}
	if t.HasFrame() {
		out.Frame = make([]int64, len(idx))
	}
	if t.HasPixels() {
		out.XPixel = make([]int64, len(idx))
		out.YPixel = make([]int64, len(idx))
		if t.ZPixel != nil {
			out.ZPixel = make([]int64, len(idx))
		}
	}
	if t.HasLabels() {
		out.GTLabel = make([]int64, len(idx))
	}
	for i, r := range idx {
		out.Channel[i] = t.Channel[r]
		out.X[i] = t.X[r]
		out.Y[i] = t.Y[r]
		if out.Z != nil {
			out.Z[i] = t.Z[r]
		}
		if out.Frame != nil {
			out.Frame[i] = t.Frame[r]
		}
		if out.XPixel != nil {
			out.XPixel[i] = t.XPixel[r]
			out.YPixel[i] = t.YPixel[r]
		}
		if out.ZPixel != nil {
			out.ZPixel[i] = t.ZPixel[r]
		}
		if out.GTLabel != nil {
			out.GTLabel[i] = t.GTLabel[r]
		}
	}
	return out
}

// PointCloud is the canonical SMLM entity: one localization table plus the
// typed metadata needed to reproduce its pixel-grid geometry.
type PointCloud struct {
	// Name identifies the dataset; derived from the source filename with
	// directory and extension stripped.
	Name string

	// Dim is 2 or 3 and fixed for the lifetime of the entity.
	Dim int

	// Table holds the localizations. Owned exclusively by this PointCloud.
	Table *Table

	// Channels is the sorted set of distinct channel values observed in the
	// table. Derived, never set directly.
	Channels []int64

	// ChannelLabels names each channel slot (index = channel value). May be
	// empty; when present it must cover every observed channel.
	ChannelLabels []string

	// BinSizes holds per-axis bin widths. Nil before the first Render.
	BinSizes []float64

	// HistoEdges holds per-axis bin boundaries (len = bins+1 per axis).
	// Set together with BinSizes by Render.
	HistoEdges [][]float64

	// Histo maps channel value to its count grid over the shared geometry.
	Histo map[int64]*CountGrid

	// Mask is an externally supplied label grid aligned to the pixel grid.
	// Nil until a caller attaches one; consumed by ApplyMask.
	Mask *LabelGrid

	// GTLabelMap maps gt_label values to class names. Label 0 is reserved
	// for background. May be empty.
	GTLabelMap map[int64]string
}

// NewPointCloud assembles a PointCloud from a populated table, deriving the
// channel set and validating the label list against it.
func NewPointCloud(name string, dim int, table *Table, channelLabels []string) (*PointCloud, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: dim must be 2 or 3, got %d", ErrDimensionColumnMismatch, dim)
	}
	if dim == 3 && !table.HasZ() {
		return nil, fmt.Errorf("%w: dim 3 requires a z column", ErrDimensionColumnMismatch)
	}
	if dim == 2 && table.HasZ() {
		return nil, fmt.Errorf("%w: dim 2 forbids a z column", ErrDimensionColumnMismatch)
	}

	channels := distinctChannels(table.Channel)
	if len(channelLabels) > 0 && len(channels) > len(channelLabels) {
		return nil, fmt.Errorf("%w: %d channels, %d labels",
			ErrLabelCountMismatch, len(channels), len(channelLabels))
	}

	return &PointCloud{
		Name:          name,
		Dim:           dim,
		Table:         table,
		Channels:      channels,
		ChannelLabels: channelLabels,
		GTLabelMap:    map[int64]string{},
	}, nil
}

// distinctChannels returns the sorted set of distinct values.
func distinctChannels(vals []int64) []int64 {
	seen := make(map[int64]bool, 4)
	var out []int64
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChannelName returns the label for the given channel slot.
func (pc *PointCloud) ChannelName(channel int64) (string, error) {
	if channel < 0 || int(channel) >= len(pc.ChannelLabels) {
		return "", fmt.Errorf("no label for channel %d", channel)
	}
	return pc.ChannelLabels[channel], nil
}

// ChannelIndex returns the channel slot carrying the given label.
func (pc *PointCloud) ChannelIndex(label string) (int64, error) {
	for i, l := range pc.ChannelLabels {
		if l == label {
			return int64(i), nil
		}
	}
	return 0, fmt.Errorf("label %q is not present in the channel labels", label)
}

// Rendered reports whether histogram geometry is available, either from a
// Render call or restored by LoadParquet. Edges are the authoritative
// signal: bin sizes without edges (a foreign file) do not count as rendered.
func (pc *PointCloud) Rendered() bool { return pc.HistoEdges != nil }

// GridShape returns the per-axis bin counts of the rendered histogram.
func (pc *PointCloud) GridShape() ([]int, error) {
	if !pc.Rendered() {
		return nil, ErrNotRendered
	}
	shape := make([]int, len(pc.HistoEdges))
	for i, edges := range pc.HistoEdges {
		shape[i] = len(edges) - 1
	}
	return shape, nil
}
