package locdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// LabelGrid is a dense integer label mask aligned to the histogram pixel
// grid. Label 0 is reserved for background; every other value is a distinct
// annotation class. Storage is row-major with x as the slowest axis, the
// same orientation as CountGrid.
type LabelGrid struct {
	Dims   []int   `json:"dims"`
	Labels []int64 `json:"labels"`
}

// NewLabelGrid allocates a zeroed (all-background) grid.
func NewLabelGrid(dims ...int) *LabelGrid {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &LabelGrid{Dims: append([]int(nil), dims...), Labels: make([]int64, n)}
}

// At returns the label at the given pixel.
func (g *LabelGrid) At(idx ...int) int64 {
	flat := 0
	for i, v := range idx {
		flat = flat*g.Dims[i] + v
	}
	return g.Labels[flat]
}

// Set writes the label at the given pixel.
func (g *LabelGrid) Set(label int64, idx ...int) {
	flat := 0
	for i, v := range idx {
		flat = flat*g.Dims[i] + v
	}
	g.Labels[flat] = label
}

// LoadLabelGrid reads a JSON-encoded label grid from disk.
func LoadLabelGrid(path string) (*LabelGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g LabelGrid
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse label grid %s: %w", path, err)
	}
	n := 1
	for _, d := range g.Dims {
		n *= d
	}
	if n != len(g.Labels) {
		return nil, fmt.Errorf("label grid %s: %v dims do not match %d labels",
			path, g.Dims, len(g.Labels))
	}
	return &g, nil
}

// ApplyMask joins each localization to the mask label at its pixel, writing
// the result as the gt_label column. The join is inner: rows whose pixel
// falls outside the mask extent are dropped from the table. Callers that
// need every row must pre-pad the mask to the full grid.
//
// Only 2D masks are supported; 3D reconciliation returns
// ErrMask3DUnsupported. A nil argument falls back to the attached
// pc.Mask, and ErrMissingMask when neither is present; callers treat that
// as "no labels drawn" and continue.
func (pc *PointCloud) ApplyMask(mask *LabelGrid) error {
	if mask == nil {
		mask = pc.Mask
	}
	if mask == nil {
		return ErrMissingMask
	}
	if pc.Dim != 2 {
		return ErrMask3DUnsupported
	}
	if !pc.Table.HasPixels() {
		return ErrNotRendered
	}
	shape, err := pc.GridShape()
	if err != nil {
		return err
	}
	if len(mask.Dims) != 2 || mask.Dims[0] != shape[0] || mask.Dims[1] != shape[1] {
		return fmt.Errorf("%w: mask %v, grid %v", ErrMaskShapeMismatch, mask.Dims, shape)
	}

	keep := make([]int, 0, pc.Table.Len())
	labels := make([]int64, 0, pc.Table.Len())
	for r := 0; r < pc.Table.Len(); r++ {
		xp := int(pc.Table.XPixel[r])
		yp := int(pc.Table.YPixel[r])
		if xp < 0 || xp >= mask.Dims[0] || yp < 0 || yp >= mask.Dims[1] {
			continue
		}
		keep = append(keep, r)
		labels = append(labels, mask.At(xp, yp))
	}

	pc.Table = pc.Table.selectRows(keep)
	pc.Table.GTLabel = labels
	pc.Mask = mask
	return nil
}

// RenderSegmentation rebuilds a label grid from the gt_label and pixel
// columns. The grid is sized to the maximum pixel seen, so it matches the
// histogram grid whenever the full extent is populated.
func (pc *PointCloud) RenderSegmentation() (*LabelGrid, error) {
	if !pc.Table.HasPixels() {
		return nil, ErrNotRendered
	}
	if !pc.Table.HasLabels() {
		return nil, ErrMissingMask
	}
	if pc.Dim != 2 {
		return nil, ErrMask3DUnsupported
	}

	var w, h int64
	for r := 0; r < pc.Table.Len(); r++ {
		if pc.Table.XPixel[r]+1 > w {
			w = pc.Table.XPixel[r] + 1
		}
		if pc.Table.YPixel[r]+1 > h {
			h = pc.Table.YPixel[r] + 1
		}
	}
	grid := NewLabelGrid(int(w), int(h))
	for r := 0; r < pc.Table.Len(); r++ {
		grid.Set(pc.Table.GTLabel[r], int(pc.Table.XPixel[r]), int(pc.Table.YPixel[r]))
	}
	return grid, nil
}
