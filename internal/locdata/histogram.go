package locdata

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// edgeInflation widens the raw bin width so the maximum-valued localization
// falls strictly inside the last bin instead of exactly on its upper edge.
// The factor is part of the on-disk geometry contract: edge sequences must be
// bit-compatible across runs, so it is applied exactly, once, per axis.
const edgeInflation = 1.001

// CountGrid is a dense N-dimensional histogram of localization counts.
// Counts are stored row-major with x as the slowest axis, matching the
// [X,Y,Z] orientation of the per-axis edge sequences.
type CountGrid struct {
	Dims   []int
	Counts []int64
}

// NewCountGrid allocates a zeroed grid with the given per-axis sizes.
func NewCountGrid(dims ...int) *CountGrid {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return &CountGrid{Dims: append([]int(nil), dims...), Counts: make([]int64, n)}
}

// index flattens per-axis bin indices. Callers guarantee bounds.
func (g *CountGrid) index(idx ...int) int {
	flat := 0
	for i, v := range idx {
		flat = flat*g.Dims[i] + v
	}
	return flat
}

// At returns the count at the given bin.
func (g *CountGrid) At(idx ...int) int64 { return g.Counts[g.index(idx...)] }

// Inc increments the count at the given bin.
func (g *CountGrid) Inc(idx ...int) { g.Counts[g.index(idx...)]++ }

// Total returns the sum of all bins.
func (g *CountGrid) Total() int64 {
	var sum int64
	for _, c := range g.Counts {
		sum += c
	}
	return sum
}

// Render bins the table into one count grid per channel and derives the
// reversible pixel index for every localization. The caller supplies the
// per-axis bin counts (x, y and, for 3D data, z).
//
// All channels share one geometry computed from the full table's extents so
// grids can be compared directly. Empty channels produce all-zero grids.
func (pc *PointCloud) Render(binCounts ...int) error {
	if len(binCounts) != pc.Dim {
		return fmt.Errorf("%w: got %d bin counts for %dD data",
			ErrInvalidBinCount, len(binCounts), pc.Dim)
	}
	for _, n := range binCounts {
		if n <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidBinCount, n)
		}
	}
	if pc.Table.Len() == 0 {
		return ErrEmptyTable
	}

	axes := pc.axisColumns()
	mins := make([]float64, pc.Dim)
	widths := make([]float64, pc.Dim)
	edges := make([][]float64, pc.Dim)
	for a, col := range axes {
		lo := floats.Min(col)
		hi := floats.Max(col)
		w := (hi - lo) / float64(binCounts[a]) * edgeInflation
		mins[a] = lo
		widths[a] = w
		e := make([]float64, binCounts[a]+1)
		for i := range e {
			e[i] = lo + w*float64(i)
		}
		edges[a] = e
	}
	pc.BinSizes = widths
	pc.HistoEdges = edges

	pc.Histo = make(map[int64]*CountGrid, len(pc.Channels))
	for _, ch := range pc.Channels {
		pc.Histo[ch] = NewCountGrid(binCounts...)
	}
	idx := make([]int, pc.Dim)
	for r := 0; r < pc.Table.Len(); r++ {
		for a, col := range axes {
			idx[a] = binIndex(col[r], mins[a], widths[a], binCounts[a])
		}
		pc.Histo[pc.Table.Channel[r]].Inc(idx...)
	}

	// Geometry and per-point pixel assignment always travel together.
	return pc.IndexPixels()
}

// axisColumns returns the spatial coordinate columns in axis order.
func (pc *PointCloud) axisColumns() [][]float64 {
	if pc.Dim == 3 {
		return [][]float64{pc.Table.X, pc.Table.Y, pc.Table.Z}
	}
	return [][]float64{pc.Table.X, pc.Table.Y}
}

// binIndex places a coordinate into its bin: floor((c-min)/width) clamped to
// the last valid bin. The clamp only fires when float rounding pushes the
// axis maximum one past the end; see Digitize for the edge-search equivalent.
// A zero width (all coordinates identical) maps everything to bin 0.
func binIndex(c, min, width float64, bins int) int {
	if width == 0 {
		return 0
	}
	i := int((c - min) / width)
	if i >= bins {
		i = bins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Digitize returns the 1-indexed bin placement of x against ordered edges:
// the count of edges less than or equal to x. Subtracting one yields the
// same bin as binIndex for in-range coordinates.
func Digitize(x float64, edges []float64) int {
	return sort.Search(len(edges), func(i int) bool { return edges[i] > x })
}
