package locdata

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// IntensityScale transforms histogram counts for display. The scaling is
// visualization-only; stored counts are never modified.
type IntensityScale string

const (
	ScaleLinear IntensityScale = "linear"
	ScaleLog2   IntensityScale = "log2"
	ScaleLog10  IntensityScale = "log10"
)

// Apply maps a raw count to display intensity. Log scales use log(1+v) so
// empty bins stay at zero.
func (s IntensityScale) Apply(v float64) (float64, error) {
	switch s {
	case ScaleLinear, "":
		return v, nil
	case ScaleLog2:
		return math.Log2(1 + v), nil
	case ScaleLog10:
		return math.Log10(1 + v), nil
	}
	return 0, fmt.Errorf("unknown intensity scale %q", s)
}

// histoGrid adapts one channel's count grid to gonum's heat-map interface.
// Bin centers in the original coordinate space label the axes.
type histoGrid struct {
	grid  *CountGrid
	edges [][]float64
	scale IntensityScale
}

func (h histoGrid) Dims() (c, r int) { return h.grid.Dims[0], h.grid.Dims[1] }

func (h histoGrid) Z(c, r int) float64 {
	v, _ := h.scale.Apply(float64(h.grid.At(c, r)))
	return v
}

func (h histoGrid) X(c int) float64 { return (h.edges[0][c] + h.edges[0][c+1]) / 2 }
func (h histoGrid) Y(r int) float64 { return (h.edges[1][r] + h.edges[1][r+1]) / 2 }

// HeatmapPNG renders one channel's 2D histogram to a PNG file. 3D data has
// no single-image rendering and is rejected.
func HeatmapPNG(pc *PointCloud, channel int64, scale IntensityScale, path string) error {
	if pc.Dim != 2 {
		return fmt.Errorf("heat map rendering is 2D only")
	}
	grid, ok := pc.Histo[channel]
	if !ok {
		return fmt.Errorf("channel %d has no rendered histogram", channel)
	}
	if _, err := scale.Apply(0); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s channel %d", pc.Name, channel)
	if name, err := pc.ChannelName(channel); err == nil {
		p.Title.Text = fmt.Sprintf("%s: %s", pc.Name, name)
	}
	p.X.Label.Text = "x (nm)"
	p.Y.Label.Text = "y (nm)"

	hm := plotter.NewHeatMap(histoGrid{grid: grid, edges: pc.HistoEdges, scale: scale}, palette.Heat(12, 1))
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save heat map: %w", err)
	}
	return nil
}
