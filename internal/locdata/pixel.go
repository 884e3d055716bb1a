package locdata

// IndexPixels computes the discrete pixel coordinate of every localization
// from the rendered bin geometry, replacing any pre-existing pixel columns.
// Render calls this as its final step; it is exported so pixel columns can be
// recomputed after table edits without re-binning. The axis origin comes from
// the stored edges, not the live table, so dropping rows does not shift the
// mapping.
func (pc *PointCloud) IndexPixels() error {
	if !pc.Rendered() {
		return ErrNotRendered
	}

	axes := pc.axisColumns()
	n := pc.Table.Len()
	pixels := make([][]int64, pc.Dim)
	for a, col := range axes {
		px := make([]int64, n)
		pixels[a] = px
		min := pc.HistoEdges[a][0]
		bins := len(pc.HistoEdges[a]) - 1
		for r, c := range col {
			px[r] = int64(binIndex(c, min, pc.BinSizes[a], bins))
		}
	}

	pc.Table.XPixel = pixels[0]
	pc.Table.YPixel = pixels[1]
	if pc.Dim == 3 {
		pc.Table.ZPixel = pixels[2]
	} else {
		pc.Table.ZPixel = nil
	}
	return nil
}
