// Package config holds named binning presets for histogram rendering.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// BinningPreset is a named render geometry. ZBins is ignored for 2D data.
type BinningPreset struct {
	Name  string `json:"name"`
	XBins int    `json:"x_bins"`
	YBins int    `json:"y_bins"`
	ZBins int    `json:"z_bins,omitempty"`
}

// presets are the built-in geometries. "default" matches the conventional
// 500x500 SMLM reconstruction grid.
var presets = map[string]BinningPreset{
	"default": {Name: "default", XBins: 500, YBins: 500, ZBins: 50},
	"fine":    {Name: "fine", XBins: 1000, YBins: 1000, ZBins: 100},
	"coarse":  {Name: "coarse", XBins: 128, YBins: 128, ZBins: 16},
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (BinningPreset, error) {
	p, ok := presets[name]
	if !ok {
		return BinningPreset{}, fmt.Errorf("unknown binning preset %q (have: %s)",
			name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames lists the built-in preset names.
func PresetNames() []string {
	return []string{"coarse", "default", "fine"}
}

// BinCounts returns the per-axis counts for the given dimensionality.
func (p BinningPreset) BinCounts(dim int) []int {
	if dim == 3 {
		return []int{p.XBins, p.YBins, p.ZBins}
	}
	return []int{p.XBins, p.YBins}
}

// ParseBinCounts parses an explicit "x,y" or "x,y,z" bin-count flag value.
func ParseBinCounts(s string, dim int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != dim {
		return nil, fmt.Errorf("want %d comma-separated bin counts, got %q", dim, s)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad bin count %q: %v", p, err)
		}
		out[i] = n
	}
	return out, nil
}
