package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookupPreset(t *testing.T) {
	p, err := LookupPreset("default")
	if err != nil {
		t.Fatalf("LookupPreset: %v", err)
	}
	if p.XBins != 500 || p.YBins != 500 {
		t.Errorf("default preset = %+v, want 500x500", p)
	}

	if _, err := LookupPreset("nope"); err == nil {
		t.Error("unknown preset should fail")
	}
}

func TestBinCounts(t *testing.T) {
	p := BinningPreset{XBins: 10, YBins: 20, ZBins: 30}
	if diff := cmp.Diff([]int{10, 20}, p.BinCounts(2)); diff != "" {
		t.Errorf("2D counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{10, 20, 30}, p.BinCounts(3)); diff != "" {
		t.Errorf("3D counts mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBinCounts(t *testing.T) {
	got, err := ParseBinCounts("500, 250", 2)
	if err != nil {
		t.Fatalf("ParseBinCounts: %v", err)
	}
	if diff := cmp.Diff([]int{500, 250}, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"500", "a,b", "1,2,3"} {
		if _, err := ParseBinCounts(bad, 2); err == nil {
			t.Errorf("ParseBinCounts(%q, 2) should fail", bad)
		}
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames()
	for _, name := range names {
		if _, err := LookupPreset(name); err != nil {
			t.Errorf("listed preset %q does not resolve: %v", name, err)
		}
	}
	if len(names) != len(presets) {
		t.Errorf("PresetNames lists %d presets, map has %d", len(names), len(presets))
	}
}
