package locdata_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/locus.report/internal/locdata"
	"github.com/banshee-data/locus.report/internal/testutil"
)

func TestNewPointCloudDerivesChannels(t *testing.T) {
	table := &locdata.Table{
		Channel: []int64{2, 0, 2, 1, 0},
		X:       []float64{1, 2, 3, 4, 5},
		Y:       []float64{1, 2, 3, 4, 5},
	}
	pc, err := locdata.NewPointCloud("derive", 2, table, []string{"a", "b", "c"})
	testutil.AssertNoError(t, err)

	if diff := cmp.Diff([]int64{0, 1, 2}, pc.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPointCloudDimValidation(t *testing.T) {
	flat := &locdata.Table{Channel: []int64{0}, X: []float64{1}, Y: []float64{1}}
	deep := &locdata.Table{Channel: []int64{0}, X: []float64{1}, Y: []float64{1}, Z: []float64{1}}

	cases := []struct {
		name  string
		dim   int
		table *locdata.Table
	}{
		{"dim 4", 4, flat},
		{"dim 3 without z", 3, flat},
		{"dim 2 with z", 2, deep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := locdata.NewPointCloud("bad", tc.dim, tc.table, nil)
			if !errors.Is(err, locdata.ErrDimensionColumnMismatch) {
				t.Errorf("got %v, want ErrDimensionColumnMismatch", err)
			}
		})
	}
}

func TestNewPointCloudLabelCount(t *testing.T) {
	table := &locdata.Table{
		Channel: []int64{0, 1, 2},
		X:       []float64{1, 2, 3},
		Y:       []float64{1, 2, 3},
	}
	_, err := locdata.NewPointCloud("short", 2, table, []string{"only-one"})
	if !errors.Is(err, locdata.ErrLabelCountMismatch) {
		t.Errorf("got %v, want ErrLabelCountMismatch", err)
	}

	// More labels than channels is fine: labels name slots, not rows.
	_, err = locdata.NewPointCloud("long", 2, table, []string{"a", "b", "c", "d"})
	testutil.AssertNoError(t, err)
}

func TestChannelNameAndIndex(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)

	name, err := pc.ChannelName(1)
	testutil.AssertNoError(t, err)
	if name != "ereg" {
		t.Errorf("ChannelName(1) = %q, want %q", name, "ereg")
	}

	idx, err := pc.ChannelIndex("egfr")
	testutil.AssertNoError(t, err)
	if idx != 0 {
		t.Errorf("ChannelIndex(egfr) = %d, want 0", idx)
	}

	if _, err := pc.ChannelName(5); err == nil {
		t.Error("ChannelName(5) should fail on an unlabelled slot")
	}
	if _, err := pc.ChannelIndex("missing"); err == nil {
		t.Error("ChannelIndex(missing) should fail")
	}
}

func TestTableColumns(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)

	want := []string{"channel", "x", "y"}
	if diff := cmp.Diff(want, pc.Table.Columns()); diff != "" {
		t.Errorf("pre-render columns mismatch (-want +got):\n%s", diff)
	}

	testutil.AssertNoError(t, pc.Render(2, 2))
	want = []string{"channel", "x", "y", "x_pixel", "y_pixel"}
	if diff := cmp.Diff(want, pc.Table.Columns()); diff != "" {
		t.Errorf("post-render columns mismatch (-want +got):\n%s", diff)
	}
}

func TestGridShapeBeforeRender(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)
	if _, err := pc.GridShape(); !errors.Is(err, locdata.ErrNotRendered) {
		t.Errorf("got %v, want ErrNotRendered", err)
	}
}
