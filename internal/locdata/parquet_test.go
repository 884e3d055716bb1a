package locdata_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/locus.report/internal/locdata"
	"github.com/banshee-data/locus.report/internal/testutil"
)

func TestParquetRoundTrip(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)
	testutil.AssertNoError(t, pc.Render(2, 2))

	mask := locdata.NewLabelGrid(2, 2)
	mask.Set(1, 0, 0)
	testutil.AssertNoError(t, pc.ApplyMask(mask))
	pc.GTLabelMap = map[int64]string{0: "background", 1: "membrane"}

	path := filepath.Join(t.TempDir(), "fixture.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)

	if got.Name != pc.Name {
		t.Errorf("name = %q, want %q", got.Name, pc.Name)
	}
	if got.Dim != pc.Dim {
		t.Errorf("dim = %d, want %d", got.Dim, pc.Dim)
	}
	if diff := cmp.Diff(pc.Table, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.Channels, got.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.ChannelLabels, got.ChannelLabels); diff != "" {
		t.Errorf("channel labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.BinSizes, got.BinSizes); diff != "" {
		t.Errorf("bin sizes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.HistoEdges, got.HistoEdges); diff != "" {
		t.Errorf("histogram edges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.GTLabelMap, got.GTLabelMap); diff != "" {
		t.Errorf("gt label map mismatch (-want +got):\n%s", diff)
	}
}

func TestParquetRoundTrip3DWithFrame(t *testing.T) {
	table := &locdata.Table{
		Channel: []int64{0, 1},
		X:       []float64{0, 10},
		Y:       []float64{0, 20},
		Z:       []float64{0, 30},
		Frame:   []int64{1, 2},
	}
	pc, err := locdata.NewPointCloud("stack", 3, table, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, pc.Render(2, 2, 2))

	path := filepath.Join(t.TempDir(), "stack.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(pc.Table, got.Table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	if !got.Table.HasZ() || !got.Table.HasFrame() || got.Table.ZPixel == nil {
		t.Errorf("optional columns lost: z=%v frame=%v z_pixel=%v",
			got.Table.HasZ(), got.Table.HasFrame(), got.Table.ZPixel != nil)
	}
}

func TestSaveParquetNoOverwrite(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)
	path := filepath.Join(t.TempDir(), "keep.parquet")
	require.NoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A second save without Overwrite must fail and leave the original
	// bytes untouched.
	pc.Name = "changed"
	err = locdata.SaveParquet(pc, path, locdata.SaveOptions{})
	require.ErrorIs(t, err, locdata.ErrFileExists)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	if !bytes.Equal(before, after) {
		t.Error("failed save modified the existing file")
	}

	// With Overwrite set the save succeeds.
	require.NoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{Overwrite: true}))
	got, err := locdata.LoadParquet(path)
	require.NoError(t, err)
	require.Equal(t, "changed", got.Name)
}

func TestSaveParquetDropZeroLabel(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)
	testutil.AssertNoError(t, pc.Render(2, 2))

	mask := locdata.NewLabelGrid(2, 2)
	mask.Set(4, 1, 1) // only (10,10) gets a real label
	testutil.AssertNoError(t, pc.ApplyMask(mask))

	path := filepath.Join(t.TempDir(), "labelled.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path,
		locdata.SaveOptions{DropZeroLabel: true}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if got.Table.Len() != 1 {
		t.Fatalf("row count = %d, want 1 after dropping background", got.Table.Len())
	}
	if got.Table.GTLabel[0] != 4 {
		t.Errorf("surviving label = %d, want 4", got.Table.GTLabel[0])
	}
	// The in-memory table keeps all rows; only the file is filtered.
	if pc.Table.Len() != 3 {
		t.Errorf("in-memory row count = %d, want 3", pc.Table.Len())
	}
}

func TestSaveParquetDropPixelColumns(t *testing.T) {
	pc := testutil.TwoChannelCloud(t)
	testutil.AssertNoError(t, pc.Render(2, 2))

	path := filepath.Join(t.TempDir(), "nopixels.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path,
		locdata.SaveOptions{DropPixelColumns: true}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if got.Table.HasPixels() {
		t.Error("pixel columns survived DropPixelColumns")
	}
	if got.Table.Len() != 3 {
		t.Errorf("row count = %d, want 3", got.Table.Len())
	}
}

func TestSaveParquetEmptyTable(t *testing.T) {
	// An all-background table saved with DropZeroLabel leaves zero rows; the
	// file must still carry its metadata.
	pc := testutil.TwoChannelCloud(t)
	testutil.AssertNoError(t, pc.Render(2, 2))
	testutil.AssertNoError(t, pc.ApplyMask(locdata.NewLabelGrid(2, 2)))

	path := filepath.Join(t.TempDir(), "empty.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path,
		locdata.SaveOptions{DropZeroLabel: true}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if got.Table.Len() != 0 {
		t.Errorf("row count = %d, want 0", got.Table.Len())
	}
	if got.Name != "fixture" || got.Dim != 2 {
		t.Errorf("metadata lost: name=%q dim=%d", got.Name, got.Dim)
	}
	if diff := cmp.Diff([]string{"egfr", "ereg"}, got.ChannelLabels); diff != "" {
		t.Errorf("channel labels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadParquetRestoresGeometry(t *testing.T) {
	// A loaded cloud must be usable for mask reconciliation and pixel
	// re-indexing without re-rendering: the saved geometry carries over.
	pc := testutil.TwoChannelCloud(t)
	testutil.AssertNoError(t, pc.Render(2, 2))

	path := filepath.Join(t.TempDir(), "rendered.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if !got.Rendered() {
		t.Fatal("loaded cloud does not report rendered geometry")
	}
	shape, err := got.GridShape()
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff([]int{2, 2}, shape); diff != "" {
		t.Fatalf("grid shape mismatch (-want +got):\n%s", diff)
	}

	mask := locdata.NewLabelGrid(2, 2)
	mask.Set(7, 0, 0)
	testutil.AssertNoError(t, got.ApplyMask(mask))
	if diff := cmp.Diff([]int64{7, 0, 7}, got.Table.GTLabel); diff != "" {
		t.Errorf("gt_label mismatch (-want +got):\n%s", diff)
	}

	before := append([]int64(nil), got.Table.XPixel...)
	testutil.AssertNoError(t, got.IndexPixels())
	if diff := cmp.Diff(before, got.Table.XPixel); diff != "" {
		t.Errorf("re-indexing a loaded cloud changed pixels (-want +got):\n%s", diff)
	}
}

func TestLoadParquetUnrenderedStaysUnrendered(t *testing.T) {
	// A file saved before any render has no geometry; operations that need
	// it must fail cleanly, not panic.
	pc := testutil.TwoChannelCloud(t)
	path := filepath.Join(t.TempDir(), "raw.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	got, err := locdata.LoadParquet(path)
	testutil.AssertNoError(t, err)
	if got.Rendered() {
		t.Error("unrendered save reports rendered geometry")
	}
	if err := got.IndexPixels(); !errors.Is(err, locdata.ErrNotRendered) {
		t.Errorf("IndexPixels = %v, want ErrNotRendered", err)
	}
	if err := got.ApplyMask(locdata.NewLabelGrid(2, 2)); !errors.Is(err, locdata.ErrNotRendered) {
		t.Errorf("ApplyMask = %v, want ErrNotRendered", err)
	}
}

func TestLoadParquetMissingFile(t *testing.T) {
	_, err := locdata.LoadParquet(filepath.Join(t.TempDir(), "absent.parquet"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want os.ErrNotExist", err)
	}
}

func TestImportTableParquet(t *testing.T) {
	// A saved file doubles as a raw import source: map the canonical column
	// names and re-import only channel, x and y.
	pc := testutil.TwoChannelCloud(t)
	path := filepath.Join(t.TempDir(), "source.parquet")
	testutil.AssertNoError(t, locdata.SaveParquet(pc, path, locdata.SaveOptions{}))

	got, err := locdata.ImportTable(path, locdata.FormatParquet, 2, locdata.ColumnMap{
		Channel: "channel", X: "x", Y: "y",
	}, nil)
	testutil.AssertNoError(t, err)

	if got.Name != "source" {
		t.Errorf("name = %q, want %q", got.Name, "source")
	}
	if diff := cmp.Diff(pc.Table.X, got.Table.X); diff != "" {
		t.Errorf("x column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pc.Table.Channel, got.Table.Channel); diff != "" {
		t.Errorf("channel column mismatch (-want +got):\n%s", diff)
	}
}
