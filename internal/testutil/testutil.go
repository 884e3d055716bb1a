// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/locus.report/internal/locdata"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// TwoChannelCloud builds the canonical 3-localization fixture: channel 0 at
// (0,0) and (10,10), channel 1 at (5,5). Most binning and round-trip tests
// start from this shape.
func TwoChannelCloud(t *testing.T) *locdata.PointCloud {
	t.Helper()
	table := &locdata.Table{
		Channel: []int64{0, 0, 1},
		X:       []float64{0, 10, 5},
		Y:       []float64{0, 10, 5},
	}
	pc, err := locdata.NewPointCloud("fixture", 2, table, []string{"egfr", "ereg"})
	AssertNoError(t, err)
	return pc
}

// WriteTempCSV writes rows (header included) to a temp CSV file and returns
// its path. The file is removed when the test finishes.
func WriteTempCSV(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
