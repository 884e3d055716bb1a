package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/banshee-data/locus.report/internal/catalog"
	"github.com/banshee-data/locus.report/internal/config"
	"github.com/banshee-data/locus.report/internal/fsutil"
	"github.com/banshee-data/locus.report/internal/locdata"
	"github.com/banshee-data/locus.report/internal/units"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the dataset catalog over HTTP. Dataset files are read
// through the FileSystem so handlers can be tested against an in-memory
// filesystem.
type Server struct {
	db    *catalog.DB
	fs    fsutil.FileSystem
	units string
}

func NewServer(db *catalog.DB, fs fsutil.FileSystem, displayUnits string) *Server {
	if displayUnits == "" || !units.IsValid(displayUnits) {
		displayUnits = units.NM
	}
	return &Server{
		db:    db,
		fs:    fs,
		units: displayUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets", s.listDatasets)
	mux.HandleFunc("/dataset", s.datasetDetail)
	mux.HandleFunc("/dataset/summary", s.datasetSummary)
	mux.HandleFunc("/dataset/heatmap", s.datasetHeatmap)
	mux.HandleFunc("/dataset/download", s.datasetDownload)
	mux.HandleFunc("/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	datasets, err := s.db.ListDatasets()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list datasets: %v", err))
		return
	}
	if datasets == nil {
		datasets = []catalog.Dataset{}
	}

	if err := json.NewEncoder(w).Encode(datasets); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write datasets")
		return
	}
}

func (s *Server) datasetDetail(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		d, ok := s.lookupDataset(w, r)
		if !ok {
			return
		}
		if err := json.NewEncoder(w).Encode(d); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write dataset")
		}
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			s.writeJSONError(w, http.StatusBadRequest, "Missing 'id' parameter")
			return
		}
		if err := s.db.DeleteDataset(id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.writeJSONError(w, http.StatusNotFound, "Dataset not found")
				return
			}
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to delete dataset: %v", err))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"deleted": id})
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// channelSummary is the per-channel slice of a render summary.
type channelSummary struct {
	Channel int64  `json:"channel"`
	Label   string `json:"label,omitempty"`
	Count   int64  `json:"count"`
}

// renderSummary is the response shape for /dataset/summary.
type renderSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Dim      int              `json:"dim"`
	Bins     []int            `json:"bins"`
	BinSizes []float64        `json:"bin_sizes"`
	Units    string           `json:"units"`
	Channels []channelSummary `json:"channels"`
}

// datasetSummary loads a saved dataset, renders it at the requested (or
// preset default) geometry, and reports per-channel localization counts and
// bin sizes in the configured display units.
func (s *Server) datasetSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	d, ok := s.lookupDataset(w, r)
	if !ok {
		return
	}
	pc, bins, ok := s.renderDataset(w, r, d)
	if !ok {
		return
	}

	summary := renderSummary{
		ID:       d.ID,
		Name:     pc.Name,
		Dim:      pc.Dim,
		Bins:     bins,
		BinSizes: make([]float64, len(pc.BinSizes)),
		Units:    s.units,
		Channels: make([]channelSummary, 0, len(pc.Channels)),
	}
	for i, size := range pc.BinSizes {
		summary.BinSizes[i] = units.ConvertLength(size, s.units, size)
	}
	for _, ch := range pc.Channels {
		cs := channelSummary{Channel: ch, Count: pc.Histo[ch].Total()}
		if label, err := pc.ChannelName(ch); err == nil {
			cs.Label = label
		}
		summary.Channels = append(summary.Channels, cs)
	}

	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write summary")
		return
	}
}

func (s *Server) datasetDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	d, ok := s.lookupDataset(w, r)
	if !ok {
		return
	}
	if d.SavedPath == "" || !s.fs.Exists(d.SavedPath) {
		s.writeJSONError(w, http.StatusNotFound, "Dataset has no saved file")
		return
	}

	data, err := s.fs.ReadFile(d.SavedPath)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to read dataset file: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(d.SavedPath)))
	w.Write(data)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cfg := map[string]interface{}{
		"units":   s.units,
		"presets": config.PresetNames(),
	}

	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

// lookupDataset resolves the id query parameter to a catalog row, writing
// the error response itself when the lookup fails.
func (s *Server) lookupDataset(w http.ResponseWriter, r *http.Request) (catalog.Dataset, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'id' parameter")
		return catalog.Dataset{}, false
	}
	d, err := s.db.GetDataset(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeJSONError(w, http.StatusNotFound, "Dataset not found")
			return catalog.Dataset{}, false
		}
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to fetch dataset: %v", err))
		return catalog.Dataset{}, false
	}
	return d, true
}

// renderDataset loads a dataset's saved parquet and renders it at the
// geometry given by the bins parameter ("x,y[,z]") or the default preset.
func (s *Server) renderDataset(w http.ResponseWriter, r *http.Request, d catalog.Dataset) (*locdata.PointCloud, []int, bool) {
	if d.SavedPath == "" {
		s.writeJSONError(w, http.StatusConflict, "Dataset has no saved file")
		return nil, nil, false
	}

	pc, err := locdata.LoadParquet(d.SavedPath)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load dataset: %v", err))
		return nil, nil, false
	}

	var bins []int
	if b := r.URL.Query().Get("bins"); b != "" {
		bins, err = config.ParseBinCounts(b, pc.Dim)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'bins' parameter: %v", err))
			return nil, nil, false
		}
	} else {
		preset, _ := config.LookupPreset("default")
		bins = preset.BinCounts(pc.Dim)
	}

	if err := pc.Render(bins...); err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Failed to render dataset: %v", err))
		return nil, nil, false
	}
	return pc, bins, true
}
