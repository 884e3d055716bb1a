package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/locus.report/internal/locdata"
)

// viridis-like ramp for count intensity, matching the conventional SMLM
// reconstruction look.
var heatmapRamp = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// datasetHeatmap renders one channel's 2D histogram as an echarts heat map
// (HTML). This is a debugging view for eyeballing a render without a
// desktop viewer.
// Query params:
//   - id (required)
//   - channel (optional; defaults to the first observed channel)
//   - bins (optional "x,y"; defaults to the default preset)
//   - scale (optional; linear, log2 or log10; default log2)
func (s *Server) datasetHeatmap(w http.ResponseWriter, r *http.Request) {
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
	if pc.Dim != 2 {
		s.writeJSONError(w, http.StatusUnprocessableEntity, "Heat map view is 2D only")
		return
	}

	channel := pc.Channels[0]
	if c := r.URL.Query().Get("channel"); c != "" {
		v, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'channel' parameter")
			return
		}
		channel = v
	}
	grid, ok2 := pc.Histo[channel]
	if !ok2 {
		s.writeJSONError(w, http.StatusNotFound,
			fmt.Sprintf("Channel %d not present in dataset", channel))
		return
	}

	scale := locdata.ScaleLog2
	if sc := r.URL.Query().Get("scale"); sc != "" {
		scale = locdata.IntensityScale(sc)
	}

	data, maxIntensity, err := heatmapSeries(grid, scale)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if maxIntensity == 0 {
		maxIntensity = 1
	}

	xAxis := make([]string, grid.Dims[0])
	for i := range xAxis {
		xAxis[i] = strconv.Itoa(i)
	}
	yAxis := make([]string, grid.Dims[1])
	for i := range yAxis {
		yAxis[i] = strconv.Itoa(i)
	}

	title := fmt.Sprintf("%s channel %d", pc.Name, channel)
	if label, err := pc.ChannelName(channel); err == nil {
		title = fmt.Sprintf("%s: %s", pc.Name, label)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Localization Heat Map", Theme: "dark",
			Width: "900px", Height: "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("bins=%dx%d scale=%s", bins[0], bins[1], scale),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xAxis, Name: "x pixel"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yAxis, Name: "y pixel"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxIntensity),
			InRange:    &opts.VisualMapInRange{Color: heatmapRamp},
		}),
	)
	hm.AddSeries("counts", data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// heatmapSeries flattens a count grid into echarts heat-map points,
// skipping empty bins to keep payloads small. Returns the maximum scaled
// intensity for the visual map range.
func heatmapSeries(grid *locdata.CountGrid, scale locdata.IntensityScale) ([]opts.HeatMapData, float64, error) {
	data := make([]opts.HeatMapData, 0, len(grid.Counts))
	maxIntensity := 0.0
	for ix := 0; ix < grid.Dims[0]; ix++ {
		for iy := 0; iy < grid.Dims[1]; iy++ {
			count := grid.At(ix, iy)
			if count == 0 {
				continue
			}
			v, err := scale.Apply(float64(count))
			if err != nil {
				return nil, 0, err
			}
			if v > maxIntensity {
				maxIntensity = v
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ix, iy, v}})
		}
	}
	return data, maxIntensity, nil
}
