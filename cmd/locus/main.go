// Command locus is the batch pipeline for SMLM localization tables:
// import a raw CSV/parquet table, render it into per-channel histograms,
// reconcile an optional label mask, and persist the result as a
// self-describing parquet file (optionally registering it in a catalog
// database and exporting flat CSV or a heat-map PNG).
package main

import (
	"flag"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/locus.report/internal/catalog"
	"github.com/banshee-data/locus.report/internal/config"
	"github.com/banshee-data/locus.report/internal/locdata"
)

var (
	inPath   = flag.String("in", "", "Input table (required)")
	format   = flag.String("format", "csv", "Input format: csv or parquet")
	dim      = flag.Int("dim", 2, "Dimensionality of the data (2 or 3)")
	chanCol  = flag.String("channel-col", "channel", "Source column holding the channel index")
	xCol     = flag.String("x-col", "x", "Source column holding x (nm)")
	yCol     = flag.String("y-col", "y", "Source column holding y (nm)")
	zCol     = flag.String("z-col", "", "Source column holding z (3D only)")
	frameCol = flag.String("frame-col", "", "Source column holding the frame index (optional)")
	labels   = flag.String("labels", "", "Comma-separated channel labels (optional)")

	preset = flag.String("preset", "default", "Binning preset: "+strings.Join(config.PresetNames(), ", "))
	bins   = flag.String("bins", "", "Explicit bin counts 'x,y[,z]' (overrides -preset)")

	maskPath = flag.String("mask", "", "JSON label grid to reconcile (optional)")

	outPath       = flag.String("out", "", "Destination parquet file (optional)")
	overwrite     = flag.Bool("overwrite", false, "Replace the destination if it exists")
	dropZeroLabel = flag.Bool("drop-zero-label", false, "Drop background-labelled rows when saving")
	dropPixelCols = flag.Bool("drop-pixel-cols", false, "Omit pixel columns when saving")

	csvPath      = flag.String("csv", "", "Flat CSV export destination (optional)")
	chanLabelCol = flag.Bool("chan-label-col", false, "Add a chan_label column to the CSV export")

	pngPath    = flag.String("png", "", "Heat-map PNG destination (optional, 2D only)")
	pngChannel = flag.Int64("png-channel", 0, "Channel to render in the heat-map PNG")
	pngScale   = flag.String("scale", "log2", "Heat-map intensity scale: linear, log2, log10")

	catalogPath = flag.String("catalog", "", "Catalog database to register the dataset in (optional)")
)

func main() {
	flag.Parse()

	if *inPath == "" {
		log.Fatal("-in is required")
	}

	var channelLabels []string
	if *labels != "" {
		channelLabels = strings.Split(*labels, ",")
	}

	pc, err := locdata.ImportTable(*inPath, locdata.Format(*format), *dim, locdata.ColumnMap{
		Channel: *chanCol,
		X:       *xCol,
		Y:       *yCol,
		Z:       *zCol,
		Frame:   *frameCol,
	}, channelLabels)
	if err != nil {
		log.Fatalf("import %s: %v", *inPath, err)
	}
	log.Printf("Imported %q: %d localizations, channels %v", pc.Name, pc.Table.Len(), pc.Channels)

	binCounts, err := resolveBins(pc.Dim)
	if err != nil {
		log.Fatal(err)
	}
	if err := pc.Render(binCounts...); err != nil {
		log.Fatalf("render: %v", err)
	}
	log.Printf("Rendered at %v bins; bin sizes %v nm", binCounts, pc.BinSizes)

	if *maskPath != "" {
		mask, err := locdata.LoadLabelGrid(*maskPath)
		if err != nil {
			log.Fatalf("load mask %s: %v", *maskPath, err)
		}
		if err := pc.ApplyMask(mask); err != nil {
			log.Fatalf("reconcile mask: %v", err)
		}
		log.Printf("Reconciled mask; %d localizations labelled", pc.Table.Len())
	} else {
		log.Print("No mask supplied; skipping label reconciliation")
	}

	if *outPath != "" {
		err := locdata.SaveParquet(pc, *outPath, locdata.SaveOptions{
			DropZeroLabel:    *dropZeroLabel,
			DropPixelColumns: *dropPixelCols,
			Overwrite:        *overwrite,
		})
		if err != nil {
			log.Fatalf("save %s: %v", *outPath, err)
		}
		log.Printf("Saved %s", *outPath)

		if *catalogPath != "" {
			registerDataset(pc, *outPath)
		}
	}

	if *csvPath != "" {
		err := locdata.ExportCSV(pc, *csvPath, locdata.CSVOptions{
			DropZeroLabel:      *dropZeroLabel,
			DropPixelColumns:   *dropPixelCols,
			ChannelLabelColumn: *chanLabelCol,
			Overwrite:          *overwrite,
		})
		if err != nil {
			log.Fatalf("export %s: %v", *csvPath, err)
		}
	}

	if *pngPath != "" {
		err := locdata.HeatmapPNG(pc, *pngChannel, locdata.IntensityScale(*pngScale), *pngPath)
		if err != nil {
			log.Fatalf("heat map %s: %v", *pngPath, err)
		}
		log.Printf("Wrote heat map %s", *pngPath)
	}
}

// resolveBins picks explicit -bins over the named preset.
func resolveBins(dim int) ([]int, error) {
	if *bins != "" {
		return config.ParseBinCounts(*bins, dim)
	}
	p, err := config.LookupPreset(*preset)
	if err != nil {
		return nil, err
	}
	return p.BinCounts(dim), nil
}

// registerDataset records the saved dataset in the catalog database.
func registerDataset(pc *locdata.PointCloud, savedPath string) {
	db, err := catalog.NewDB(*catalogPath)
	if err != nil {
		log.Fatalf("open catalog %s: %v", *catalogPath, err)
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		log.Fatalf("migrate catalog: %v", err)
	}
	id, err := db.RecordDataset(catalog.Dataset{
		Name:       pc.Name,
		Dim:        pc.Dim,
		Channels:   pc.Channels,
		Rows:       int64(pc.Table.Len()),
		SourcePath: *inPath,
		SavedPath:  savedPath,
	})
	if err != nil {
		log.Fatalf("record dataset: %v", err)
	}
	log.Printf("Registered dataset %s in %s", id, *catalogPath)
}
