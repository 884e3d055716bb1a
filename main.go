package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/locus.report/internal/api"
	"github.com/banshee-data/locus.report/internal/catalog"
	"github.com/banshee-data/locus.report/internal/fsutil"
	"github.com/banshee-data/locus.report/internal/units"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "locus_catalog.db", "Path to the catalog database")
	displayUnits = flag.String("units", units.NM, "Display units for bin sizes (nm, um, px)")
)

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*displayUnits) {
		log.Fatalf("Invalid units %q (valid: %s)", *displayUnits, units.GetValidUnitsString())
	}

	db, err := catalog.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate catalog database: %v", err)
	}
	if version, dirty, err := db.MigrateVersion(); err == nil {
		log.Printf("Catalog schema at version %d (dirty=%v)", version, dirty)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the API handlers; dataset files are served through the OS
		// filesystem in production
		apiMux := api.NewServer(db, fsutil.OSFileSystem{}, *displayUnits).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	log.Printf("Serving dataset catalog %s on %s", *dbFile, *listen)

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
