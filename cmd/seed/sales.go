package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/ingest"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
)

func salesSeedFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{
			Name:    "sales-dir",
			Usage:   "Directory containing sales export files (.csv or .xlsx)",
			Value:   "./data/seeds/sales",
			EnvVars: []string{"SEED_SALES_DIR"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of files to load concurrently",
			Value:   4,
			EnvVars: []string{"SEED_WORKERS"},
		},
		&cli.BoolFlag{
			Name:    "reset-sales",
			Usage:   "Truncate sales, forecast and recommendation tables before seeding",
			EnvVars: []string{"SEED_RESET_SALES"},
		},
	}
}

// SeedSalesData loads every export file under --sales-dir through the ingest
// pipeline. Files are independent, so they are loaded concurrently.
func SeedSalesData(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	salesDir := c.String("sales-dir")
	workerCount := c.Int("workers")
	if workerCount < 1 {
		workerCount = 1
	}

	// Truncate sales tables if reset flag is set. Derived tables go too,
	// since their contents are stale once the sales history changes.
	if c.Bool("reset-sales") {
		log.Println("Resetting sales tables...")
		resetQuery := `
			TRUNCATE TABLE daily_sales RESTART IDENTITY CASCADE;
			TRUNCATE TABLE forecasts RESTART IDENTITY CASCADE;
			TRUNCATE TABLE recommendations RESTART IDENTITY CASCADE;
			TRUNCATE TABLE ingested_files RESTART IDENTITY CASCADE;
		`
		if _, err := db.ExecContext(c.Context, resetQuery); err != nil {
			return fmt.Errorf("failed to reset sales tables: %w", err)
		}
		log.Println("Sales tables reset successfully")
	}

	// Seeding runs offline, so cache invalidation is a no-op.
	svc := ingest.NewService(nil, repository.NewIngestRepository(db),
		cache.NewNoopForecastCache(), cache.NewNoopSummaryCache())

	files, err := collectExportFiles(salesDir)
	if err != nil {
		return fmt.Errorf("error walking sales directory: %w", err)
	}
	if len(files) == 0 {
		log.Printf("No export files found in %s", salesDir)
		return nil
	}

	log.Printf("Loading %d export file(s) with %d worker(s)...", len(files), workerCount)

	var totalRows atomic.Int64
	if err := processFilesWithWorkers(c.Context, files, workerCount, func(path string) error {
		log.Printf("Loading export file: %s", path)
		rows, err := loadExportFile(c.Context, svc, path)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", path, err)
		}
		totalRows.Add(int64(rows))
		return nil
	}); err != nil {
		return err
	}

	log.Printf("Seeded %d sales row(s) from %d file(s)", totalRows.Load(), len(files))
	return nil
}

// loadExportFile ingests a single export. Spreadsheets are converted to CSV
// in a temp dir first; plain CSV streams straight through.
func loadExportFile(ctx context.Context, svc *ingest.Service, path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return svc.IngestLocalFile(ctx, path)
	}

	tmpDir, err := os.MkdirTemp("", "seed-sales-")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	csvPath := filepath.Join(tmpDir, "converted.csv")
	if err := ingest.ConvertXLSXToCSV(path, csvPath); err != nil {
		return 0, err
	}
	return svc.IngestLocalFile(ctx, csvPath)
}

func collectExportFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".csv" || ext == ".xlsx" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func processFilesWithWorkers(ctx context.Context, files []string, workers int, fn func(string) error) error {
	if len(files) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	jobs := make(chan string)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-jobs:
					if !ok {
						return
					}
					if err := fn(path); err != nil {
						select {
						case errCh <- err:
						default:
						}
						cancel()
						return
					}
				}
			}
		}()
	}
loop:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		if ctx.Err() != nil && ctx.Err() != context.Canceled {
			return ctx.Err()
		}
	}
	return nil
}
