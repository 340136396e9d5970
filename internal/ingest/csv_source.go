package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// CSVSource serves demand series straight from a directory of sales export
// files, with no database. Offline commands run against it so analysts can
// point the CLI at a folder of exports.
//
// All files are loaded on first use and rows are summed per product and
// date, matching how the database path aggregates across stores.
type CSVSource struct {
	dir string

	once    sync.Once
	loadErr error
	series  map[string][]domain.DemandPoint
	names   []string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error) {
	if err := s.load(); err != nil {
		return domain.DemandSeries{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.DemandSeries{}, err
	}

	points, ok := s.series[product]
	if !ok {
		return domain.DemandSeries{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, product)
	}

	out := domain.DemandSeries{Product: product}
	for _, p := range points {
		if !since.IsZero() && p.Date.Before(since) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out, nil
}

func (s *CSVSource) ListProductNames(ctx context.Context) ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), s.names...), nil
}

func (s *CSVSource) load() error {
	s.once.Do(func() {
		s.loadErr = s.loadAll()
	})
	return s.loadErr
}

func (s *CSVSource) loadAll() error {
	files, err := collectCSVFiles(s.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no CSV files found in %s", s.dir)
	}

	totals := make(map[string]map[time.Time]float64)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		records, err := ParseSalesCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		for _, rec := range records {
			byDate, ok := totals[rec.SKU]
			if !ok {
				byDate = make(map[time.Time]float64)
				totals[rec.SKU] = byDate
			}
			byDate[rec.Date] += rec.Units
		}
	}

	s.series = make(map[string][]domain.DemandPoint, len(totals))
	s.names = make([]string, 0, len(totals))
	for sku, byDate := range totals {
		points := make([]domain.DemandPoint, 0, len(byDate))
		for date, units := range byDate {
			points = append(points, domain.DemandPoint{Date: date, Quantity: units})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		s.series[sku] = points
		s.names = append(s.names, sku)
	}
	sort.Strings(s.names)

	return nil
}

// collectCSVFiles walks a directory tree and returns all CSV paths sorted by
// name, so repeated runs see files in a stable order.
func collectCSVFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
