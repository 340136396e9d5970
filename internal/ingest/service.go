package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
)

// Service loads sales exports into the database and drops stale cache
// entries for the products a file touched.
type Service struct {
	drive     *DriveClient
	repo      *repository.IngestRepository
	forecasts cache.ForecastCache
	summaries cache.SummaryCache
}

func NewService(drive *DriveClient, repo *repository.IngestRepository, forecasts cache.ForecastCache, summaries cache.SummaryCache) *Service {
	return &Service{
		drive:     drive,
		repo:      repo,
		forecasts: forecasts,
		summaries: summaries,
	}
}

// IngestDriveFile streams one Drive file through the CSV parser without
// staging it on disk.
func (s *Service) IngestDriveFile(ctx context.Context, fileID string) (int, error) {
	pr, pw := io.Pipe()
	go func() {
		err := s.drive.DownloadFile(fileID, pw)
		pw.CloseWithError(err)
	}()

	return s.IngestReader(ctx, pr)
}

// IngestLocalFile loads a sales export already present on disk.
func (s *Service) IngestLocalFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.IngestReader(ctx, f)
}

// IngestUpload loads a sales export handed over as an upload. CSV content
// streams straight through the parser; spreadsheets are staged to a temp
// file for conversion first.
func (s *Service) IngestUpload(ctx context.Context, filename string, r io.Reader) (int, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return s.IngestReader(ctx, r)
	}

	tmpDir, err := os.MkdirTemp("", "ingest-upload-")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	xlsxPath := filepath.Join(tmpDir, "upload.xlsx")
	f, err := os.Create(xlsxPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}

	csvPath := filepath.Join(tmpDir, "upload.csv")
	if err := ConvertXLSXToCSV(xlsxPath, csvPath); err != nil {
		return 0, err
	}
	return s.IngestLocalFile(ctx, csvPath)
}

// IngestReader parses a sales export and upserts every row. Store and
// product lookups are memoized so a file touching few entities does not
// round-trip per row. Returns the number of rows written.
func (s *Service) IngestReader(ctx context.Context, r io.Reader) (int, error) {
	records, err := ParseSalesCSV(r)
	if err != nil {
		return 0, err
	}

	storeIDs := make(map[string]int64)
	productIDs := make(map[string]int64)
	touched := make(map[string]struct{})

	written := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		storeID, ok := storeIDs[rec.StoreName]
		if !ok {
			storeID, err = s.repo.UpsertStore(ctx, rec.StoreName)
			if err != nil {
				return written, err
			}
			storeIDs[rec.StoreName] = storeID
		}

		productID, ok := productIDs[rec.SKU]
		if !ok {
			productID, err = s.repo.UpsertProduct(ctx, rec.SKU, rec.Product, rec.Category)
			if err != nil {
				return written, err
			}
			productIDs[rec.SKU] = productID
		}

		if err := s.repo.UpsertDailySales(ctx, rec.Date, storeID, productID, rec.Units); err != nil {
			return written, err
		}
		written++
		touched[rec.SKU] = struct{}{}
	}

	s.invalidateCaches(ctx, touched)

	log.Info().Int("rows", written).Int("products", len(productIDs)).Msg("ingest: file loaded")
	return written, nil
}

// invalidateCaches is best effort. A failed invalidation only delays
// freshness until the TTL expires, so it is logged and not returned.
func (s *Service) invalidateCaches(ctx context.Context, touched map[string]struct{}) {
	if len(touched) == 0 {
		return
	}
	for sku := range touched {
		if err := s.forecasts.InvalidateProduct(ctx, sku); err != nil {
			log.Warn().Err(err).Str("product", sku).Msg("ingest: failed to invalidate forecast cache")
		}
	}
	if err := s.summaries.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("ingest: failed to invalidate summary cache")
	}
}
