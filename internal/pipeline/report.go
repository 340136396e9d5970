package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/storage"
)

// ReportWriter collects per-product outcomes from concurrent workers and
// writes the run report CSV once the run finishes. When object storage is
// configured the report is also uploaded; upload failure does not fail the
// run since the local file is the source of truth.
type ReportWriter struct {
	cfg     Config
	store   storage.ObjectStorage
	started time.Time

	mu   sync.Mutex
	rows []ProductResult
}

func NewReportWriter(cfg Config, store storage.ObjectStorage) *ReportWriter {
	return &ReportWriter{
		cfg:     cfg,
		store:   store,
		started: time.Now(),
	}
}

// Add records one product outcome. Safe for concurrent use.
func (rw *ReportWriter) Add(result ProductResult) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.rows = append(rw.rows, result)
}

// Finalize writes the report CSV and returns its path. An empty run still
// produces a report so operators can tell "ran and found nothing" from
// "never ran".
func (rw *ReportWriter) Finalize(ctx context.Context) (string, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := os.MkdirAll(rw.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("replan_%s.csv", rw.started.Format("20060102_150405"))
	reportPath := filepath.Join(rw.cfg.OutputDir, name)

	if err := rw.writeCSV(reportPath); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	log.Info().Str("path", reportPath).Int("rows", len(rw.rows)).Msg("replan: report written")

	rw.upload(ctx, reportPath, name)

	return reportPath, nil
}

func (rw *ReportWriter) writeCSV(reportPath string) error {
	file, err := os.Create(reportPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"product", "status", "observations",
		"avg_daily_demand", "safety_stock", "reorder_point", "recommended_order_qty",
		"error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rw.rows {
		record := []string{
			row.Product,
			string(row.Status),
			strconv.Itoa(row.Observations),
			formatQty(row.AvgDaily),
			formatQty(row.SafetyStock),
			formatQty(row.ReorderPoint),
			formatQty(row.OrderQty),
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func (rw *ReportWriter) upload(ctx context.Context, reportPath, name string) {
	if rw.store == nil {
		return
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		log.Warn().Err(err).Msg("replan: failed to read report for upload")
		return
	}
	key := path.Join(rw.cfg.ReportPrefix, name)
	if err := rw.store.UploadObject(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("replan: failed to upload report")
		return
	}
	log.Info().Str("key", key).Msg("replan: report uploaded")
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
