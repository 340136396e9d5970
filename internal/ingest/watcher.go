package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
)

// Watcher polls a Drive folder and ingests files it has not seen. A file is
// keyed by Drive file ID plus modified time, so re-edited exports are
// reloaded while unchanged ones are skipped.
type Watcher struct {
	drive    *DriveClient
	service  *Service
	repo     *repository.IngestRepository
	folderID string
	interval time.Duration
}

func NewWatcher(drive *DriveClient, service *Service, repo *repository.IngestRepository, folderID string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Watcher{
		drive:    drive,
		service:  service,
		repo:     repo,
		folderID: folderID,
		interval: interval,
	}
}

// Run polls until the context is cancelled. One sweep runs immediately so a
// fresh deployment does not wait a full interval for data.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().Str("folder_id", w.folderID).Dur("interval", w.interval).Msg("ingest watcher: starting")

	if err := w.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("ingest watcher: initial sweep failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("ingest watcher: stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("ingest watcher: sweep failed")
			}
		}
	}
}

// Sweep lists the folder once and ingests every new CSV or XLSX file. Errors
// on individual files are logged and do not stop the sweep.
func (w *Watcher) Sweep(ctx context.Context) error {
	files, err := w.drive.ListFiles(w.folderID)
	if err != nil {
		return err
	}

	processed := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		seen, err := w.repo.IsFileIngested(ctx, f.ID, f.ModifiedTime)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		var rows int
		if ext == ".xlsx" {
			rows, err = w.ingestDriveXLSX(ctx, f)
		} else {
			rows, err = w.service.IngestDriveFile(ctx, f.ID)
		}
		if err != nil {
			log.Error().Err(err).Str("file", f.Name).Msg("ingest watcher: failed to ingest file")
			continue
		}
		if err := w.repo.MarkFileIngested(ctx, f.ID, f.Name, f.ModifiedTime, rows); err != nil {
			return err
		}

		log.Info().Str("file", f.Name).Int("rows", rows).Msg("ingest watcher: file ingested")
		processed++
	}

	if processed > 0 {
		log.Info().Int("files", processed).Msg("ingest watcher: sweep complete")
	}
	return nil
}

// ingestDriveXLSX stages a spreadsheet in a temp dir, converts its first
// sheet to CSV and loads that.
func (w *Watcher) ingestDriveXLSX(ctx context.Context, f *RemoteFile) (int, error) {
	dir, err := os.MkdirTemp("", "ingest-xlsx-")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	xlsxPath := filepath.Join(dir, f.Name)
	out, err := os.Create(xlsxPath)
	if err != nil {
		return 0, err
	}
	if err := w.drive.DownloadFile(f.ID, out); err != nil {
		out.Close()
		return 0, err
	}
	out.Close()

	csvPath := strings.TrimSuffix(xlsxPath, filepath.Ext(xlsxPath)) + ".csv"
	if err := ConvertXLSXToCSV(xlsxPath, csvPath); err != nil {
		return 0, err
	}

	return w.service.IngestLocalFile(ctx, csvPath)
}
