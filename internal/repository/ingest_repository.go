package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IngestRepository is the row-at-a-time write path used by file ingestion.
// It runs on database/sql directly so it can stream large exports without
// holding them in memory.
type IngestRepository struct {
	db *sql.DB
}

func NewIngestRepository(db *sql.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func (r *IngestRepository) UpsertStore(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO stores (name, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (name)
		DO UPDATE SET updated_at = NOW()
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert store: %w", err)
	}
	return id, nil
}

func (r *IngestRepository) UpsertProduct(ctx context.Context, sku, name, category string) (int64, error) {
	query := `
		INSERT INTO products (sku, name, category, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (sku)
		DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			updated_at = NOW()
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, sku, name, category).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}
	return id, nil
}

func (r *IngestRepository) UpsertDailySales(ctx context.Context, date time.Time, storeID, productID int64, units float64) error {
	query := `
		INSERT INTO daily_sales (date, store_id, product_id, units)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, store_id, product_id)
		DO UPDATE SET units = EXCLUDED.units
	`
	if _, err := r.db.ExecContext(ctx, query, date, storeID, productID, units); err != nil {
		return fmt.Errorf("failed to upsert daily sales: %w", err)
	}
	return nil
}

// IsFileIngested reports whether a source file version was already processed.
// The modified time is part of the key so a re-edited file is picked up again.
func (r *IngestRepository) IsFileIngested(ctx context.Context, fileID, modifiedTime string) (bool, error) {
	query := `
		SELECT 1 FROM ingested_files
		WHERE file_id = $1 AND modified_time = $2
	`
	var one int
	err := r.db.QueryRowContext(ctx, query, fileID, modifiedTime).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ingested file: %w", err)
	}
	return true, nil
}

func (r *IngestRepository) MarkFileIngested(ctx context.Context, fileID, name, modifiedTime string, rows int) error {
	query := `
		INSERT INTO ingested_files (file_id, name, modified_time, row_count, ingested_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (file_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			modified_time = EXCLUDED.modified_time,
			row_count = EXCLUDED.row_count,
			ingested_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, fileID, name, modifiedTime, rows); err != nil {
		return fmt.Errorf("failed to mark file ingested: %w", err)
	}
	return nil
}
