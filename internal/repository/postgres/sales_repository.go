// backend-go/internal/repository/postgres/sales_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

// SaveSalesRecords resolves store and product names to ids and upserts the
// daily observations in one transaction. Re-ingesting a file overwrites the
// matching days instead of duplicating them.
func (r *salesRepository) SaveSalesRecords(ctx context.Context, records []domain.SalesRecord) (int, error) {
	written := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		storeIDs := make(map[string]int64)
		productIDs := make(map[string]int64)

		query := `
			INSERT INTO daily_sales (date, store_id, product_id, units)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (date, store_id, product_id)
			DO UPDATE SET units = EXCLUDED.units
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, record := range records {
			storeID, ok := storeIDs[record.StoreName]
			if !ok {
				storeID, err = r.upsertStore(ctx, tx, record.StoreName)
				if err != nil {
					return fmt.Errorf("failed to upsert store: %w", err)
				}
				storeIDs[record.StoreName] = storeID
			}

			productID, ok := productIDs[record.SKU]
			if !ok {
				productID, err = r.upsertProduct(ctx, tx, record)
				if err != nil {
					return fmt.Errorf("failed to upsert product: %w", err)
				}
				productIDs[record.SKU] = productID
			}

			if _, err := stmt.ExecContext(ctx, record.Date, storeID, productID, record.Units); err != nil {
				return fmt.Errorf("failed to insert daily sales: %w", err)
			}
			written++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (r *salesRepository) upsertStore(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	query := `
		INSERT INTO stores (name, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (name) DO UPDATE
		SET updated_at = NOW()
		RETURNING id
	`
	err := tx.QueryRowContext(ctx, query, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert store: %w", err)
	}
	return id, nil
}

func (r *salesRepository) upsertProduct(ctx context.Context, tx *sql.Tx, record domain.SalesRecord) (int64, error) {
	// Sales exports carry no cost figures, so unit_cost stays whatever the
	// seeder loaded.
	var id int64
	query := `
		INSERT INTO products (sku, name, category, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name,
			category = EXCLUDED.category,
			updated_at = NOW()
		RETURNING id
	`
	err := tx.QueryRowContext(ctx, query, record.SKU, record.Product, record.Category).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}
	return id, nil
}

// GetDemandSeries returns the product's demand summed across stores, one
// point per day with sales, in ascending date order.
func (r *salesRepository) GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error) {
	query := `
		SELECT d.date, SUM(d.units) AS units
		FROM daily_sales d
		JOIN products p ON d.product_id = p.id
		WHERE p.sku = $1
	`
	args := []interface{}{product}
	if !since.IsZero() {
		query += " AND d.date >= $2"
		args = append(args, since)
	}
	query += `
		GROUP BY d.date
		ORDER BY d.date ASC
	`

	var rows []struct {
		Date  time.Time `db:"date"`
		Units float64   `db:"units"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return domain.DemandSeries{}, fmt.Errorf("failed to load demand series: %w", err)
	}

	points := make([]domain.DemandPoint, len(rows))
	for i, row := range rows {
		points[i] = domain.DemandPoint{Date: row.Date, Quantity: row.Units}
	}

	return domain.DemandSeries{Product: product, Points: points}, nil
}

// ListProductNames lists the SKUs that have at least one sales observation.
func (r *salesRepository) ListProductNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT p.sku
		FROM products p
		WHERE EXISTS (SELECT 1 FROM daily_sales d WHERE d.product_id = p.id)
		ORDER BY p.sku ASC
	`

	var names []string
	if err := sqlx.SelectContext(ctx, r.db, &names, query); err != nil {
		return nil, fmt.Errorf("failed to list product names: %w", err)
	}

	return names, nil
}

func (r *salesRepository) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, COALESCE(category, '') AS category, COALESCE(unit_cost, 0) AS unit_cost, created_at, updated_at
		FROM products
		WHERE sku = $1
	`

	var product domain.Product
	if err := sqlx.GetContext(ctx, r.db, &product, query, sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, sku)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (r *salesRepository) ListProducts(ctx context.Context, search string, limit, offset int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, sku, name, COALESCE(category, '') AS category, COALESCE(unit_cost, 0) AS unit_cost, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR sku ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		ORDER BY sku ASC
		LIMIT $2 OFFSET $3
	`

	var products []*domain.Product
	if err := sqlx.SelectContext(ctx, r.db, &products, query, search, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

func (r *salesRepository) GetStores(ctx context.Context) ([]*domain.Store, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM stores
		ORDER BY name
	`

	var stores []*domain.Store
	err := sqlx.SelectContext(ctx, r.db, &stores, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return stores, nil
}
