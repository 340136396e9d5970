package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

type summaryTotalsRow struct {
	TotalUnits float64      `db:"total_units"`
	Products   int          `db:"products"`
	Days       int          `db:"days"`
	From       sql.NullTime `db:"from_date"`
	To         sql.NullTime `db:"to_date"`
}

// GetGlobalSummary aggregates the sales table, optionally restricted to a
// product subset. An empty table yields a zero summary rather than an error.
func (r *salesRepository) GetGlobalSummary(ctx context.Context, products []string) (*domain.GlobalSummary, error) {
	subset := normalizeProductList(products)
	if len(subset) > 0 {
		log.Debug().Strs("products", subset).Msg("sales summary: fetching with product subset")
	} else {
		log.Debug().Msg("sales summary: fetching across all products")
	}

	filterClause := ""
	args := []interface{}{}
	if len(subset) > 0 {
		filterClause = "WHERE p.sku = ANY($1::text[])"
		args = append(args, pq.Array(subset))
	}

	totalsQuery := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(d.units), 0) AS total_units,
			COUNT(DISTINCT d.product_id) AS products,
			COUNT(DISTINCT d.date) AS days,
			MIN(d.date) AS from_date,
			MAX(d.date) AS to_date
		FROM daily_sales d
		JOIN products p ON p.id = d.product_id
		%s
	`, filterClause)

	var totals summaryTotalsRow
	if err := r.db.GetContext(ctx, &totals, totalsQuery, args...); err != nil {
		log.Error().Err(err).Msg("sales summary: failed to fetch totals")
		return nil, fmt.Errorf("failed to get sales totals: %w", err)
	}

	summary := &domain.GlobalSummary{
		TotalUnits: totals.TotalUnits,
		Products:   totals.Products,
		Days:       totals.Days,
	}
	if totals.Days > 0 {
		summary.AvgDailyUnits = totals.TotalUnits / float64(totals.Days)
	}
	if totals.From.Valid {
		summary.From = totals.From.Time
	}
	if totals.To.Valid {
		summary.To = totals.To.Time
	}

	topQuery := fmt.Sprintf(`
		SELECT p.sku AS product, SUM(d.units) AS total_units
		FROM daily_sales d
		JOIN products p ON p.id = d.product_id
		%s
		GROUP BY p.sku
		ORDER BY SUM(d.units) DESC, p.sku ASC
		LIMIT 3
	`, filterClause)

	var top []domain.ProductTotal
	if err := r.db.SelectContext(ctx, &top, topQuery, args...); err != nil {
		log.Error().Err(err).Msg("sales summary: failed to fetch top products")
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	summary.TopProducts = top
	if len(top) > 0 {
		summary.TopProduct = top[0].Product
	}

	// Trailing year against everything before it, the scoped MAX(date)
	// anchoring the split.
	growthQuery := fmt.Sprintf(`
		WITH scoped AS (
			SELECT d.date, d.units
			FROM daily_sales d
			JOIN products p ON p.id = d.product_id
			%s
		)
		SELECT
			COALESCE(SUM(units) FILTER (WHERE date >  (SELECT MAX(date) - INTERVAL '365 days' FROM scoped)), 0) AS recent_units,
			COALESCE(SUM(units) FILTER (WHERE date <= (SELECT MAX(date) - INTERVAL '365 days' FROM scoped)), 0) AS prior_units
		FROM scoped
	`, filterClause)

	var growth struct {
		Recent float64 `db:"recent_units"`
		Prior  float64 `db:"prior_units"`
	}
	if err := r.db.GetContext(ctx, &growth, growthQuery, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("sales summary: failed to fetch growth windows")
			return nil, fmt.Errorf("failed to get growth windows: %w", err)
		}
	} else {
		summary.GrowthRate = growthRate(growth.Recent, growth.Prior)
	}

	return summary, nil
}

// growthRate compares trailing-year sales against everything before the
// split, in percent. No prior-period sales yields 0 rather than a blow-up.
func growthRate(recent, prior float64) float64 {
	if prior <= 0 {
		return 0
	}
	return (recent - prior) / prior * 100
}

func normalizeProductList(products []string) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
