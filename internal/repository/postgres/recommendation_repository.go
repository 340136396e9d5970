package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// SaveRecommendation appends a recommendation to the history. Records are
// never updated in place; recomputing under new parameters writes a new row.
func (r *salesRepository) SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error {
	query := `
		INSERT INTO recommendations (
			product, avg_daily_demand, demand_std, lead_time_days,
			safety_stock, statistical_safety_stock, percentage_safety_stock,
			reorder_point, economic_order_qty, recommended_reorder_qty,
			service_level, annual_demand, stockout_risk_reduction, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.Product,
		rec.AvgDailyDemand,
		rec.DemandStd,
		rec.LeadTimeDays,
		rec.SafetyStock,
		rec.StatisticalSafetyStock,
		rec.PercentageSafetyStock,
		rec.ReorderPoint,
		rec.EconomicOrderQty,
		rec.RecommendedReorderQty,
		rec.ServiceLevel,
		rec.AnnualDemand,
		rec.StockoutRiskReduction,
		rec.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}
	return nil
}

// GetLatestRecommendation returns the newest stored recommendation for a
// product, or nil when none has been computed yet.
func (r *salesRepository) GetLatestRecommendation(ctx context.Context, product string) (*domain.StockPolicyRecommendation, error) {
	query := `
		SELECT product, avg_daily_demand, demand_std, lead_time_days,
			safety_stock, statistical_safety_stock, percentage_safety_stock,
			reorder_point, economic_order_qty, recommended_reorder_qty,
			service_level, annual_demand, stockout_risk_reduction, computed_at
		FROM recommendations
		WHERE product = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`

	var rec domain.StockPolicyRecommendation
	if err := sqlx.GetContext(ctx, r.db, &rec, query, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest recommendation: %w", err)
	}

	return &rec, nil
}

// ListRecommendations pages through the newest recommendation of each
// product that matches the filter.
func (r *salesRepository) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.RecommendationPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	validSortFields := map[string]string{
		"product":                 "lr.product",
		"avg_daily_demand":        "lr.avg_daily_demand",
		"reorder_point":           "lr.reorder_point",
		"recommended_reorder_qty": "lr.recommended_reorder_qty",
		"safety_stock":            "lr.safety_stock",
		"computed_at":             "lr.computed_at",
	}
	sortCol, ok := validSortFields[filter.SortField]
	if !ok {
		sortCol = "lr.product"
	}

	sortDirection := filter.SortDirection
	if sortDirection != "asc" && sortDirection != "desc" {
		sortDirection = "asc"
	}

	filterClause, filterArgs := buildRecommendationFilterClause(filter, "r.", 1)
	if filterClause != "" {
		log.Debug().
			Str("filter_clause", filterClause).
			Interface("filter_args", filterArgs).
			Msg("recommendations: listing with filter")
	}

	cte := fmt.Sprintf(`
		WITH latest_recommendations AS (
			SELECT r.*,
				ROW_NUMBER() OVER (PARTITION BY r.product ORDER BY r.computed_at DESC) AS rn
			FROM recommendations r
			WHERE 1=1 %s
		)
	`, filterClause)

	countQuery := cte + ` SELECT COUNT(*) FROM latest_recommendations lr WHERE lr.rn = 1`

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, filterArgs...); err != nil {
		return nil, fmt.Errorf("failed to count recommendations: %w", err)
	}

	idx := len(filterArgs) + 1
	query := cte + fmt.Sprintf(`
		SELECT lr.product, lr.avg_daily_demand, lr.demand_std, lr.lead_time_days,
			lr.safety_stock, lr.statistical_safety_stock, lr.percentage_safety_stock,
			lr.reorder_point, lr.economic_order_qty, lr.recommended_reorder_qty,
			lr.service_level, lr.annual_demand, lr.stockout_risk_reduction, lr.computed_at
		FROM latest_recommendations lr
		WHERE lr.rn = 1
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, sortCol, sortDirection, idx, idx+1)

	qArgs := append(filterArgs, pageSize, offset)
	var items []domain.StockPolicyRecommendation
	if err := sqlx.SelectContext(ctx, r.db, &items, query, qArgs...); err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &domain.RecommendationPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
