package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// SaveForecast stores a forecast run. Points travel as JSONB; backtest
// metrics stay NULL when the run had no holdout evaluation, so absence
// survives the round trip.
func (r *salesRepository) SaveForecast(ctx context.Context, result *domain.ForecastResult) error {
	points, err := json.Marshal(result.Points)
	if err != nil {
		return fmt.Errorf("failed to encode forecast points: %w", err)
	}

	var mape, rmse sql.NullFloat64
	if result.Backtest != nil {
		mape = sql.NullFloat64{Float64: result.Backtest.MAPE, Valid: true}
		rmse = sql.NullFloat64{Float64: result.Backtest.RMSE, Valid: true}
	}

	query := `
		INSERT INTO forecasts (product, model, horizon_days, points, mape, rmse, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.db.ExecContext(ctx, query,
		result.Product,
		result.Model,
		result.HorizonDays,
		points,
		mape,
		rmse,
		result.GeneratedAt,
	); err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}

// GetLatestForecast returns the newest stored forecast for a product and
// horizon, or nil when none exists.
func (r *salesRepository) GetLatestForecast(ctx context.Context, product string, horizonDays int) (*domain.ForecastResult, error) {
	query := `
		SELECT product, model, horizon_days, points, mape, rmse, generated_at
		FROM forecasts
		WHERE product = $1 AND horizon_days = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var row struct {
		Product     string          `db:"product"`
		Model       string          `db:"model"`
		HorizonDays int             `db:"horizon_days"`
		Points      []byte          `db:"points"`
		MAPE        sql.NullFloat64 `db:"mape"`
		RMSE        sql.NullFloat64 `db:"rmse"`
		GeneratedAt time.Time       `db:"generated_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, product, horizonDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest forecast: %w", err)
	}

	var points []domain.ForecastPoint
	if err := json.Unmarshal(row.Points, &points); err != nil {
		return nil, fmt.Errorf("failed to decode forecast points: %w", err)
	}

	result := &domain.ForecastResult{
		Product:     row.Product,
		Model:       row.Model,
		HorizonDays: row.HorizonDays,
		Points:      points,
		GeneratedAt: row.GeneratedAt,
	}
	if row.MAPE.Valid && row.RMSE.Valid {
		result.Backtest = &domain.BacktestMetrics{
			MAPE: row.MAPE.Float64,
			RMSE: row.RMSE.Float64,
		}
	}

	return result, nil
}
