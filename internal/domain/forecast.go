// backend-go/internal/domain/forecast.go
package domain

import "time"

// ForecastPoint is one forecast day. Lower <= Forecast <= Upper always holds.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Forecast float64   `json:"forecast"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// BacktestMetrics are holdout accuracy figures for a fitted model.
type BacktestMetrics struct {
	MAPE float64 `json:"mape"`
	RMSE float64 `json:"rmse"`
}

// ForecastResult is the normalized output of one forecasting backend.
// Backtest is nil when the training history was too short to score the model;
// it is never zero-valued, which would read as perfect accuracy.
type ForecastResult struct {
	Model       string           `json:"model"`
	Product     string           `json:"product"`
	HorizonDays int              `json:"horizon_days"`
	Points      []ForecastPoint  `json:"points"`
	Backtest    *BacktestMetrics `json:"backtest,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}
