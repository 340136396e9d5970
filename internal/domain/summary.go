// backend-go/internal/domain/summary.go
package domain

import "time"

// ProductTotal is one row of the top-products leaderboard.
type ProductTotal struct {
	Product    string  `json:"product" db:"product"`
	TotalUnits float64 `json:"total_units" db:"total_units"`
}

// GlobalSummary aggregates the whole sales table for the overview cards.
// GrowthRate compares the trailing year of sales against everything before
// it, in percent; it stays 0 when there are no prior-period sales.
type GlobalSummary struct {
	TotalUnits    float64        `json:"total_units" db:"total_units"`
	AvgDailyUnits float64        `json:"avg_daily_units" db:"avg_daily_units"`
	Products      int            `json:"products" db:"products"`
	Days          int            `json:"days" db:"days"`
	From          time.Time      `json:"from" db:"from_date"`
	To            time.Time      `json:"to" db:"to_date"`
	TopProduct    string         `json:"top_product" db:"top_product"`
	TopProducts   []ProductTotal `json:"top_products"`
	GrowthRate    float64        `json:"growth_rate"`
}

// ProductSummary is the per-product row of the overview table.
type ProductSummary struct {
	Product                string  `json:"product" db:"product"`
	TotalUnits             float64 `json:"total_units" db:"total_units"`
	AvgDaily               float64 `json:"avg_daily" db:"avg_daily"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation" db:"coefficient_of_variation"`
	TrendSlope             float64 `json:"trend_slope" db:"trend_slope"`
	TrendLabel             string  `json:"trend_label" db:"trend_label"`
	VolatilityLabel        string  `json:"volatility_label" db:"volatility_label"`
}

// RecentChange compares the most recent window of sales against the one
// before it. PercentDelta is zero-guarded when the previous window is empty.
type RecentChange struct {
	WindowDays   int     `json:"window_days"`
	RecentMean   float64 `json:"recent_mean"`
	PreviousMean float64 `json:"previous_mean"`
	PercentDelta float64 `json:"percent_delta"`
}

// WeekdayProfile is the mean demand per weekday (Sunday = index 0).
type WeekdayProfile [7]float64

// SeasonalityCell is one cell of the calendar month x weekday demand matrix
// behind the seasonality heatmap. Month is 1-based (January = 1).
type SeasonalityCell struct {
	Month      int     `json:"month"`
	Weekday    int     `json:"weekday"`
	TotalUnits float64 `json:"total_units"`
	MeanUnits  float64 `json:"mean_units"`
}

// SeasonalFactor is one month's mean demand relative to the mean of the
// monthly means. A factor above 1 marks a stronger-than-typical month.
type SeasonalFactor struct {
	Month  int     `json:"month"`
	Factor float64 `json:"factor"`
}

// ProductAnalysis bundles everything the presentation layer needs for a
// single product at one parameter set.
type ProductAnalysis struct {
	Product        string                    `json:"product"`
	Statistics     DemandStatistics          `json:"statistics"`
	Recommendation StockPolicyRecommendation `json:"recommendation"`
	Metrics        InventoryMetrics          `json:"metrics"`
	OrderValue     *string                   `json:"order_value,omitempty"`
}

// SeasonalityProfile is the demand-pattern view of one product: weekday
// shape, month x weekday matrix, monthly factors, recent momentum and
// smoothed trend lines.
type SeasonalityProfile struct {
	Product        string            `json:"product"`
	Weekday        WeekdayProfile    `json:"weekday_profile"`
	Matrix         []SeasonalityCell `json:"seasonality_matrix"`
	MonthlyFactors []SeasonalFactor  `json:"monthly_factors"`
	RecentChange   RecentChange      `json:"recent_change"`
	MovingAvg7     []float64         `json:"moving_avg_7"`
	MovingAvg30    []float64         `json:"moving_avg_30"`
}
