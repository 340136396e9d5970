// backend-go/internal/domain/classify.go
package domain

// Classification bands for the overview table. Slope thresholds are units per
// day; volatility bands are CV percentages.
const (
	TrendGrowing   = "Growing"
	TrendDeclining = "Declining"
	TrendStable    = "Stable"

	VolatilityLow      = "Low"
	VolatilityModerate = "Moderate"
	VolatilityHigh     = "High"
)

const (
	trendSlopeBand     = 0.05
	volatilityLowBand  = 20.0
	volatilityHighBand = 50.0
)

// ClassifyTrend maps an OLS slope to a trend label.
func ClassifyTrend(slope float64) string {
	switch {
	case slope > trendSlopeBand:
		return TrendGrowing
	case slope < -trendSlopeBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// ClassifyVolatility maps a coefficient of variation (percent) to a band.
func ClassifyVolatility(cv float64) string {
	switch {
	case cv < volatilityLowBand:
		return VolatilityLow
	case cv < volatilityHighBand:
		return VolatilityModerate
	default:
		return VolatilityHigh
	}
}
