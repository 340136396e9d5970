// backend-go/internal/stockopt/metrics.go
package stockopt

import (
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// ComputeMetrics derives inventory performance figures from a recommendation.
// currentInventory overrides the on-hand level when the caller knows it;
// otherwise the recommended order quantity stands in. Every ratio is
// zero-guarded: zero average demand yields 0, never NaN.
func ComputeMetrics(rec domain.StockPolicyRecommendation, currentInventory *float64) domain.InventoryMetrics {
	metrics := domain.InventoryMetrics{}

	if rec.AvgDailyDemand <= 0 {
		return metrics
	}

	onHand := rec.RecommendedReorderQty
	if currentInventory != nil {
		onHand = *currentInventory
	}
	metrics.DaysOfInventory = onHand / rec.AvgDailyDemand

	// Turnover against the average cycle inventory (order quantity plus
	// buffer, halved).
	avgInventory := (rec.RecommendedReorderQty + rec.SafetyStock) / 2
	if avgInventory > 0 {
		metrics.InventoryTurnover = rec.AnnualDemand / avgInventory
	}

	// Variability heuristic: half the coefficient of variation, clamped into
	// [0, 1]. Kept as-is; it is a documented proxy, not a calibrated
	// probability.
	metrics.StockoutProbability = clamp01(rec.DemandStd / rec.AvgDailyDemand * 0.5)

	metrics.SafetyStockCoverage = rec.SafetyStock / rec.AvgDailyDemand

	return metrics
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
