// backend-go/internal/stockopt/engine.go
package stockopt

import (
	"fmt"
	"math"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// Default cost assumptions used when real cost data is unavailable.
const (
	// DefaultOrderingCost is the assumed fixed cost per order placed.
	DefaultOrderingCost = 50.0
	// DefaultHoldingRate scales average daily demand into an annual per-unit
	// holding cost.
	DefaultHoldingRate = 0.1
	// BaselineServiceLevel anchors the stockout-risk-reduction delta. The
	// reported figure is illustrative, not a measured outcome.
	BaselineServiceLevel = 0.85
)

// Engine turns demand statistics and business targets into stock policy
// numbers. It is stateless: identical inputs produce identical outputs.
type Engine struct {
	orderingCost float64
	holdingRate  float64
}

// NewEngine creates an engine with the default cost assumptions.
func NewEngine() *Engine {
	return &Engine{
		orderingCost: DefaultOrderingCost,
		holdingRate:  DefaultHoldingRate,
	}
}

// Recommend computes the stock policy for one product at one parameter set.
// Zero average demand is not an error: every derived quantity resolves to its
// floor (safety stock 0, reorder point 0, EOQ 1).
func (e *Engine) Recommend(product string, stats domain.DemandStatistics, params domain.PolicyParams) (domain.StockPolicyRecommendation, error) {
	if err := params.Validate(); err != nil {
		return domain.StockPolicyRecommendation{}, fmt.Errorf("recommend %s: %w", product, err)
	}

	avg := stats.AvgDailyDemand
	std := stats.DemandStd
	leadTime := float64(params.LeadTimeDays)

	// 1. Statistical safety stock: z(service) x sqrt(lead time) x demand std,
	//    the closed form for normally distributed lead-time demand. Floored
	//    at 0 for service levels below 0.5.
	statisticalSS := normInv(params.ServiceLevel) * math.Sqrt(leadTime) * std
	statisticalSS = math.Max(0, statisticalSS)

	// 2. Percentage safety stock: flat share of average daily demand.
	percentageSS := avg * params.SafetyStockPercent / 100

	// 3. The engine is conservative: a thin history with a small std must not
	//    silently produce an unsafely small buffer.
	safetyStock := math.Max(statisticalSS, percentageSS)

	// 4. Reorder point covers expected lead-time consumption plus the buffer.
	reorderPoint := math.Max(0, avg*leadTime+safetyStock)

	// 5. Annual demand extrapolated from the daily average.
	annualDemand := avg * 365

	// 6. EOQ with default costs. Zero demand gives zero holding cost; the
	//    fallback to annual demand avoids the division and degenerates to a
	//    single-order policy. Floored at 1 so a recommendation always orders
	//    something.
	holdingCost := avg * e.holdingRate
	var eoq float64
	if holdingCost > 0 {
		eoq = math.Sqrt(2 * annualDemand * e.orderingCost / holdingCost)
	} else {
		eoq = annualDemand
	}
	eoq = math.Max(1, eoq)

	// 7. Never order less than one lead time of demand plus the buffer, even
	//    when the EOQ trade-off says less.
	recommendedQty := math.Max(eoq, avg*leadTime+safetyStock)

	// 8. Risk-reduction delta against the fixed baseline service level.
	riskReduction := (params.ServiceLevel - BaselineServiceLevel) * 100

	return domain.StockPolicyRecommendation{
		Product:                product,
		AvgDailyDemand:         avg,
		DemandStd:              std,
		LeadTimeDays:           params.LeadTimeDays,
		SafetyStock:            safetyStock,
		StatisticalSafetyStock: statisticalSS,
		PercentageSafetyStock:  percentageSS,
		ReorderPoint:           reorderPoint,
		EconomicOrderQty:       eoq,
		RecommendedReorderQty:  recommendedQty,
		ServiceLevel:           params.ServiceLevel,
		AnnualDemand:           annualDemand,
		StockoutRiskReduction:  riskReduction,
		ComputedAt:             time.Now().UTC(),
	}, nil
}
