package stockopt

import (
	"errors"
	"math"
	"testing"

	"github.com/novamart/novamart-dashboard/backend-go/internal/demand"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

func statsFor(t *testing.T, quantities []float64) domain.DemandStatistics {
	t.Helper()
	return domain.DemandStatistics{
		AvgDailyDemand:         demand.Mean(quantities),
		DemandStd:              demand.SampleStdDev(quantities),
		TrendSlope:             demand.TrendSlope(quantities),
		CoefficientOfVariation: demand.CoefficientOfVariation(quantities),
		Observations:           len(quantities),
	}
}

func constantSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestRecommendConstantDemandScenario(t *testing.T) {
	// 100 days of exactly 20 units, lead time 7, 20% buffer, 95% service.
	stats := statsFor(t, constantSeries(100, 20))
	params := domain.PolicyParams{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 0.95}

	rec, err := NewEngine().Recommend("widget", stats, params)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if !closeTo(rec.AvgDailyDemand, 20, 1e-9) {
		t.Errorf("avg = %v, want 20", rec.AvgDailyDemand)
	}
	if !closeTo(rec.DemandStd, 0, 1e-9) {
		t.Errorf("std = %v, want 0", rec.DemandStd)
	}
	if !closeTo(rec.StatisticalSafetyStock, 0, 1e-9) {
		t.Errorf("statistical safety stock = %v, want 0", rec.StatisticalSafetyStock)
	}
	if !closeTo(rec.PercentageSafetyStock, 4, 1e-9) {
		t.Errorf("percentage safety stock = %v, want 4", rec.PercentageSafetyStock)
	}
	if !closeTo(rec.SafetyStock, 4, 1e-9) {
		t.Errorf("safety stock = %v, want 4", rec.SafetyStock)
	}
	if !closeTo(rec.ReorderPoint, 144, 1e-9) {
		t.Errorf("reorder point = %v, want 144", rec.ReorderPoint)
	}
	if !closeTo(rec.AnnualDemand, 7300, 1e-9) {
		t.Errorf("annual demand = %v, want 7300", rec.AnnualDemand)
	}

	// EOQ with default costs: sqrt(2*7300*50/2).
	wantEOQ := math.Sqrt(2 * 7300 * 50 / 2.0)
	if !closeTo(rec.EconomicOrderQty, wantEOQ, 1e-6) {
		t.Errorf("EOQ = %v, want %v", rec.EconomicOrderQty, wantEOQ)
	}
	if !closeTo(rec.RecommendedReorderQty, wantEOQ, 1e-6) {
		t.Errorf("recommended qty = %v, want %v", rec.RecommendedReorderQty, wantEOQ)
	}
	if !closeTo(rec.StockoutRiskReduction, 10, 1e-9) {
		t.Errorf("risk reduction = %v, want 10", rec.StockoutRiskReduction)
	}
}

func TestRecommendAllZeroSeries(t *testing.T) {
	stats := statsFor(t, constantSeries(60, 0))
	params := domain.PolicyParams{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 0.95}

	rec, err := NewEngine().Recommend("dead-stock", stats, params)
	if err != nil {
		t.Fatalf("Recommend failed on zero series: %v", err)
	}

	if rec.SafetyStock != 0 {
		t.Errorf("safety stock = %v, want 0", rec.SafetyStock)
	}
	if rec.ReorderPoint != 0 {
		t.Errorf("reorder point = %v, want 0", rec.ReorderPoint)
	}
	// Zero holding cost: EOQ falls back to annual demand (0), floored at 1.
	if rec.EconomicOrderQty != 1 {
		t.Errorf("EOQ = %v, want 1", rec.EconomicOrderQty)
	}
	if rec.RecommendedReorderQty < 1 {
		t.Errorf("recommended qty = %v, want >= 1", rec.RecommendedReorderQty)
	}
}

func TestRecommendInvariants(t *testing.T) {
	engine := NewEngine()
	series := [][]float64{
		{5, 9, 4, 8, 12, 3, 7, 11, 6, 10, 5, 9, 14, 2, 8},
		constantSeries(40, 3),
		{0, 0, 4, 0, 9, 0, 0, 2, 0, 1},
	}
	params := domain.PolicyParams{LeadTimeDays: 10, SafetyStockPercent: 15, ServiceLevel: 0.9}

	for i, quantities := range series {
		rec, err := engine.Recommend("p", statsFor(t, quantities), params)
		if err != nil {
			t.Fatalf("series %d: %v", i, err)
		}
		if rec.SafetyStock < 0 {
			t.Errorf("series %d: safety stock %v < 0", i, rec.SafetyStock)
		}
		if rec.ReorderPoint < 0 {
			t.Errorf("series %d: reorder point %v < 0", i, rec.ReorderPoint)
		}
		if rec.EconomicOrderQty < 1 {
			t.Errorf("series %d: EOQ %v < 1", i, rec.EconomicOrderQty)
		}
		if rec.RecommendedReorderQty < rec.EconomicOrderQty {
			t.Errorf("series %d: recommended %v < EOQ %v", i, rec.RecommendedReorderQty, rec.EconomicOrderQty)
		}
		leadDemand := rec.AvgDailyDemand*float64(rec.LeadTimeDays) + rec.SafetyStock
		if rec.RecommendedReorderQty < leadDemand-1e-9 {
			t.Errorf("series %d: recommended %v < lead-time demand + buffer %v", i, rec.RecommendedReorderQty, leadDemand)
		}
		wantROP := rec.AvgDailyDemand*float64(rec.LeadTimeDays) + rec.SafetyStock
		if !closeTo(rec.ReorderPoint, wantROP, 1e-9) {
			t.Errorf("series %d: reorder point %v, want %v", i, rec.ReorderPoint, wantROP)
		}
	}
}

func TestRecommendServiceLevelMonotonicity(t *testing.T) {
	engine := NewEngine()
	stats := statsFor(t, []float64{12, 18, 9, 22, 15, 11, 19, 14, 8, 25, 13, 17})

	prev := -1.0
	for _, sl := range []float64{0.5, 0.75, 0.9, 0.95, 0.98} {
		rec, err := engine.Recommend("p", stats, domain.PolicyParams{LeadTimeDays: 7, SafetyStockPercent: 0, ServiceLevel: sl})
		if err != nil {
			t.Fatalf("service level %v: %v", sl, err)
		}
		if rec.StatisticalSafetyStock < prev {
			t.Fatalf("statistical safety stock decreased at service level %v: %v < %v", sl, rec.StatisticalSafetyStock, prev)
		}
		prev = rec.StatisticalSafetyStock
	}
}

func TestRecommendLeadTimeMonotonicity(t *testing.T) {
	engine := NewEngine()
	stats := statsFor(t, []float64{12, 18, 9, 22, 15, 11, 19, 14})

	prev := -1.0
	for lt := 1; lt <= 30; lt += 3 {
		rec, err := engine.Recommend("p", stats, domain.PolicyParams{LeadTimeDays: lt, SafetyStockPercent: 10, ServiceLevel: 0.95})
		if err != nil {
			t.Fatalf("lead time %d: %v", lt, err)
		}
		if rec.ReorderPoint < prev {
			t.Fatalf("reorder point decreased at lead time %d: %v < %v", lt, rec.ReorderPoint, prev)
		}
		prev = rec.ReorderPoint
	}
}

func TestRecommendRejectsBadParameters(t *testing.T) {
	engine := NewEngine()
	stats := statsFor(t, constantSeries(30, 10))

	bad := []domain.PolicyParams{
		{LeadTimeDays: 0, SafetyStockPercent: 20, ServiceLevel: 0.95},
		{LeadTimeDays: -3, SafetyStockPercent: 20, ServiceLevel: 0.95},
		{LeadTimeDays: 7, SafetyStockPercent: -1, ServiceLevel: 0.95},
		{LeadTimeDays: 7, SafetyStockPercent: 101, ServiceLevel: 0.95},
		{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 0},
		{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 1},
		{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 0.999},
		{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: -0.5},
	}

	for i, params := range bad {
		_, err := engine.Recommend("p", stats, params)
		if err == nil {
			t.Errorf("case %d: expected rejection for %+v", i, params)
			continue
		}
		if !errors.Is(err, domain.ErrInvalidParameter) {
			t.Errorf("case %d: error %v does not wrap ErrInvalidParameter", i, err)
		}
	}
}

func TestRecommendIdempotent(t *testing.T) {
	engine := NewEngine()
	stats := statsFor(t, []float64{7, 13, 5, 19, 8, 12, 16, 4, 11, 9})
	params := domain.PolicyParams{LeadTimeDays: 5, SafetyStockPercent: 25, ServiceLevel: 0.92}

	first, err := engine.Recommend("p", stats, params)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := engine.Recommend("p", stats, params)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first.SafetyStock != second.SafetyStock ||
		first.ReorderPoint != second.ReorderPoint ||
		first.EconomicOrderQty != second.EconomicOrderQty ||
		first.RecommendedReorderQty != second.RecommendedReorderQty {
		t.Fatalf("engine output changed between identical calls:\n%+v\n%+v", first, second)
	}
}

func TestNormInv(t *testing.T) {
	// Reference quantiles of the standard normal.
	cases := []struct{ p, z float64 }{
		{0.5, 0},
		{0.8413447460685429, 1},
		{0.95, 1.6448536269514722},
		{0.975, 1.959963984540054},
	}
	for _, c := range cases {
		if got := normInv(c.p); !closeTo(got, c.z, 1e-6) {
			t.Errorf("normInv(%v) = %v, want %v", c.p, got, c.z)
		}
	}
	if z := normInv(0.2); z >= 0 {
		t.Errorf("normInv(0.2) = %v, want negative", z)
	}
}
