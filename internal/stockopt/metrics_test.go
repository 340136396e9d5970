package stockopt

import (
	"math"
	"testing"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

func TestComputeMetrics(t *testing.T) {
	rec := domain.StockPolicyRecommendation{
		Product:               "widget",
		AvgDailyDemand:        20,
		DemandStd:             5,
		LeadTimeDays:          7,
		SafetyStock:           10,
		ReorderPoint:          150,
		RecommendedReorderQty: 600,
		AnnualDemand:          7300,
	}

	m := ComputeMetrics(rec, nil)

	if !closeTo(m.DaysOfInventory, 30, 1e-9) {
		t.Errorf("days of inventory = %v, want 30", m.DaysOfInventory)
	}
	// 7300 / ((600+10)/2)
	wantTurnover := 7300.0 / 305.0
	if !closeTo(m.InventoryTurnover, wantTurnover, 1e-9) {
		t.Errorf("turnover = %v, want %v", m.InventoryTurnover, wantTurnover)
	}
	// cv = 0.25, halved.
	if !closeTo(m.StockoutProbability, 0.125, 1e-9) {
		t.Errorf("stockout probability = %v, want 0.125", m.StockoutProbability)
	}
	if !closeTo(m.SafetyStockCoverage, 0.5, 1e-9) {
		t.Errorf("coverage = %v, want 0.5", m.SafetyStockCoverage)
	}
}

func TestComputeMetricsCurrentInventoryOverride(t *testing.T) {
	rec := domain.StockPolicyRecommendation{
		AvgDailyDemand:        10,
		RecommendedReorderQty: 500,
		AnnualDemand:          3650,
	}
	current := 120.0
	m := ComputeMetrics(rec, &current)
	if !closeTo(m.DaysOfInventory, 12, 1e-9) {
		t.Errorf("days of inventory = %v, want 12", m.DaysOfInventory)
	}
}

func TestComputeMetricsZeroDemand(t *testing.T) {
	rec := domain.StockPolicyRecommendation{
		AvgDailyDemand:        0,
		DemandStd:             0,
		RecommendedReorderQty: 1,
		AnnualDemand:          0,
	}
	m := ComputeMetrics(rec, nil)

	if m.DaysOfInventory != 0 || m.InventoryTurnover != 0 || m.StockoutProbability != 0 || m.SafetyStockCoverage != 0 {
		t.Fatalf("zero-demand metrics not zeroed: %+v", m)
	}
	for _, v := range []float64{m.DaysOfInventory, m.InventoryTurnover, m.StockoutProbability, m.SafetyStockCoverage} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("zero-demand metrics produced non-finite value: %+v", m)
		}
	}
}

func TestStockoutProbabilityClamped(t *testing.T) {
	rec := domain.StockPolicyRecommendation{
		AvgDailyDemand:        2,
		DemandStd:             30, // cv*0.5 = 7.5, clamps to 1
		RecommendedReorderQty: 100,
		AnnualDemand:          730,
	}
	m := ComputeMetrics(rec, nil)
	if m.StockoutProbability != 1 {
		t.Errorf("stockout probability = %v, want clamp at 1", m.StockoutProbability)
	}
}
