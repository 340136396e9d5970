// backend-go/internal/domain/policy.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxServiceLevel bounds the service level strictly below the point where the
// probit function starts to diverge.
const MaxServiceLevel = 0.999

// PolicyParams are the business inputs to the reorder engine.
type PolicyParams struct {
	LeadTimeDays       int     `json:"lead_time_days" yaml:"lead_time_days"`
	SafetyStockPercent float64 `json:"safety_stock_percent" yaml:"safety_stock_percent"`
	ServiceLevel       float64 `json:"service_level" yaml:"service_level"`
}

// Validate rejects out-of-range parameters. Inputs are never clamped.
func (p PolicyParams) Validate() error {
	if p.LeadTimeDays < 1 {
		return fmt.Errorf("%w: lead_time_days must be a positive number of days, got %d", ErrInvalidParameter, p.LeadTimeDays)
	}
	if p.SafetyStockPercent < 0 || p.SafetyStockPercent > 100 {
		return fmt.Errorf("%w: safety_stock_percent must be within [0, 100], got %.2f", ErrInvalidParameter, p.SafetyStockPercent)
	}
	if p.ServiceLevel <= 0 || p.ServiceLevel >= MaxServiceLevel {
		return fmt.Errorf("%w: service_level must lie in (0, %.3f), got %.4f", ErrInvalidParameter, MaxServiceLevel, p.ServiceLevel)
	}
	return nil
}

// StockPolicyRecommendation is the reorder engine's output for one product and
// one parameter set. Never mutated; parameter changes produce a new record.
type StockPolicyRecommendation struct {
	Product                string    `json:"product" db:"product"`
	AvgDailyDemand         float64   `json:"avg_daily_demand" db:"avg_daily_demand"`
	DemandStd              float64   `json:"demand_std" db:"demand_std"`
	LeadTimeDays           int       `json:"lead_time_days" db:"lead_time_days"`
	SafetyStock            float64   `json:"safety_stock" db:"safety_stock"`
	StatisticalSafetyStock float64   `json:"statistical_safety_stock" db:"statistical_safety_stock"`
	PercentageSafetyStock  float64   `json:"percentage_safety_stock" db:"percentage_safety_stock"`
	ReorderPoint           float64   `json:"reorder_point" db:"reorder_point"`
	EconomicOrderQty       float64   `json:"economic_order_qty" db:"economic_order_qty"`
	RecommendedReorderQty  float64   `json:"recommended_reorder_qty" db:"recommended_reorder_qty"`
	ServiceLevel           float64   `json:"service_level" db:"service_level"`
	AnnualDemand           float64   `json:"annual_demand" db:"annual_demand"`
	StockoutRiskReduction  float64   `json:"stockout_risk_reduction" db:"stockout_risk_reduction"`
	ComputedAt             time.Time `json:"computed_at" db:"computed_at"`
}

// LeadTimeDemand is the expected consumption during one lead time.
func (r StockPolicyRecommendation) LeadTimeDemand() float64 {
	return r.AvgDailyDemand * float64(r.LeadTimeDays)
}

// OrderValue prices the recommended order at the given unit cost, rounded to
// two decimal places.
func (r StockPolicyRecommendation) OrderValue(unitCost decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromFloat(r.RecommendedReorderQty)
	return qty.Mul(unitCost).Round(2)
}

// InventoryMetrics are performance figures derived from a recommendation.
// The stockout probability is a coarse variability heuristic, not a
// calibrated probability.
type InventoryMetrics struct {
	DaysOfInventory     float64 `json:"days_of_inventory"`
	InventoryTurnover   float64 `json:"inventory_turnover"`
	StockoutProbability float64 `json:"stockout_probability"`
	SafetyStockCoverage float64 `json:"safety_stock_coverage"`
}

// SimulatedDay is one recorded day of a stock-level simulation.
type SimulatedDay struct {
	Day        int     `json:"day"`
	Demand     float64 `json:"demand"`
	StockLevel float64 `json:"stock_level"`
	Reordered  bool    `json:"reordered"`
}

// SimulationResult is a full projected stock trajectory under a recommended
// policy. Seed records the RNG seed so any run can be replayed.
type SimulationResult struct {
	ID       uuid.UUID      `json:"id"`
	Product  string         `json:"product"`
	Days     int            `json:"days"`
	Seed     int64          `json:"seed"`
	Levels   []SimulatedDay `json:"levels"`
	Reorders int            `json:"reorders"`
}
