// backend-go/internal/stockopt/simulator.go
package stockopt

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// DefaultSimulationDays is the default projection horizon.
const DefaultSimulationDays = 30

// SimOptions tune a simulation run. Seed 0 means "seed from the clock";
// tests inject a fixed seed for reproducible trajectories.
type SimOptions struct {
	Days int
	Seed int64
}

// Simulate projects a day-by-day stock trajectory under the recommended
// policy. Each day draws demand from N(avg, std) floored at 0, depletes stock
// (floored at 0, unmet demand is lost), and refills by the recommended
// quantity the moment stock falls to the reorder point or below. Refills are
// instantaneous; lead-time delay is deliberately not simulated here.
//
// Every run owns a private RNG instance, so concurrent simulations never
// share generator state.
func Simulate(rec domain.StockPolicyRecommendation, opts SimOptions) domain.SimulationResult {
	days := opts.Days
	if days <= 0 {
		days = DefaultSimulationDays
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result := domain.SimulationResult{
		ID:      uuid.New(),
		Product: rec.Product,
		Days:    days,
		Seed:    seed,
		Levels:  make([]domain.SimulatedDay, 0, days),
	}

	stock := rec.RecommendedReorderQty
	for day := 1; day <= days; day++ {
		demand := math.Max(0, rng.NormFloat64()*rec.DemandStd+rec.AvgDailyDemand)

		stock = math.Max(0, stock-demand)

		reordered := false
		if stock <= rec.ReorderPoint {
			stock += rec.RecommendedReorderQty
			reordered = true
			result.Reorders++
		}

		result.Levels = append(result.Levels, domain.SimulatedDay{
			Day:        day,
			Demand:     demand,
			StockLevel: stock,
			Reordered:  reordered,
		})
	}

	return result
}
