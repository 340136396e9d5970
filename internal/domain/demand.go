// backend-go/internal/domain/demand.go
package domain

import (
	"fmt"
	"time"
)

// DemandPoint is one day of observed demand for a product.
type DemandPoint struct {
	Date     time.Time `json:"date" db:"date"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// DemandSeries is the ordered daily demand history for one product.
// Dates are strictly increasing and quantities non-negative; providers
// guarantee this and Validate enforces it at the boundary.
type DemandSeries struct {
	Product string        `json:"product"`
	Points  []DemandPoint `json:"points"`
}

// Validate checks the series invariants: at least one point, strictly
// increasing dates (no duplicates), no negative quantities.
func (s DemandSeries) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%w: series for %q has no points", ErrInsufficientHistory, s.Product)
	}

	for i, p := range s.Points {
		if p.Quantity < 0 {
			return fmt.Errorf("%w: negative quantity %.2f at %s", ErrInvalidParameter, p.Quantity, p.Date.Format("2006-01-02"))
		}
		if i > 0 && !s.Points[i-1].Date.Before(p.Date) {
			return fmt.Errorf("%w: dates not strictly increasing at index %d", ErrInvalidParameter, i)
		}
	}

	return nil
}

// Len returns the number of observations.
func (s DemandSeries) Len() int { return len(s.Points) }

// Quantities returns the quantity column in order.
func (s DemandSeries) Quantities() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Quantity
	}
	return out
}

// Tail returns a copy of the series keeping only the most recent n points.
// The original series is never mutated.
func (s DemandSeries) Tail(n int) DemandSeries {
	if n <= 0 || len(s.Points) <= n {
		return s.clone()
	}
	trimmed := s.clone()
	trimmed.Points = trimmed.Points[len(trimmed.Points)-n:]
	return trimmed
}

// Split separates the series into a training head and a holdout tail of the
// given length. holdout must be smaller than the series length.
func (s DemandSeries) Split(holdout int) (train, test DemandSeries, err error) {
	if holdout <= 0 || holdout >= len(s.Points) {
		return DemandSeries{}, DemandSeries{}, fmt.Errorf("%w: holdout %d out of range for %d points", ErrInvalidParameter, holdout, len(s.Points))
	}
	cut := len(s.Points) - holdout
	train = DemandSeries{Product: s.Product, Points: append([]DemandPoint(nil), s.Points[:cut]...)}
	test = DemandSeries{Product: s.Product, Points: append([]DemandPoint(nil), s.Points[cut:]...)}
	return train, test, nil
}

func (s DemandSeries) clone() DemandSeries {
	return DemandSeries{
		Product: s.Product,
		Points:  append([]DemandPoint(nil), s.Points...),
	}
}

// DemandStatistics is the immutable summary of a demand series.
type DemandStatistics struct {
	AvgDailyDemand         float64 `json:"avg_daily_demand"`
	DemandStd              float64 `json:"demand_std"`
	TrendSlope             float64 `json:"trend_slope"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Observations           int     `json:"observations"`
}
