// backend-go/internal/forecast/backend.go
package forecast

import (
	"context"
	"fmt"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

const (
	// MinFitObservations is the shortest history a backend will fit.
	MinFitObservations = 30
	// FittingWindow caps how much history a backend uses: only the most
	// recent observations matter for near-term demand, and bounding the
	// window bounds fitting cost. Older data is discarded at fit time.
	FittingWindow = 180
	// intervalZ is the z-score behind the ~80% prediction band both
	// backends report.
	intervalZ = 1.28
)

// Backend fits a model to a demand history and produces a point + interval
// forecast for the requested horizon. Implementations are stateless; every
// call works on its own copy of the data. Degenerate input or a fit that does
// not converge yields an error wrapping domain.ErrModelFitFailure.
type Backend interface {
	Name() string
	FitAndForecast(ctx context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error)
}

// prepareHistory validates and windows a series for fitting.
func prepareHistory(history domain.DemandSeries, horizonDays int) (domain.DemandSeries, error) {
	if horizonDays < 1 {
		return domain.DemandSeries{}, fmt.Errorf("%w: horizon_days must be at least 1, got %d", domain.ErrInvalidParameter, horizonDays)
	}
	if err := history.Validate(); err != nil {
		return domain.DemandSeries{}, err
	}

	history = history.Tail(FittingWindow)
	if history.Len() < MinFitObservations {
		return domain.DemandSeries{}, fmt.Errorf("%w: %d observations, need %d", domain.ErrModelFitFailure, history.Len(), MinFitObservations)
	}
	return history, nil
}

// boundPoint floors a raw forecast and its band at zero while preserving the
// lower <= point <= upper ordering. Demand cannot be negative.
func boundPoint(raw, band float64) (point, lower, upper float64) {
	point = max0(raw)
	lower = max0(raw - band)
	upper = max0(raw + band)
	return point, lower, upper
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
