// backend-go/internal/forecast/backtest.go
package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

const (
	// MaxHoldoutDays caps the evaluation window regardless of horizon.
	MaxHoldoutDays = 14
	// TrainingWindow caps how much history the holdout fit sees.
	TrainingWindow = 90
	// MinTrainObservations is the floor below which metrics are not reported.
	MinTrainObservations = 30
)

// Backtest refits the backend on history minus a holdout tail and scores the
// holdout. A nil result with a nil error means the history is long enough to
// forecast but too short to grade; callers report the forecast without
// metrics in that case.
func Backtest(ctx context.Context, backend Backend, history domain.DemandSeries, horizonDays int) (*domain.BacktestMetrics, error) {
	if horizonDays < 1 {
		return nil, fmt.Errorf("%w: backtest horizon must be at least 1 day, got %d", domain.ErrInvalidParameter, horizonDays)
	}
	if err := history.Validate(); err != nil {
		return nil, err
	}

	holdout := horizonDays
	if holdout > MaxHoldoutDays {
		holdout = MaxHoldoutDays
	}

	train, test, err := history.Split(holdout)
	if err != nil {
		return nil, err
	}
	train = train.Tail(TrainingWindow)
	if train.Len() < MinTrainObservations {
		// Metrics stay absent rather than zero-valued.
		return nil, nil
	}

	result, err := backend.FitAndForecast(ctx, train, holdout)
	if err != nil {
		return nil, err
	}
	if len(result.Points) < holdout {
		return nil, fmt.Errorf("%w: %s returned %d of %d holdout points", domain.ErrModelFitFailure, backend.Name(), len(result.Points), holdout)
	}

	metrics := score(result.Points[:holdout], test.Points)
	return metrics, nil
}

// BackendScore is one backend's holdout accuracy in a model comparison.
type BackendScore struct {
	Model   string                  `json:"model"`
	Metrics *domain.BacktestMetrics `json:"metrics,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Grade backtests every backend of the adapter against the same holdout so
// their accuracy can be compared side by side. Input errors abort the whole
// comparison; a single backend failing to fit becomes an error row.
func (a *Adapter) Grade(ctx context.Context, history domain.DemandSeries, horizonDays int) ([]BackendScore, error) {
	scores := make([]BackendScore, len(a.backends))

	for i, backend := range a.backends {
		scores[i].Model = backend.Name()

		metrics, err := Backtest(ctx, backend, history, horizonDays)
		if err != nil {
			if isInputError(err) {
				return nil, err
			}
			scores[i].Error = err.Error()
			continue
		}
		scores[i].Metrics = metrics
	}

	return scores, nil
}

// score compares forecasts against actuals. MAPE skips zero-demand days to
// avoid dividing by zero; if every actual is zero the metrics are withheld.
func score(forecasts []domain.ForecastPoint, actuals []domain.DemandPoint) *domain.BacktestMetrics {
	var (
		sqErr   float64
		apeSum  float64
		apeDays int
	)
	for i, actual := range actuals {
		diff := forecasts[i].Forecast - actual.Quantity
		sqErr += diff * diff
		if actual.Quantity != 0 {
			apeSum += math.Abs(diff) / actual.Quantity * 100
			apeDays++
		}
	}
	if apeDays == 0 {
		return nil
	}
	return &domain.BacktestMetrics{
		MAPE: apeSum / float64(apeDays),
		RMSE: math.Sqrt(sqErr / float64(len(actuals))),
	}
}
