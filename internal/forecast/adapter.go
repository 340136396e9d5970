// backend-go/internal/forecast/adapter.go
package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// Adapter fans a forecast request out to every configured backend and keeps
// the answer from the highest-priority one that fit. A single backend
// blowing up is logged and skipped; only when all of them fail does the
// caller see ErrForecastUnavailable.
type Adapter struct {
	backends []Backend
}

// NewAdapter builds an adapter over the given backends, ordered by priority.
func NewAdapter(backends ...Backend) (*Adapter, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: forecast adapter needs at least one backend", domain.ErrInvalidParameter)
	}
	return &Adapter{backends: backends}, nil
}

// DefaultAdapter wires the standard cascade: the additive seasonal model
// first, weekly SARIMA as the fallback.
func DefaultAdapter() *Adapter {
	a, _ := NewAdapter(NewSeasonalAdditiveBackend(), NewSeasonalARIMABackend())
	return a
}

// Backends reports the configured backend names in priority order.
func (a *Adapter) Backends() []string {
	names := make([]string, len(a.backends))
	for i, b := range a.backends {
		names[i] = b.Name()
	}
	return names
}

// Forecast fits all backends concurrently and returns the best available
// result. Input errors (bad horizon, broken or too-short history) abort
// immediately since no backend could do better; fit failures trigger the
// fallback chain instead.
func (a *Adapter) Forecast(ctx context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error) {
	results := make([]*domain.ForecastResult, len(a.backends))
	fitErrs := make([]error, len(a.backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range a.backends {
		g.Go(func() error {
			result, err := backend.FitAndForecast(gctx, history, horizonDays)
			if err != nil {
				if isInputError(err) {
					return err
				}
				fitErrs[i] = err
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, result := range results {
		if result == nil {
			log.Warn().
				Err(fitErrs[i]).
				Str("backend", a.backends[i].Name()).
				Str("product", history.Product).
				Msg("forecast backend failed, trying next")
			continue
		}
		if i > 0 {
			log.Info().
				Str("backend", result.Model).
				Str("product", history.Product).
				Msg("forecast served by fallback backend")
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: all backends failed for %q (%s)",
		domain.ErrForecastUnavailable, history.Product, strings.Join(a.Backends(), ", "))
}

// ForecastWithBacktest runs Forecast and then grades the winning backend on
// a holdout window. Grading problems never sink the forecast; the metrics
// just stay absent.
func (a *Adapter) ForecastWithBacktest(ctx context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error) {
	result, err := a.Forecast(ctx, history, horizonDays)
	if err != nil {
		return nil, err
	}

	backend := a.backendByName(result.Model)
	if backend == nil {
		return result, nil
	}

	metrics, err := Backtest(ctx, backend, history, horizonDays)
	if err != nil {
		log.Warn().
			Err(err).
			Str("backend", result.Model).
			Str("product", history.Product).
			Msg("backtest failed, returning forecast without accuracy metrics")
		return result, nil
	}
	result.Backtest = metrics
	return result, nil
}

func (a *Adapter) backendByName(name string) Backend {
	for _, b := range a.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// isInputError separates caller mistakes from model trouble. The former are
// identical for every backend, so retrying a fallback would not help.
func isInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidParameter) ||
		errors.Is(err, domain.ErrInsufficientHistory) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
