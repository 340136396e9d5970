package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/forecast"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
)

const defaultForecastHorizon = 14

// ForecastService produces demand forecasts with a cache in front of the
// model backends. Fitting a model is the slow path here, not the database
// read, so hits are keyed on the exact history they were computed from.
type ForecastService struct {
	repo           repository.SalesRepository
	adapter        *forecast.Adapter
	cache          cache.ForecastCache
	defaultHorizon int
}

// NewForecastService wires the service. A nil cache disables caching; a nil
// adapter gets the default backend chain.
func NewForecastService(repo repository.SalesRepository, adapter *forecast.Adapter, forecastCache cache.ForecastCache, defaultHorizon int) *ForecastService {
	if forecastCache == nil {
		forecastCache = cache.NewNoopForecastCache()
	}
	if adapter == nil {
		adapter = forecast.DefaultAdapter()
	}
	if defaultHorizon <= 0 {
		defaultHorizon = defaultForecastHorizon
	}
	return &ForecastService{
		repo:           repo,
		adapter:        adapter,
		cache:          forecastCache,
		defaultHorizon: defaultHorizon,
	}
}

// Backends lists the configured model chain in preference order.
func (s *ForecastService) Backends() []string {
	return s.adapter.Backends()
}

// Forecast produces the demand forecast for a product. horizonDays <= 0
// falls back to the service default. Results are cached against the history
// snapshot and persisted for the dashboard's last-known-forecast view; a
// failed persist is logged, not fatal.
func (s *ForecastService) Forecast(ctx context.Context, product string, horizonDays int) (*domain.ForecastResult, error) {
	if horizonDays <= 0 {
		horizonDays = s.defaultHorizon
	}

	history, err := s.repo.GetDemandSeries(ctx, product, time.Time{})
	if err != nil {
		return nil, err
	}

	if result, ok, err := s.cache.Get(ctx, product, horizonDays, history); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product", product).Msg("forecast: cache get failed")
	}

	result, err := s.adapter.ForecastWithBacktest(ctx, history, horizonDays)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, product, horizonDays, history, result); err != nil {
		log.Warn().Err(err).Str("product", product).Msg("forecast: cache set failed")
	}
	if err := s.repo.SaveForecast(ctx, result); err != nil {
		log.Warn().Err(err).Str("product", product).Msg("forecast: failed to persist result")
	}

	return result, nil
}

// Backtest grades every configured backend on the product's held-out
// history, whether or not it would win the fallback chain.
func (s *ForecastService) Backtest(ctx context.Context, product string, horizonDays int) ([]forecast.BackendScore, error) {
	if horizonDays <= 0 {
		horizonDays = s.defaultHorizon
	}

	history, err := s.repo.GetDemandSeries(ctx, product, time.Time{})
	if err != nil {
		return nil, err
	}

	return s.adapter.Grade(ctx, history, horizonDays)
}

// LatestForecast returns the last stored forecast for the product at the
// given horizon, nil when none has been produced yet.
func (s *ForecastService) LatestForecast(ctx context.Context, product string, horizonDays int) (*domain.ForecastResult, error) {
	if horizonDays <= 0 {
		horizonDays = s.defaultHorizon
	}
	return s.repo.GetLatestForecast(ctx, product, horizonDays)
}
