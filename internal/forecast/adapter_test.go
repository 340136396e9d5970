// backend-go/internal/forecast/adapter_test.go
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// scriptedBackend is a hand-rolled fake that returns a flat forecast, an
// injected error, or starts failing after a set number of calls.
type scriptedBackend struct {
	mu           sync.Mutex
	name         string
	fitErr       error
	level        float64
	errAfter     int // fail calls beyond this many successes, 0 means never
	calls        int
	lastHorizon  int
	lastTrainLen int
}

func (s *scriptedBackend) Name() string { return s.name }

func (s *scriptedBackend) FitAndForecast(_ context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error) {
	s.mu.Lock()
	s.calls++
	calls := s.calls
	s.lastHorizon = horizonDays
	s.lastTrainLen = history.Len()
	s.mu.Unlock()

	if s.fitErr != nil {
		return nil, s.fitErr
	}
	if s.errAfter > 0 && calls > s.errAfter {
		return nil, fmt.Errorf("%w: scripted failure on call %d", domain.ErrModelFitFailure, calls)
	}

	last := history.Points[len(history.Points)-1].Date
	points := make([]domain.ForecastPoint, horizonDays)
	for i := range points {
		points[i] = domain.ForecastPoint{
			Date:     last.AddDate(0, 0, i+1),
			Forecast: s.level,
			Lower:    s.level,
			Upper:    s.level,
		}
	}
	return &domain.ForecastResult{
		Model:       s.name,
		Product:     history.Product,
		HorizonDays: horizonDays,
		Points:      points,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func flatHistory(t *testing.T, trainDays int, trainLevel float64, holdout []float64) domain.DemandSeries {
	t.Helper()
	values := make([]float64, 0, trainDays+len(holdout))
	for i := 0; i < trainDays; i++ {
		values = append(values, trainLevel)
	}
	values = append(values, holdout...)
	return dailySeries(t, "SKU-300", values)
}

func TestAdapterPrefersPrimaryBackend(t *testing.T) {
	primary := &scriptedBackend{name: "primary", level: 11}
	backup := &scriptedBackend{name: "backup", level: 99}
	adapter, err := NewAdapter(primary, backup)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}

	result, err := adapter.Forecast(context.Background(), flatHistory(t, 40, 20, nil), 5)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if result.Model != "primary" {
		t.Fatalf("model = %q, want primary", result.Model)
	}
	closeTo(t, result.Points[0].Forecast, 11, 1e-9, "primary level")
}

func TestAdapterFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &scriptedBackend{name: "primary", fitErr: fmt.Errorf("%w: no convergence", domain.ErrModelFitFailure)}
	backup := &scriptedBackend{name: "backup", level: 7}
	adapter, _ := NewAdapter(primary, backup)

	result, err := adapter.Forecast(context.Background(), flatHistory(t, 40, 20, nil), 5)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if result.Model != "backup" {
		t.Fatalf("model = %q, want backup", result.Model)
	}
}

func TestAdapterReportsUnavailableWhenAllFail(t *testing.T) {
	primary := &scriptedBackend{name: "primary", fitErr: fmt.Errorf("%w: primary down", domain.ErrModelFitFailure)}
	backup := &scriptedBackend{name: "backup", fitErr: fmt.Errorf("%w: backup down", domain.ErrModelFitFailure)}
	adapter, _ := NewAdapter(primary, backup)

	_, err := adapter.Forecast(context.Background(), flatHistory(t, 40, 20, nil), 5)
	if !errors.Is(err, domain.ErrForecastUnavailable) {
		t.Fatalf("err = %v, want ErrForecastUnavailable", err)
	}
}

func TestAdapterPropagatesInputErrors(t *testing.T) {
	// Caller mistakes are the same for every backend, so the adapter must
	// not mask them behind the fallback chain.
	primary := &scriptedBackend{name: "primary", fitErr: fmt.Errorf("%w: 3 observations", domain.ErrInsufficientHistory)}
	backup := &scriptedBackend{name: "backup", level: 7}
	adapter, _ := NewAdapter(primary, backup)

	_, err := adapter.Forecast(context.Background(), flatHistory(t, 40, 20, nil), 5)
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestAdapterRequiresBackends(t *testing.T) {
	if _, err := NewAdapter(); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestDefaultAdapterOrdering(t *testing.T) {
	names := DefaultAdapter().Backends()
	if len(names) != 2 || names[0] != "seasonal_additive" || names[1] != "seasonal_arima" {
		t.Fatalf("backend order = %v, want [seasonal_additive seasonal_arima]", names)
	}
}

func TestForecastWithBacktestAttachesMetrics(t *testing.T) {
	holdout := []float64{20, 10, 0, 25, 20, 16, 10}
	history := flatHistory(t, 33, 20, holdout)
	backend := &scriptedBackend{name: "flat", level: 20}
	adapter, _ := NewAdapter(backend)

	result, err := adapter.ForecastWithBacktest(context.Background(), history, 7)
	if err != nil {
		t.Fatalf("ForecastWithBacktest: %v", err)
	}
	if result.Backtest == nil {
		t.Fatal("expected backtest metrics, got nil")
	}
	// The zero-demand day is excluded from MAPE but still counts in RMSE.
	closeTo(t, result.Backtest.MAPE, 245.0/6.0, 1e-9, "MAPE")
	closeTo(t, result.Backtest.RMSE, math.Sqrt(641.0/7.0), 1e-9, "RMSE")
}

func TestForecastWithBacktestSurvivesGradingFailure(t *testing.T) {
	history := flatHistory(t, 33, 20, []float64{20, 21, 19, 20, 22, 18, 20})
	backend := &scriptedBackend{name: "flaky", level: 20, errAfter: 1}
	adapter, _ := NewAdapter(backend)

	result, err := adapter.ForecastWithBacktest(context.Background(), history, 7)
	if err != nil {
		t.Fatalf("forecast must survive a failed backtest, got %v", err)
	}
	if result == nil || result.Model != "flaky" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Backtest != nil {
		t.Fatalf("metrics must be absent after a failed backtest, got %+v", result.Backtest)
	}
}

func TestBacktestWithholdsMetricsOnShortTraining(t *testing.T) {
	history := flatHistory(t, 25, 20, []float64{20, 20, 20, 20, 20, 20, 20, 20, 20, 20})
	metrics, err := Backtest(context.Background(), &scriptedBackend{name: "flat", level: 20}, history, 10)
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if metrics != nil {
		t.Fatalf("25 training days must yield no metrics, got %+v", metrics)
	}
}

func TestBacktestWithholdsMetricsWhenActualsAllZero(t *testing.T) {
	history := flatHistory(t, 33, 20, []float64{0, 0, 0, 0, 0, 0, 0})
	metrics, err := Backtest(context.Background(), &scriptedBackend{name: "flat", level: 20}, history, 7)
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if metrics != nil {
		t.Fatalf("all-zero actuals must yield no metrics, got %+v", metrics)
	}
}

func TestBacktestCapsHoldoutAndTrainingWindows(t *testing.T) {
	backend := &scriptedBackend{name: "flat", level: 20}

	if _, err := Backtest(context.Background(), backend, flatHistory(t, 60, 20, nil), 30); err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if backend.lastHorizon != MaxHoldoutDays {
		t.Fatalf("holdout = %d, want %d", backend.lastHorizon, MaxHoldoutDays)
	}
	if backend.lastTrainLen != 60-MaxHoldoutDays {
		t.Fatalf("training length = %d, want %d", backend.lastTrainLen, 60-MaxHoldoutDays)
	}

	if _, err := Backtest(context.Background(), backend, flatHistory(t, 140, 20, nil), 7); err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	if backend.lastHorizon != 7 {
		t.Fatalf("holdout = %d, want 7", backend.lastHorizon)
	}
	if backend.lastTrainLen != TrainingWindow {
		t.Fatalf("training length = %d, want %d", backend.lastTrainLen, TrainingWindow)
	}
}

func TestBacktestRejectsBadHorizon(t *testing.T) {
	history := flatHistory(t, 60, 20, nil)
	if _, err := Backtest(context.Background(), &scriptedBackend{name: "flat", level: 20}, history, 0); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}
