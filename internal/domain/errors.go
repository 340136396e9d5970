// backend-go/internal/domain/errors.go
package domain

import "errors"

// Error kinds shared across the analytics core. Callers match with errors.Is
// after any amount of fmt.Errorf("%w") wrapping.
var (
	// ErrInvalidParameter marks rejected input arguments (negative lead time,
	// out-of-range service level or percentage). Inputs are never clamped;
	// only derived quantities are floored.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientHistory marks a demand series too short for the requested
	// statistic or backtest.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrModelFitFailure marks a forecasting backend that could not converge or
	// was given degenerate input. Recovered inside the forecast adapter.
	ErrModelFitFailure = errors.New("model fit failure")

	// ErrForecastUnavailable is returned when every forecasting backend failed.
	// Statistics, policy and simulation still work off the raw series.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrProductNotFound marks a product name with no sales history.
	ErrProductNotFound = errors.New("product not found")
)
