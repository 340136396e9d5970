// backend-go/internal/forecast/seasonal.go
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// SeasonalAdditiveBackend decomposes demand into a linear trend plus additive
// weekday components, the classic shape of retail daily sales. Forecasts
// extrapolate the trend and re-apply the weekday component; the interval is a
// flat residual band.
type SeasonalAdditiveBackend struct{}

// NewSeasonalAdditiveBackend returns the additive-decomposition backend.
func NewSeasonalAdditiveBackend() *SeasonalAdditiveBackend {
	return &SeasonalAdditiveBackend{}
}

func (b *SeasonalAdditiveBackend) Name() string { return "seasonal_additive" }

// FitAndForecast fits trend + weekday seasonality on the recent history and
// projects horizonDays forward.
func (b *SeasonalAdditiveBackend) FitAndForecast(ctx context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history, err := prepareHistory(history, horizonDays)
	if err != nil {
		return nil, err
	}

	values := history.Quantities()
	n := len(values)

	slope, intercept := olsLine(values)
	if !isFinite(slope) || !isFinite(intercept) {
		return nil, fmt.Errorf("%w: %s trend fit diverged", domain.ErrModelFitFailure, b.Name())
	}

	// Weekday components: mean detrended value per weekday. Weekdays absent
	// from the window keep a zero component.
	var compSum [7]float64
	var compCount [7]int
	for i, p := range history.Points {
		detrended := values[i] - (intercept + slope*float64(i))
		wd := int(p.Date.Weekday())
		compSum[wd] += detrended
		compCount[wd]++
	}
	var components [7]float64
	for wd := range components {
		if compCount[wd] > 0 {
			components[wd] = compSum[wd] / float64(compCount[wd])
		}
	}

	// Residual spread feeds the prediction band.
	sse := 0.0
	for i, p := range history.Points {
		fitted := intercept + slope*float64(i) + components[int(p.Date.Weekday())]
		r := values[i] - fitted
		sse += r * r
	}
	residStd := math.Sqrt(sse / float64(n))
	band := intervalZ * residStd

	lastDate := history.Points[n-1].Date
	points := make([]domain.ForecastPoint, 0, horizonDays)
	for h := 1; h <= horizonDays; h++ {
		date := lastDate.AddDate(0, 0, h)
		raw := intercept + slope*float64(n-1+h) + components[int(date.Weekday())]
		point, lower, upper := boundPoint(raw, band)
		points = append(points, domain.ForecastPoint{
			Date:     date,
			Forecast: point,
			Lower:    lower,
			Upper:    upper,
		})
	}

	return &domain.ForecastResult{
		Model:       b.Name(),
		Product:     history.Product,
		HorizonDays: horizonDays,
		Points:      points,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// olsLine fits y = intercept + slope*x over x = 0..n-1.
func olsLine(values []float64) (slope, intercept float64) {
	n := len(values)
	if n < 2 {
		if n == 1 {
			return 0, values[0]
		}
		return 0, 0
	}

	meanX := float64(n-1) / 2
	sumY := 0.0
	for _, v := range values {
		sumY += v
	}
	meanY := sumY / float64(n)

	num := 0.0
	den := 0.0
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, meanY
	}
	slope = num / den
	intercept = meanY - slope*meanX
	return slope, intercept
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
