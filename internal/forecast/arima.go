// backend-go/internal/forecast/arima.go
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

const seasonalPeriod = 7

// SeasonalARIMABackend fits a SARIMA(1,1,1)(1,1,1) model with a weekly
// season by conditional least squares. When the seasonal fit degenerates it
// falls back to ARIMA(1,1,1), then (0,1,1), before giving up.
type SeasonalARIMABackend struct{}

// NewSeasonalARIMABackend returns the weekly SARIMA backend.
func NewSeasonalARIMABackend() *SeasonalARIMABackend {
	return &SeasonalARIMABackend{}
}

func (b *SeasonalARIMABackend) Name() string { return "seasonal_arima" }

// arimaModel is one fitted configuration over the differenced series.
type arimaModel struct {
	phi, theta   float64 // ordinary AR(1) / MA(1)
	sphi, stheta float64 // seasonal AR(1) / MA(1) at lag 7
	seasonal     bool    // seasonal difference + seasonal terms active
	withAR       bool    // ordinary AR term active
	w            []float64
	resid        []float64
	sigma        float64
}

// FitAndForecast fits the cascade on the recent history and projects
// horizonDays forward by recursively inverting the differences.
func (b *SeasonalARIMABackend) FitAndForecast(ctx context.Context, history domain.DemandSeries, horizonDays int) (*domain.ForecastResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history, err := prepareHistory(history, horizonDays)
	if err != nil {
		return nil, err
	}

	values := history.Quantities()

	model, ok := fitCascade(values)
	if !ok {
		return nil, fmt.Errorf("%w: %s did not converge on %d observations", domain.ErrModelFitFailure, b.Name(), len(values))
	}

	raw := model.forecast(values, horizonDays)

	lastDate := history.Points[len(history.Points)-1].Date
	points := make([]domain.ForecastPoint, 0, horizonDays)
	for h := 1; h <= horizonDays; h++ {
		// Differenced models accumulate forecast error roughly linearly in
		// the horizon.
		band := intervalZ * model.sigma * math.Sqrt(float64(h))
		point, lower, upper := boundPoint(raw[h-1], band)
		points = append(points, domain.ForecastPoint{
			Date:     lastDate.AddDate(0, 0, h),
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

// fitCascade tries the seasonal model first, then the plain fallbacks.
func fitCascade(values []float64) (arimaModel, bool) {
	if m, ok := fitConfig(values, true, true); ok {
		return m, true
	}
	if m, ok := fitConfig(values, false, true); ok {
		return m, true
	}
	return fitConfig(values, false, false)
}

// fitConfig differences the series for one configuration and searches its
// parameter space.
func fitConfig(values []float64, seasonal, withAR bool) (arimaModel, bool) {
	var w []float64
	if seasonal {
		// (1-B)(1-B^7): needs 8 leading observations.
		if len(values) < seasonalPeriod+1+MinFitObservations/2 {
			return arimaModel{}, false
		}
		w = make([]float64, 0, len(values)-seasonalPeriod-1)
		for i := seasonalPeriod + 1; i < len(values); i++ {
			w = append(w, values[i]-values[i-1]-values[i-seasonalPeriod]+values[i-seasonalPeriod-1])
		}
	} else {
		w = make([]float64, 0, len(values)-1)
		for i := 1; i < len(values); i++ {
			w = append(w, values[i]-values[i-1])
		}
	}

	minTerms := 2 * seasonalPeriod
	if len(w) <= minTerms {
		return arimaModel{}, false
	}

	model := arimaModel{seasonal: seasonal, withAR: withAR, w: w}
	if !model.search() {
		return arimaModel{}, false
	}
	return model, true
}

// css computes conditional-least-squares residuals for the current
// parameters. Pre-sample shocks are treated as zero; the error sum skips the
// ramp-up where lagged terms are incomplete.
func (m *arimaModel) css(phi, theta, sphi, stheta float64) (sse float64, resid []float64, terms int) {
	w := m.w
	eps := make([]float64, len(w))
	burn := 1
	if m.seasonal {
		burn = seasonalPeriod + 1
	}

	for t := 0; t < len(w); t++ {
		pred := 0.0
		if t >= 1 {
			pred += phi*w[t-1] + theta*eps[t-1]
		}
		if m.seasonal && t >= seasonalPeriod {
			pred += sphi*w[t-seasonalPeriod] + stheta*eps[t-seasonalPeriod]
		}
		if m.seasonal && t >= seasonalPeriod+1 {
			pred += -phi*sphi*w[t-seasonalPeriod-1] + theta*stheta*eps[t-seasonalPeriod-1]
		}
		eps[t] = w[t] - pred
		if t >= burn {
			sse += eps[t] * eps[t]
			terms++
		}
	}
	return sse, eps, terms
}

// search runs a coarse grid over the active parameters followed by a
// shrinking pattern search. Parameters stay inside (-0.95, 0.95).
func (m *arimaModel) search() bool {
	type point struct{ phi, theta, sphi, stheta float64 }

	evaluate := func(p point) float64 {
		if !m.withAR {
			p.phi = 0
		}
		if !m.seasonal {
			p.sphi, p.stheta = 0, 0
		}
		sse, _, terms := m.css(p.phi, p.theta, p.sphi, p.stheta)
		if terms == 0 || !isFinite(sse) {
			return math.Inf(1)
		}
		return sse
	}

	grid := []float64{-0.6, -0.3, 0, 0.3, 0.6}
	phiGrid := grid
	if !m.withAR {
		phiGrid = []float64{0}
	}
	seasonalGrid := grid
	if !m.seasonal {
		seasonalGrid = []float64{0}
	}

	best := point{}
	bestSSE := math.Inf(1)
	for _, phi := range phiGrid {
		for _, theta := range grid {
			for _, sphi := range seasonalGrid {
				for _, stheta := range seasonalGrid {
					p := point{phi, theta, sphi, stheta}
					if sse := evaluate(p); sse < bestSSE {
						bestSSE = sse
						best = p
					}
				}
			}
		}
	}
	if math.IsInf(bestSSE, 1) {
		return false
	}

	clampParam := func(v float64) float64 {
		if v > 0.95 {
			return 0.95
		}
		if v < -0.95 {
			return -0.95
		}
		return v
	}

	// Coordinate-wise refinement with a shrinking step.
	for step := 0.15; step > 0.005; step /= 2 {
		improved := true
		for improved {
			improved = false
			candidates := []point{
				{clampParam(best.phi + step), best.theta, best.sphi, best.stheta},
				{clampParam(best.phi - step), best.theta, best.sphi, best.stheta},
				{best.phi, clampParam(best.theta + step), best.sphi, best.stheta},
				{best.phi, clampParam(best.theta - step), best.sphi, best.stheta},
				{best.phi, best.theta, clampParam(best.sphi + step), best.stheta},
				{best.phi, best.theta, clampParam(best.sphi - step), best.stheta},
				{best.phi, best.theta, best.sphi, clampParam(best.stheta + step)},
				{best.phi, best.theta, best.sphi, clampParam(best.stheta - step)},
			}
			for _, c := range candidates {
				if sse := evaluate(c); sse < bestSSE {
					bestSSE = sse
					best = c
					improved = true
				}
			}
		}
	}

	if !m.withAR {
		best.phi = 0
	}
	if !m.seasonal {
		best.sphi, best.stheta = 0, 0
	}

	sse, resid, terms := m.css(best.phi, best.theta, best.sphi, best.stheta)
	if terms == 0 || !isFinite(sse) {
		return false
	}

	m.phi, m.theta = best.phi, best.theta
	m.sphi, m.stheta = best.sphi, best.stheta
	m.resid = resid
	m.sigma = math.Sqrt(sse / float64(terms))
	return isFinite(m.sigma)
}

// forecast projects the differenced model forward and re-integrates into
// level space. Future shocks are zero; future differenced values feed back
// into their own lags.
func (m *arimaModel) forecast(values []float64, horizon int) []float64 {
	wExt := append([]float64(nil), m.w...)
	epsLen := len(m.resid)

	wAt := func(i int) float64 {
		if i < 0 {
			return 0
		}
		return wExt[i]
	}
	epsAt := func(i int) float64 {
		if i < 0 || i >= epsLen {
			return 0
		}
		return m.resid[i]
	}

	for h := 0; h < horizon; h++ {
		t := len(wExt)
		pred := m.phi*wAt(t-1) + m.theta*epsAt(t-1)
		if m.seasonal {
			pred += m.sphi*wAt(t-seasonalPeriod) + m.stheta*epsAt(t-seasonalPeriod)
			pred += -m.phi*m.sphi*wAt(t-seasonalPeriod-1) + m.theta*m.stheta*epsAt(t-seasonalPeriod-1)
		}
		wExt = append(wExt, pred)
	}

	yExt := append([]float64(nil), values...)
	out := make([]float64, 0, horizon)
	for h := 0; h < horizon; h++ {
		wf := wExt[len(m.w)+h]
		var next float64
		if m.seasonal {
			n := len(yExt)
			next = wf + yExt[n-1] + yExt[n-seasonalPeriod] - yExt[n-seasonalPeriod-1]
		} else {
			next = wf + yExt[len(yExt)-1]
		}
		yExt = append(yExt, next)
		out = append(out, next)
	}
	return out
}
