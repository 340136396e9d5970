// backend-go/internal/demand/seasonal.go
package demand

import (
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// MovingAverage returns the trailing moving average of the series quantities.
// Entry i averages the window ending at i; windows are truncated at the start
// of the series rather than padded.
func MovingAverage(series domain.DemandSeries, window int) []float64 {
	if window < 1 {
		window = 1
	}
	values := series.Quantities()
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		span := i + 1
		if span > window {
			span = window
		}
		out[i] = sum / float64(span)
	}
	return out
}

// WeekdayProfile returns the mean demand per weekday (Sunday = 0). Weekdays
// with no observations stay 0.
func WeekdayProfile(series domain.DemandSeries) domain.WeekdayProfile {
	var sums [7]float64
	var counts [7]int
	for _, p := range series.Points {
		wd := int(p.Date.Weekday())
		sums[wd] += p.Quantity
		counts[wd]++
	}

	var profile domain.WeekdayProfile
	for i := range sums {
		if counts[i] > 0 {
			profile[i] = sums[i] / float64(counts[i])
		}
	}
	return profile
}

// SeasonalityMatrix returns demand per (calendar month, weekday) cell, the
// grid behind the seasonality heatmap. Cells with no observations are
// omitted.
func SeasonalityMatrix(series domain.DemandSeries) []domain.SeasonalityCell {
	type key struct{ month, weekday int }
	sums := make(map[key]float64)
	counts := make(map[key]int)

	for _, p := range series.Points {
		k := key{int(p.Date.Month()), int(p.Date.Weekday())}
		sums[k] += p.Quantity
		counts[k]++
	}

	cells := make([]domain.SeasonalityCell, 0, len(sums))
	for month := 1; month <= 12; month++ {
		for wd := 0; wd < 7; wd++ {
			k := key{month, wd}
			if counts[k] == 0 {
				continue
			}
			cells = append(cells, domain.SeasonalityCell{
				Month:      month,
				Weekday:    wd,
				TotalUnits: sums[k],
				MeanUnits:  sums[k] / float64(counts[k]),
			})
		}
	}
	return cells
}

// MonthlySeasonalFactors reports each observed month's mean demand divided
// by the mean of the monthly means. Nil when the series is empty or has no
// demand at all.
func MonthlySeasonalFactors(series domain.DemandSeries) []domain.SeasonalFactor {
	var sums [13]float64
	var counts [13]int
	for _, p := range series.Points {
		m := int(p.Date.Month())
		sums[m] += p.Quantity
		counts[m]++
	}

	var monthMeans [13]float64
	total := 0.0
	months := 0
	for m := 1; m <= 12; m++ {
		if counts[m] == 0 {
			continue
		}
		monthMeans[m] = sums[m] / float64(counts[m])
		total += monthMeans[m]
		months++
	}
	if months == 0 || total == 0 {
		return nil
	}
	base := total / float64(months)

	factors := make([]domain.SeasonalFactor, 0, months)
	for m := 1; m <= 12; m++ {
		if counts[m] == 0 {
			continue
		}
		factors = append(factors, domain.SeasonalFactor{
			Month:  m,
			Factor: monthMeans[m] / base,
		})
	}
	return factors
}

// RecentChange compares the mean of the most recent window against the window
// before it. PercentDelta is 0 when the previous window is empty or its mean
// is 0.
func RecentChange(series domain.DemandSeries, window int) domain.RecentChange {
	if window < 1 {
		window = 1
	}
	values := series.Quantities()

	change := domain.RecentChange{WindowDays: window}
	if len(values) == 0 {
		return change
	}

	recentStart := len(values) - window
	if recentStart < 0 {
		recentStart = 0
	}
	change.RecentMean = Mean(values[recentStart:])

	prevStart := recentStart - window
	if prevStart < 0 {
		prevStart = 0
	}
	if prevStart < recentStart {
		change.PreviousMean = Mean(values[prevStart:recentStart])
	}

	if change.PreviousMean != 0 {
		change.PercentDelta = (change.RecentMean - change.PreviousMean) / change.PreviousMean * 100
	}
	return change
}

// Summarize builds the overview row for one product series.
func Summarize(series domain.DemandSeries) (domain.ProductSummary, error) {
	stats, err := Extract(series)
	if err != nil {
		return domain.ProductSummary{}, err
	}

	total := 0.0
	for _, p := range series.Points {
		total += p.Quantity
	}

	return domain.ProductSummary{
		Product:                series.Product,
		TotalUnits:             total,
		AvgDaily:               stats.AvgDailyDemand,
		CoefficientOfVariation: stats.CoefficientOfVariation,
		TrendSlope:             stats.TrendSlope,
		TrendLabel:             domain.ClassifyTrend(stats.TrendSlope),
		VolatilityLabel:        domain.ClassifyVolatility(stats.CoefficientOfVariation),
	}, nil
}
