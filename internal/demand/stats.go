// backend-go/internal/demand/stats.go
package demand

import (
	"math"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the sample standard deviation (n-1 denominator).
// Series with fewer than 2 points have no spread: 0.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	varianceSum := 0.0
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(n-1))
}

// TrendSlope fits an ordinary least squares line of quantity against the
// sequential day index (0, 1, 2, ...) and returns its slope. Fewer than 2
// points carry no trend: 0.
func TrendSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := Mean(values)

	num := 0.0
	den := 0.0
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// CoefficientOfVariation returns std/mean as a percentage, 0 when the mean is
// 0 so flat or empty series never produce NaN.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return SampleStdDev(values) / mean * 100
}

// Extract computes the demand statistics snapshot for a series. The series
// must carry at least one observation.
func Extract(series domain.DemandSeries) (domain.DemandStatistics, error) {
	if err := series.Validate(); err != nil {
		return domain.DemandStatistics{}, err
	}

	values := series.Quantities()
	return domain.DemandStatistics{
		AvgDailyDemand:         Mean(values),
		DemandStd:              SampleStdDev(values),
		TrendSlope:             TrendSlope(values),
		CoefficientOfVariation: CoefficientOfVariation(values),
		Observations:           len(values),
	}, nil
}
