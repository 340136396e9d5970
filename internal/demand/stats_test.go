package demand

import (
	"math"
	"testing"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

func seriesOf(t *testing.T, quantities ...float64) domain.DemandSeries {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.DemandPoint, len(quantities))
	for i, q := range quantities {
		points[i] = domain.DemandPoint{Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return domain.DemandSeries{Product: "test-product", Points: points}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{10, 20, 30}); !almostEqual(got, 20) {
		t.Fatalf("Mean = %v, want 20", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("Mean of empty = %v, want 0", got)
	}
}

func TestSampleStdDev(t *testing.T) {
	// Sample variance of {2,4,4,4,5,5,7,9} is 32/7.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	want := math.Sqrt(32.0 / 7.0)
	if got := SampleStdDev(values); !almostEqual(got, want) {
		t.Fatalf("SampleStdDev = %v, want %v", got, want)
	}
}

func TestSampleStdDevDegenerate(t *testing.T) {
	if got := SampleStdDev([]float64{5}); got != 0 {
		t.Fatalf("single point std = %v, want 0", got)
	}
	if got := SampleStdDev([]float64{20, 20, 20, 20}); !almostEqual(got, 0) {
		t.Fatalf("constant series std = %v, want 0", got)
	}
}

func TestTrendSlope(t *testing.T) {
	// Perfect line y = 3 + 2x.
	if got := TrendSlope([]float64{3, 5, 7, 9, 11}); !almostEqual(got, 2) {
		t.Fatalf("slope = %v, want 2", got)
	}
	if got := TrendSlope([]float64{7, 7, 7}); !almostEqual(got, 0) {
		t.Fatalf("flat slope = %v, want 0", got)
	}
	if got := TrendSlope([]float64{42}); got != 0 {
		t.Fatalf("single point slope = %v, want 0", got)
	}
}

func TestCoefficientOfVariationZeroMean(t *testing.T) {
	got := CoefficientOfVariation([]float64{0, 0, 0})
	if got != 0 {
		t.Fatalf("CV of all-zero series = %v, want 0", got)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("CV produced non-finite value %v", got)
	}
}

func TestExtract(t *testing.T) {
	series := seriesOf(t, 10, 12, 14, 16, 18)
	stats, err := Extract(series)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !almostEqual(stats.AvgDailyDemand, 14) {
		t.Errorf("avg = %v, want 14", stats.AvgDailyDemand)
	}
	if !almostEqual(stats.TrendSlope, 2) {
		t.Errorf("slope = %v, want 2", stats.TrendSlope)
	}
	if stats.Observations != 5 {
		t.Errorf("observations = %d, want 5", stats.Observations)
	}
}

func TestExtractEmptySeries(t *testing.T) {
	_, err := Extract(domain.DemandSeries{Product: "empty"})
	if err == nil {
		t.Fatal("expected error for empty series")
	}
}

func TestSeriesValidateRejectsBadDates(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dup := domain.DemandSeries{Product: "dup", Points: []domain.DemandPoint{
		{Date: day, Quantity: 1},
		{Date: day, Quantity: 2},
	}}
	if err := dup.Validate(); err == nil {
		t.Fatal("expected duplicate dates to be rejected")
	}

	back := domain.DemandSeries{Product: "back", Points: []domain.DemandPoint{
		{Date: day, Quantity: 1},
		{Date: day.AddDate(0, 0, -1), Quantity: 2},
	}}
	if err := back.Validate(); err == nil {
		t.Fatal("expected decreasing dates to be rejected")
	}

	neg := seriesOf(t, 5, 5)
	neg.Points[1].Quantity = -1
	if err := neg.Validate(); err == nil {
		t.Fatal("expected negative quantity to be rejected")
	}
}

func TestMovingAverage(t *testing.T) {
	series := seriesOf(t, 2, 4, 6, 8)
	got := MovingAverage(series, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("MA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWeekdayProfile(t *testing.T) {
	// 2024-01-01 is a Monday; 14 days cover each weekday twice.
	series := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 1, 2, 3, 4, 5, 6, 7)
	profile := WeekdayProfile(series)

	// Mondays carry quantity 1 both weeks.
	if !almostEqual(profile[int(time.Monday)], 1) {
		t.Fatalf("Monday mean = %v, want 1", profile[int(time.Monday)])
	}
	if !almostEqual(profile[int(time.Sunday)], 7) {
		t.Fatalf("Sunday mean = %v, want 7", profile[int(time.Sunday)])
	}
}

// twoMonthSeries is 31 January days at 10 units followed by 14 February
// days at 40, starting Monday 2024-01-01.
func twoMonthSeries(t *testing.T) domain.DemandSeries {
	t.Helper()
	values := make([]float64, 45)
	for i := range values {
		if i < 31 {
			values[i] = 10
		} else {
			values[i] = 40
		}
	}
	return seriesOf(t, values...)
}

func TestSeasonalityMatrix(t *testing.T) {
	cells := SeasonalityMatrix(twoMonthSeries(t))
	// Every weekday occurs in both months: 7 cells per month.
	if len(cells) != 14 {
		t.Fatalf("cells = %d, want 14", len(cells))
	}

	type key struct{ month, weekday int }
	byKey := make(map[key]domain.SeasonalityCell, len(cells))
	for _, c := range cells {
		byKey[key{c.Month, c.Weekday}] = c
	}

	// January 2024 has five Mondays (1, 8, 15, 22, 29); February 1-14 has
	// two (5, 12).
	jan := byKey[key{1, int(time.Monday)}]
	if !almostEqual(jan.MeanUnits, 10) || !almostEqual(jan.TotalUnits, 50) {
		t.Errorf("January Monday = mean %v total %v, want 10 / 50", jan.MeanUnits, jan.TotalUnits)
	}
	feb := byKey[key{2, int(time.Monday)}]
	if !almostEqual(feb.MeanUnits, 40) || !almostEqual(feb.TotalUnits, 80) {
		t.Errorf("February Monday = mean %v total %v, want 40 / 80", feb.MeanUnits, feb.TotalUnits)
	}
}

func TestMonthlySeasonalFactors(t *testing.T) {
	factors := MonthlySeasonalFactors(twoMonthSeries(t))
	if len(factors) != 2 {
		t.Fatalf("factors = %d months, want 2", len(factors))
	}
	// Monthly means 10 and 40 average to 25, so the factors are 0.4 and 1.6.
	if factors[0].Month != 1 || !almostEqual(factors[0].Factor, 0.4) {
		t.Errorf("January factor = %+v, want month 1 factor 0.4", factors[0])
	}
	if factors[1].Month != 2 || !almostEqual(factors[1].Factor, 1.6) {
		t.Errorf("February factor = %+v, want month 2 factor 1.6", factors[1])
	}
}

func TestMonthlySeasonalFactorsDegenerate(t *testing.T) {
	if got := MonthlySeasonalFactors(domain.DemandSeries{Product: "empty"}); got != nil {
		t.Errorf("empty series factors = %v, want nil", got)
	}
	if got := MonthlySeasonalFactors(seriesOf(t, 0, 0, 0)); got != nil {
		t.Errorf("all-zero series factors = %v, want nil", got)
	}
}

func TestRecentChange(t *testing.T) {
	// Previous window mean 10, recent window mean 15: +50%.
	series := seriesOf(t, 10, 10, 10, 15, 15, 15)
	change := RecentChange(series, 3)
	if !almostEqual(change.RecentMean, 15) || !almostEqual(change.PreviousMean, 10) {
		t.Fatalf("windows = %v / %v, want 15 / 10", change.RecentMean, change.PreviousMean)
	}
	if !almostEqual(change.PercentDelta, 50) {
		t.Fatalf("delta = %v, want 50", change.PercentDelta)
	}
}

func TestRecentChangeZeroPrevious(t *testing.T) {
	series := seriesOf(t, 0, 0, 5, 5)
	change := RecentChange(series, 2)
	if change.PercentDelta != 0 {
		t.Fatalf("delta with zero previous window = %v, want 0", change.PercentDelta)
	}
}

func TestSummarizeLabels(t *testing.T) {
	growing := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 8)
	sum, err := Summarize(growing)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.TrendLabel != domain.TrendGrowing {
		t.Errorf("trend label = %q, want %q", sum.TrendLabel, domain.TrendGrowing)
	}
	if !almostEqual(sum.TotalUnits, 36) {
		t.Errorf("total units = %v, want 36", sum.TotalUnits)
	}

	flat, err := Summarize(seriesOf(t, 20, 20, 20, 20))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if flat.TrendLabel != domain.TrendStable {
		t.Errorf("flat trend label = %q, want %q", flat.TrendLabel, domain.TrendStable)
	}
	if flat.VolatilityLabel != domain.VolatilityLow {
		t.Errorf("flat volatility = %q, want %q", flat.VolatilityLabel, domain.VolatilityLow)
	}
}
