package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

// fakeRepo is an in-memory SalesRepository for service tests.
type fakeRepo struct {
	mu              sync.Mutex
	series          map[string]domain.DemandSeries
	products        map[string]*domain.Product
	summary         *domain.GlobalSummary
	summaryCalls    int
	savedRecs       []*domain.StockPolicyRecommendation
	savedForecasts  []*domain.ForecastResult
	latestForecast  *domain.ForecastResult
	saveRecErr      error
	saveForecastErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		series:   make(map[string]domain.DemandSeries),
		products: make(map[string]*domain.Product),
	}
}

func (r *fakeRepo) SaveSalesRecords(ctx context.Context, records []domain.SalesRecord) (int, error) {
	return len(records), nil
}

func (r *fakeRepo) GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	series, ok := r.series[product]
	if !ok {
		return domain.DemandSeries{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, product)
	}
	return series, nil
}

func (r *fakeRepo) ListProductNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.series))
	for name := range r.series {
		names = append(names, name)
	}
	return names, nil
}

func (r *fakeRepo) GetProduct(ctx context.Context, sku string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[sku]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, sku)
	}
	return p, nil
}

func (r *fakeRepo) ListProducts(ctx context.Context, search string, limit, offset int) ([]*domain.Product, error) {
	return nil, nil
}

func (r *fakeRepo) GetStores(ctx context.Context) ([]*domain.Store, error) {
	return nil, nil
}

func (r *fakeRepo) GetGlobalSummary(ctx context.Context, products []string) (*domain.GlobalSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaryCalls++
	return r.summary, nil
}

func (r *fakeRepo) SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveRecErr != nil {
		return r.saveRecErr
	}
	r.savedRecs = append(r.savedRecs, rec)
	return nil
}

func (r *fakeRepo) GetLatestRecommendation(ctx context.Context, product string) (*domain.StockPolicyRecommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.savedRecs) - 1; i >= 0; i-- {
		if r.savedRecs[i].Product == product {
			return r.savedRecs[i], nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.RecommendationPage, error) {
	return &domain.RecommendationPage{}, nil
}

func (r *fakeRepo) SaveForecast(ctx context.Context, result *domain.ForecastResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveForecastErr != nil {
		return r.saveForecastErr
	}
	r.savedForecasts = append(r.savedForecasts, result)
	return nil
}

func (r *fakeRepo) GetLatestForecast(ctx context.Context, product string, horizonDays int) (*domain.ForecastResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latestForecast, nil
}

// fakeSummaryCache records traffic so tests can assert read-through order.
type fakeSummaryCache struct {
	mu     sync.Mutex
	stored map[string]*domain.GlobalSummary
	sets   int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{stored: make(map[string]*domain.GlobalSummary)}
}

func (c *fakeSummaryCache) key(products []string) string {
	return strings.Join(products, ",")
}

func (c *fakeSummaryCache) GetSummary(ctx context.Context, products []string) (*domain.GlobalSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary, ok := c.stored[c.key(products)]
	return summary, ok, nil
}

func (c *fakeSummaryCache) SetSummary(ctx context.Context, products []string, summary *domain.GlobalSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored[c.key(products)] = summary
	c.sets++
	return nil
}

func (c *fakeSummaryCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = make(map[string]*domain.GlobalSummary)
	return nil
}

func constantHistory(product string, days int, units float64) domain.DemandSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.DemandPoint, days)
	for i := range points {
		points[i] = domain.DemandPoint{Date: start.AddDate(0, 0, i), Quantity: units}
	}
	return domain.DemandSeries{Product: product, Points: points}
}

func defaultParams() domain.PolicyParams {
	return domain.PolicyParams{LeadTimeDays: 7, SafetyStockPercent: 20, ServiceLevel: 0.95}
}

func TestGetRecommendationPersistsHistory(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	rec, err := svc.GetRecommendation(context.Background(), "widget", nil)
	if err != nil {
		t.Fatalf("GetRecommendation failed: %v", err)
	}
	if rec.SafetyStock != 4 || rec.ReorderPoint != 144 {
		t.Errorf("rec = SS %v ROP %v, want SS 4 ROP 144", rec.SafetyStock, rec.ReorderPoint)
	}
	if len(repo.savedRecs) != 1 {
		t.Fatalf("saved %d recommendations, want 1", len(repo.savedRecs))
	}
	if repo.savedRecs[0].Product != "widget" {
		t.Errorf("saved product = %q, want widget", repo.savedRecs[0].Product)
	}
}

func TestGetRecommendationSurvivesSaveFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)
	repo.saveRecErr = errors.New("connection refused")

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	rec, err := svc.GetRecommendation(context.Background(), "widget", nil)
	if err != nil {
		t.Fatalf("GetRecommendation failed: %v", err)
	}
	if rec.ReorderPoint != 144 {
		t.Errorf("reorder point = %v, want 144", rec.ReorderPoint)
	}
}

func TestGetRecommendationExplicitParamsOverrideDefaults(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	params := domain.PolicyParams{LeadTimeDays: 14, SafetyStockPercent: 20, ServiceLevel: 0.95}
	rec, err := svc.GetRecommendation(context.Background(), "widget", &params)
	if err != nil {
		t.Fatalf("GetRecommendation failed: %v", err)
	}
	if rec.LeadTimeDays != 14 {
		t.Errorf("lead time = %d, want 14", rec.LeadTimeDays)
	}
	// 20*14 lead-time demand + the 4-unit percentage buffer.
	if rec.ReorderPoint != 284 {
		t.Errorf("reorder point = %v, want 284", rec.ReorderPoint)
	}
}

func TestGetRecommendationUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	_, err := svc.GetRecommendation(context.Background(), "ghost", nil)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestGetAnalysisPricesOrderWhenCostKnown(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)
	repo.products["widget"] = &domain.Product{
		SKU:      "widget",
		Name:     "widget",
		UnitCost: decimal.NewFromFloat(2.50),
	}

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	analysis, err := svc.GetAnalysis(context.Background(), "widget", nil)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if analysis.OrderValue == nil {
		t.Fatal("order value missing despite known unit cost")
	}
	want := analysis.Recommendation.OrderValue(decimal.NewFromFloat(2.50)).StringFixed(2)
	if *analysis.OrderValue != want {
		t.Errorf("order value = %s, want %s", *analysis.OrderValue, want)
	}
}

func TestGetAnalysisOmitsOrderValueWithoutCost(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	analysis, err := svc.GetAnalysis(context.Background(), "widget", nil)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if analysis.OrderValue != nil {
		t.Errorf("order value = %v, want nil for unknown cost", *analysis.OrderValue)
	}
	wantDays := analysis.Recommendation.RecommendedReorderQty / analysis.Recommendation.AvgDailyDemand
	if analysis.Metrics.DaysOfInventory != wantDays {
		t.Errorf("days of inventory = %v, want %v derived from the recommendation", analysis.Metrics.DaysOfInventory, wantDays)
	}
}

func TestGetSummaryReadThrough(t *testing.T) {
	repo := newFakeRepo()
	repo.summary = &domain.GlobalSummary{
		TotalUnits: 500,
		Products:   3,
		Days:       10,
		TopProducts: []domain.ProductTotal{
			{Product: "apples", TotalUnits: 300},
			{Product: "bananas", TotalUnits: 150},
			{Product: "cherries", TotalUnits: 50},
		},
		TopProduct: "apples",
		GrowthRate: 25,
	}
	summaries := newFakeSummaryCache()

	svc := NewAnalyticsService(repo, summaries, nil, defaultParams(), nil, 2)

	first, err := svc.GetSummary(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if first.TotalUnits != 500 {
		t.Errorf("total units = %v, want 500", first.TotalUnits)
	}
	if len(first.TopProducts) != 3 || first.TopProducts[0].Product != "apples" {
		t.Errorf("top products = %+v, want the three-product leaderboard", first.TopProducts)
	}
	if first.GrowthRate != 25 {
		t.Errorf("growth rate = %v, want 25", first.GrowthRate)
	}
	if repo.summaryCalls != 1 || summaries.sets != 1 {
		t.Fatalf("after miss: repo calls = %d, cache sets = %d, want 1 and 1", repo.summaryCalls, summaries.sets)
	}

	if _, err := svc.GetSummary(context.Background(), nil); err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if repo.summaryCalls != 1 {
		t.Errorf("repo calls after hit = %d, want 1", repo.summaryCalls)
	}
}

func TestProductSummariesSkipsEmptyHistories(t *testing.T) {
	repo := newFakeRepo()
	repo.series["apples"] = constantHistory("apples", 40, 12)
	// Cataloged but no sales yet.
	repo.series["bananas"] = domain.DemandSeries{Product: "bananas"}
	repo.series["cherries"] = constantHistory("cherries", 40, 30)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	summaries, err := svc.ProductSummaries(context.Background())
	if err != nil {
		t.Fatalf("ProductSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2 (empty product skipped)", len(summaries))
	}
	if summaries[0].Product != "apples" || summaries[1].Product != "cherries" {
		t.Errorf("summaries out of order: %q, %q", summaries[0].Product, summaries[1].Product)
	}
}

func TestGetSeasonalityShapes(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 60, 10)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	profile, err := svc.GetSeasonality(context.Background(), "widget")
	if err != nil {
		t.Fatalf("GetSeasonality failed: %v", err)
	}
	if len(profile.MovingAvg7) != 60 || len(profile.MovingAvg30) != 60 {
		t.Errorf("moving averages = %d/%d points, want 60/60", len(profile.MovingAvg7), len(profile.MovingAvg30))
	}
	for i, avg := range profile.Weekday {
		if avg != 10 {
			t.Errorf("weekday %d mean = %v, want 10 for constant demand", i, avg)
		}
	}
	if profile.RecentChange.PercentDelta != 0 {
		t.Errorf("recent change = %v%%, want 0 for constant demand", profile.RecentChange.PercentDelta)
	}
	if len(profile.MonthlyFactors) == 0 {
		t.Fatal("monthly factors missing")
	}
	for _, f := range profile.MonthlyFactors {
		if f.Factor != 1 {
			t.Errorf("month %d factor = %v, want 1 for constant demand", f.Month, f.Factor)
		}
	}
}

func TestSimulateReproducibleForSeed(t *testing.T) {
	repo := newFakeRepo()
	repo.series["widget"] = constantHistory("widget", 100, 20)

	svc := NewAnalyticsService(repo, nil, nil, defaultParams(), nil, 2)

	a, err := svc.Simulate(context.Background(), "widget", nil, 30, 42)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	b, err := svc.Simulate(context.Background(), "widget", nil, 30, 42)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if len(a.Levels) != len(b.Levels) {
		t.Fatalf("runs differ in length: %d vs %d", len(a.Levels), len(b.Levels))
	}
	for i := range a.Levels {
		if a.Levels[i].Demand != b.Levels[i].Demand || a.Levels[i].StockLevel != b.Levels[i].StockLevel {
			t.Fatalf("day %d diverged between seeded runs", i)
		}
	}
}

func TestRecomputeAllWithoutReplanner(t *testing.T) {
	svc := NewAnalyticsService(newFakeRepo(), nil, nil, defaultParams(), nil, 2)

	_, _, err := svc.RecomputeAll(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestResolvePolicyOverlaysProfile(t *testing.T) {
	lead := 21
	profiles := &config.PolicyProfiles{
		Default:  defaultParams(),
		Products: map[string]config.PolicyOverride{"widget": {LeadTimeDays: &lead}},
	}

	svc := NewAnalyticsService(newFakeRepo(), nil, profiles, defaultParams(), nil, 2)

	widget := svc.ResolvePolicy("widget")
	if widget.LeadTimeDays != 21 {
		t.Errorf("widget lead time = %d, want 21 from override", widget.LeadTimeDays)
	}
	if widget.ServiceLevel != 0.95 {
		t.Errorf("widget service level = %v, want inherited 0.95", widget.ServiceLevel)
	}

	other := svc.ResolvePolicy("gadget")
	if other.LeadTimeDays != 7 {
		t.Errorf("gadget lead time = %d, want profile default 7", other.LeadTimeDays)
	}
}
