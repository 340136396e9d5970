package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/novamart/novamart-dashboard/backend-go/internal/cache"
	"github.com/novamart/novamart-dashboard/backend-go/internal/config"
	"github.com/novamart/novamart-dashboard/backend-go/internal/demand"
	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/pipeline"
	"github.com/novamart/novamart-dashboard/backend-go/internal/repository"
	"github.com/novamart/novamart-dashboard/backend-go/internal/stockopt"
)

// AnalyticsService is the read side of the stock policy surface: statistics,
// recommendations, metrics and simulations for single products, plus the
// catalog-wide summaries.
type AnalyticsService struct {
	repo      repository.SalesRepository
	engine    *stockopt.Engine
	summaries cache.SummaryCache
	profiles  *config.PolicyProfiles
	defaults  domain.PolicyParams
	replanner *pipeline.Orchestrator
	workers   int
}

// NewAnalyticsService wires the service. summaryCache may be nil when
// caching is disabled; profiles may be nil when no profile file is
// configured; replanner may be nil on deployments without the bulk path.
func NewAnalyticsService(repo repository.SalesRepository, summaryCache cache.SummaryCache, profiles *config.PolicyProfiles, defaults domain.PolicyParams, replanner *pipeline.Orchestrator, workers int) *AnalyticsService {
	if summaryCache == nil {
		summaryCache = cache.NewNoopSummaryCache()
	}
	if workers < 1 {
		workers = 4
	}
	return &AnalyticsService{
		repo:      repo,
		engine:    stockopt.NewEngine(),
		summaries: summaryCache,
		profiles:  profiles,
		defaults:  defaults,
		replanner: replanner,
		workers:   workers,
	}
}

// ResolvePolicy returns the parameters for a product: its profile override
// when one exists, the configured defaults otherwise.
func (s *AnalyticsService) ResolvePolicy(product string) domain.PolicyParams {
	if s.profiles != nil {
		return s.profiles.Resolve(product)
	}
	return s.defaults
}

// GetDemandStatistics computes the statistics snapshot from the product's
// full sales history.
func (s *AnalyticsService) GetDemandStatistics(ctx context.Context, product string) (domain.DemandStatistics, error) {
	series, err := s.repo.GetDemandSeries(ctx, product, time.Time{})
	if err != nil {
		return domain.DemandStatistics{}, err
	}
	return demand.Extract(series)
}

// GetRecommendation computes a fresh stock policy recommendation. A nil
// params means "use the product's resolved policy". The result is appended
// to the recommendation history; a failed write is logged, not fatal, since
// the computed policy is still valid.
func (s *AnalyticsService) GetRecommendation(ctx context.Context, product string, params *domain.PolicyParams) (domain.StockPolicyRecommendation, error) {
	stats, err := s.GetDemandStatistics(ctx, product)
	if err != nil {
		return domain.StockPolicyRecommendation{}, err
	}

	resolved := s.ResolvePolicy(product)
	if params != nil {
		resolved = *params
	}

	rec, err := s.engine.Recommend(product, stats, resolved)
	if err != nil {
		return domain.StockPolicyRecommendation{}, err
	}

	if err := s.repo.SaveRecommendation(ctx, &rec); err != nil {
		log.Warn().Err(err).Str("product", product).Msg("analytics: failed to persist recommendation")
	}
	return rec, nil
}

// GetInventoryMetrics derives the health metrics for a product. When
// currentInventory is nil the recommended order quantity stands in for the
// on-hand level.
func (s *AnalyticsService) GetInventoryMetrics(ctx context.Context, product string, params *domain.PolicyParams, currentInventory *float64) (domain.InventoryMetrics, error) {
	rec, err := s.GetRecommendation(ctx, product, params)
	if err != nil {
		return domain.InventoryMetrics{}, err
	}
	return stockopt.ComputeMetrics(rec, currentInventory), nil
}

// Simulate runs the day-by-day inventory simulation for a product.
func (s *AnalyticsService) Simulate(ctx context.Context, product string, params *domain.PolicyParams, days int, seed int64) (domain.SimulationResult, error) {
	rec, err := s.GetRecommendation(ctx, product, params)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	return stockopt.Simulate(rec, stockopt.SimOptions{Days: days, Seed: seed}), nil
}

// GetAnalysis assembles the complete per-product view in one response.
func (s *AnalyticsService) GetAnalysis(ctx context.Context, product string, params *domain.PolicyParams) (*domain.ProductAnalysis, error) {
	stats, err := s.GetDemandStatistics(ctx, product)
	if err != nil {
		return nil, err
	}

	resolved := s.ResolvePolicy(product)
	if params != nil {
		resolved = *params
	}

	rec, err := s.engine.Recommend(product, stats, resolved)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveRecommendation(ctx, &rec); err != nil {
		log.Warn().Err(err).Str("product", product).Msg("analytics: failed to persist recommendation")
	}

	analysis := &domain.ProductAnalysis{
		Product:        product,
		Statistics:     stats,
		Recommendation: rec,
		Metrics:        stockopt.ComputeMetrics(rec, nil),
	}

	// Order value only when the catalog knows a real unit cost.
	if prod, err := s.repo.GetProduct(ctx, product); err == nil && prod.UnitCost.IsPositive() {
		value := rec.OrderValue(prod.UnitCost).StringFixed(2)
		analysis.OrderValue = &value
	}

	return analysis, nil
}

// GetSeasonality exposes the demand-pattern view used by the seasonality
// and trend panels.
func (s *AnalyticsService) GetSeasonality(ctx context.Context, product string) (*domain.SeasonalityProfile, error) {
	series, err := s.repo.GetDemandSeries(ctx, product, time.Time{})
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	return &domain.SeasonalityProfile{
		Product:        product,
		Weekday:        demand.WeekdayProfile(series),
		Matrix:         demand.SeasonalityMatrix(series),
		MonthlyFactors: demand.MonthlySeasonalFactors(series),
		RecentChange:   demand.RecentChange(series, 30),
		MovingAvg7:     demand.MovingAverage(series, 7),
		MovingAvg30:    demand.MovingAverage(series, 30),
	}, nil
}

// GetSummary serves the overview cards with a short-TTL cache in front,
// since every dashboard load hits it.
func (s *AnalyticsService) GetSummary(ctx context.Context, products []string) (*domain.GlobalSummary, error) {
	if summary, ok, err := s.summaries.GetSummary(ctx, products); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analytics: cache get summary failed")
	}

	summary, err := s.repo.GetGlobalSummary(ctx, products)
	if err != nil {
		return nil, err
	}

	if err := s.summaries.SetSummary(ctx, products, summary); err != nil {
		log.Warn().Err(err).Msg("analytics: cache set summary failed")
	}

	return summary, nil
}

// ProductSummaries builds the per-product overview table. Products are
// summarized concurrently with bounded parallelism; a product whose history
// cannot be summarized is dropped from the table, not fatal.
func (s *AnalyticsService) ProductSummaries(ctx context.Context) ([]domain.ProductSummary, error) {
	names, err := s.repo.ListProductNames(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		summaries = make([]domain.ProductSummary, 0, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, name := range names {
		g.Go(func() error {
			series, err := s.repo.GetDemandSeries(gctx, name, time.Time{})
			if err != nil {
				return err
			}
			summary, err := demand.Summarize(series)
			if err != nil {
				log.Warn().Err(err).Str("product", name).Msg("analytics: skipping product summary")
				return nil
			}
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Product < summaries[j].Product })
	return summaries, nil
}

// ListProducts passes the catalog search through.
func (s *AnalyticsService) ListProducts(ctx context.Context, search string, limit, offset int) ([]*domain.Product, error) {
	return s.repo.ListProducts(ctx, search, limit, offset)
}

// ListRecommendations passes the filtered history listing through.
func (s *AnalyticsService) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.RecommendationPage, error) {
	return s.repo.ListRecommendations(ctx, filter)
}

// RecomputeAll runs the bulk replan over the catalog (or an explicit product
// subset) through the pipeline orchestrator.
func (s *AnalyticsService) RecomputeAll(ctx context.Context, products []string) (*pipeline.ReplanRun, string, error) {
	if s.replanner == nil {
		return nil, "", fmt.Errorf("%w: bulk recompute is not configured", domain.ErrInvalidParameter)
	}
	return s.replanner.Run(ctx, products)
}

// LatestReplanRun reports the status of the most recent bulk recompute.
func (s *AnalyticsService) LatestReplanRun(ctx context.Context) (*pipeline.ReplanRun, error) {
	if s.replanner == nil {
		return nil, nil
	}
	return s.replanner.LatestRun(ctx)
}
