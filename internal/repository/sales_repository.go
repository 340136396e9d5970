// backend-go/internal/repository/sales_repository.go
package repository

import (
	"context"
	"time"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
)

type SalesRepository interface {
	SaveSalesRecords(ctx context.Context, records []domain.SalesRecord) (int, error)
	GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error)
	ListProductNames(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, sku string) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, limit, offset int) ([]*domain.Product, error)
	GetStores(ctx context.Context) ([]*domain.Store, error)

	// Summary methods
	GetGlobalSummary(ctx context.Context, products []string) (*domain.GlobalSummary, error)

	// Recommendation methods
	SaveRecommendation(ctx context.Context, rec *domain.StockPolicyRecommendation) error
	GetLatestRecommendation(ctx context.Context, product string) (*domain.StockPolicyRecommendation, error)
	ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.RecommendationPage, error)

	// Forecast methods
	SaveForecast(ctx context.Context, result *domain.ForecastResult) error
	GetLatestForecast(ctx context.Context, product string, horizonDays int) (*domain.ForecastResult, error)
}

// DemandSource is the read-only slice of SalesRepository that offline
// commands can satisfy from flat files instead of a database.
type DemandSource interface {
	GetDemandSeries(ctx context.Context, product string, since time.Time) (domain.DemandSeries, error)
	ListProductNames(ctx context.Context) ([]string, error)
}
