// backend-go/internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store represents a store location
type Store struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Product represents a sellable product. UnitCost is the per-unit purchase
// cost used to price recommended orders; zero when unknown.
type Product struct {
	ID        int64           `json:"id" db:"id"`
	SKU       string          `json:"sku" db:"sku"`
	Name      string          `json:"name" db:"name"`
	Category  string          `json:"category" db:"category"`
	UnitCost  decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// DailySales is one ingested sales observation for a product in a store.
type DailySales struct {
	ID        int64     `json:"id" db:"id"`
	Date      time.Time `json:"date" db:"date"`
	StoreID   int64     `json:"store_id" db:"store_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Units     float64   `json:"units" db:"units"`
}

// SalesRecord is a raw row from a sales export file, before entity
// resolution.
type SalesRecord struct {
	Date      time.Time
	StoreName string
	SKU       string
	Product   string
	Category  string
	Units     float64
}

// RecommendationFilter narrows recommendation listings.
type RecommendationFilter struct {
	Products      []string   `json:"products"`
	From          *time.Time `json:"from"`
	To            *time.Time `json:"to"`
	Page          int        `json:"page"`
	PageSize      int        `json:"page_size"`
	SortField     string     `json:"sort_field"`
	SortDirection string     `json:"sort_direction"`
}

// RecommendationPage is a paginated recommendation listing.
type RecommendationPage struct {
	Items      []StockPolicyRecommendation `json:"items"`
	Total      int                         `json:"total"`
	Page       int                         `json:"page"`
	PageSize   int                         `json:"page_size"`
	TotalPages int                         `json:"total_pages"`
}
