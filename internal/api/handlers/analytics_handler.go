package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/service"
)

type AnalyticsHandler struct {
	service *service.AnalyticsService
}

func NewAnalyticsHandler(service *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// respondError maps domain errors onto HTTP statuses. Bad input and unknown
// products are the caller's problem; everything else is ours.
func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

// parsePolicyParams overlays query parameters onto the product's resolved
// policy. Returns nil when no parameter was given, which tells the service
// to use the profile as-is. Range checks stay with the engine.
func (h *AnalyticsHandler) parsePolicyParams(c *gin.Context, product string) (*domain.PolicyParams, error) {
	params := h.service.ResolvePolicy(product)
	touched := false

	if v := strings.TrimSpace(c.Query("lead_time_days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: lead_time_days must be an integer, got %q", domain.ErrInvalidParameter, v)
		}
		params.LeadTimeDays = n
		touched = true
	}
	if v := strings.TrimSpace(c.Query("safety_stock_percent")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: safety_stock_percent must be a number, got %q", domain.ErrInvalidParameter, v)
		}
		params.SafetyStockPercent = f
		touched = true
	}
	if v := strings.TrimSpace(c.Query("service_level")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: service_level must be a number, got %q", domain.ErrInvalidParameter, v)
		}
		params.ServiceLevel = f
		touched = true
	}

	if !touched {
		return nil, nil
	}
	return &params, nil
}

func (h *AnalyticsHandler) ListProducts(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := h.service.ListProducts(c.Request.Context(), search, limit, offset)
	if err != nil {
		respondError(c, err, "failed to list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	product := c.Param("product")

	stats, err := h.service.GetDemandStatistics(c.Request.Context(), product)
	if err != nil {
		respondError(c, err, "failed to compute statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandler) GetRecommendation(c *gin.Context) {
	product := c.Param("product")

	params, err := h.parsePolicyParams(c, product)
	if err != nil {
		respondError(c, err, "invalid policy parameters")
		return
	}

	rec, err := h.service.GetRecommendation(c.Request.Context(), product, params)
	if err != nil {
		respondError(c, err, "failed to compute recommendation")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *AnalyticsHandler) GetMetrics(c *gin.Context) {
	product := c.Param("product")

	params, err := h.parsePolicyParams(c, product)
	if err != nil {
		respondError(c, err, "invalid policy parameters")
		return
	}

	var currentInventory *float64
	if v := strings.TrimSpace(c.Query("current_inventory")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(c, fmt.Errorf("%w: current_inventory must be a number, got %q", domain.ErrInvalidParameter, v), "")
			return
		}
		currentInventory = &f
	}

	metrics, err := h.service.GetInventoryMetrics(c.Request.Context(), product, params, currentInventory)
	if err != nil {
		respondError(c, err, "failed to compute metrics")
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func (h *AnalyticsHandler) GetSimulation(c *gin.Context) {
	product := c.Param("product")

	params, err := h.parsePolicyParams(c, product)
	if err != nil {
		respondError(c, err, "invalid policy parameters")
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "0"))
	seed, _ := strconv.ParseInt(c.DefaultQuery("seed", "0"), 10, 64)

	result, err := h.service.Simulate(c.Request.Context(), product, params, days, seed)
	if err != nil {
		respondError(c, err, "failed to run simulation")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AnalyticsHandler) GetAnalysis(c *gin.Context) {
	product := c.Param("product")

	params, err := h.parsePolicyParams(c, product)
	if err != nil {
		respondError(c, err, "invalid policy parameters")
		return
	}

	analysis, err := h.service.GetAnalysis(c.Request.Context(), product, params)
	if err != nil {
		respondError(c, err, "failed to build analysis")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *AnalyticsHandler) GetSeasonality(c *gin.Context) {
	product := c.Param("product")

	profile, err := h.service.GetSeasonality(c.Request.Context(), product)
	if err != nil {
		respondError(c, err, "failed to build seasonality profile")
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	var products []string
	if raw := strings.TrimSpace(c.Query("products")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				products = append(products, part)
			}
		}
	}

	summary, err := h.service.GetSummary(c.Request.Context(), products)
	if err != nil {
		respondError(c, err, "failed to fetch summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandler) GetProductSummaries(c *gin.Context) {
	summaries, err := h.service.ProductSummaries(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to build product summaries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": summaries, "count": len(summaries)})
}

// parseRecommendationFilter reads the history listing filter off the query.
// Either comma-separated or repeated product params are accepted.
func parseRecommendationFilter(c *gin.Context) (domain.RecommendationFilter, error) {
	filter := domain.RecommendationFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	raw := c.QueryArray("product")
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query("products")); single != "" {
			raw = strings.Split(single, ",")
		}
	}
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			filter.Products = append(filter.Products, v)
		}
	}

	parseDate := func(param string) (*time.Time, error) {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", domain.ErrInvalidParameter, param, value)
		}
		return &t, nil
	}

	var err error
	if filter.From, err = parseDate("from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate("to"); err != nil {
		return filter, err
	}

	if sortField := strings.TrimSpace(c.Query("sort_field")); sortField != "" {
		filter.SortField = strings.ToLower(sortField)
	}
	sortDir := strings.ToLower(strings.TrimSpace(c.Query("sort_direction")))
	if sortDir != "asc" {
		sortDir = "desc"
	}
	filter.SortDirection = sortDir

	return filter, nil
}

func (h *AnalyticsHandler) ListRecommendations(c *gin.Context) {
	filter, err := parseRecommendationFilter(c)
	if err != nil {
		respondError(c, err, "invalid filter")
		return
	}

	page, err := h.service.ListRecommendations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list recommendations")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *AnalyticsHandler) Recompute(c *gin.Context) {
	var req struct {
		Products []string `json:"products"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	run, reportPath, err := h.service.RecomputeAll(c.Request.Context(), req.Products)
	if err != nil {
		respondError(c, err, "recompute failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "report": reportPath})
}

func (h *AnalyticsHandler) GetReplanStatus(c *gin.Context) {
	run, err := h.service.LatestReplanRun(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to fetch replan status")
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no replan has run yet"})
		return
	}

	c.JSON(http.StatusOK, run)
}
