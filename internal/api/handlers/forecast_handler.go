package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/novamart/novamart-dashboard/backend-go/internal/domain"
	"github.com/novamart/novamart-dashboard/backend-go/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// GetForecast serves the demand forecast. A product whose history defeats
// every model is a degraded answer, not a failure: the dashboard still
// renders statistics and policy, just without the forecast panel.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	product := c.Param("product")
	horizonDays, _ := strconv.Atoi(c.DefaultQuery("horizon_days", "0"))

	result, err := h.service.Forecast(c.Request.Context(), product, horizonDays)
	if err != nil {
		if errors.Is(err, domain.ErrForecastUnavailable) || errors.Is(err, domain.ErrInsufficientHistory) {
			c.JSON(http.StatusOK, gin.H{
				"product":              product,
				"forecasts":            []domain.ForecastPoint{},
				"forecast_unavailable": true,
				"reason":               err.Error(),
			})
			return
		}
		respondError(c, err, "failed to compute forecast")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ForecastHandler) GetBacktest(c *gin.Context) {
	product := c.Param("product")
	horizonDays, _ := strconv.Atoi(c.DefaultQuery("horizon_days", "0"))

	scores, err := h.service.Backtest(c.Request.Context(), product, horizonDays)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			c.JSON(http.StatusOK, gin.H{
				"product":              product,
				"backends":             []string{},
				"forecast_unavailable": true,
				"reason":               err.Error(),
			})
			return
		}
		respondError(c, err, "failed to run backtest")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product, "scores": scores})
}

// GetLatestForecast returns the last persisted forecast without recomputing.
func (h *ForecastHandler) GetLatestForecast(c *gin.Context) {
	product := c.Param("product")
	horizonDays, _ := strconv.Atoi(c.DefaultQuery("horizon_days", "0"))

	result, err := h.service.LatestForecast(c.Request.Context(), product, horizonDays)
	if err != nil {
		respondError(c, err, "failed to fetch forecast")
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored forecast for " + product})
		return
	}

	c.JSON(http.StatusOK, result)
}
