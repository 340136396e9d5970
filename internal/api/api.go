// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/novamart/novamart-dashboard/backend-go/internal/api/handlers"
	"github.com/novamart/novamart-dashboard/backend-go/internal/api/middleware"
	"github.com/novamart/novamart-dashboard/backend-go/internal/service"
)

type Services struct {
	Analytics *service.AnalyticsService
	Forecast  *service.ForecastService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Analytics != nil {
			analyticsHandler := handlers.NewAnalyticsHandler(services.Analytics)
			apiGroup.GET("/products", analyticsHandler.ListProducts)

			productGroup := apiGroup.Group("/products/:product")
			{
				productGroup.GET("/statistics", analyticsHandler.GetStatistics)
				productGroup.GET("/recommendation", analyticsHandler.GetRecommendation)
				productGroup.GET("/metrics", analyticsHandler.GetMetrics)
				productGroup.GET("/simulation", analyticsHandler.GetSimulation)
				productGroup.GET("/analysis", analyticsHandler.GetAnalysis)
				productGroup.GET("/seasonality", analyticsHandler.GetSeasonality)
			}

			apiGroup.GET("/summary", analyticsHandler.GetSummary)
			apiGroup.GET("/summary/products", analyticsHandler.GetProductSummaries)
			apiGroup.GET("/recommendations", analyticsHandler.ListRecommendations)
			apiGroup.POST("/recompute", analyticsHandler.Recompute)
			apiGroup.GET("/recompute/status", analyticsHandler.GetReplanStatus)
		}

		if services.Forecast != nil {
			forecastHandler := handlers.NewForecastHandler(services.Forecast)
			forecastGroup := apiGroup.Group("/products/:product")
			{
				forecastGroup.GET("/forecast", forecastHandler.GetForecast)
				forecastGroup.GET("/forecast/latest", forecastHandler.GetLatestForecast)
				forecastGroup.GET("/backtest", forecastHandler.GetBacktest)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
