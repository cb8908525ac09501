// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hvdc-project/warehouse-flow/internal/api/handlers"
	"github.com/hvdc-project/warehouse-flow/internal/api/middleware"
	"github.com/hvdc-project/warehouse-flow/internal/service"
)

type Services struct {
	StockService *service.StockService
	Runner       handlers.Runner
	UploadDir    string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

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

	apiGroup := router.Group("/api/v1")

	if services != nil && services.StockService != nil {
		stockHandler := handlers.NewStockHandler(services.StockService, services.Runner, services.UploadDir)
		stockGroup := apiGroup.Group("/stock")
		{
			stockGroup.GET("/records", stockHandler.GetRecords)
			stockGroup.GET("/monthly", stockHandler.GetMonthly)
			stockGroup.GET("/sites", stockHandler.GetSiteDeliveries)
			stockGroup.GET("/validation", stockHandler.GetValidation)
			stockGroup.GET("/dashboard", stockHandler.GetDashboard)
			stockGroup.POST("/upload", stockHandler.Upload)
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
