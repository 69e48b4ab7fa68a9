package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"autoapply/internal/api/handlers"
	"autoapply/internal/api/middleware"
	"autoapply/internal/config"
	"autoapply/internal/llm"
	"autoapply/internal/store"
)

// SetupRoutes configures the status server routes.
func SetupRoutes(e *echo.Echo, cfg *config.Config, llmManager *llm.Manager, st *store.Store, stats handlers.StatsSource) {
	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(llmManager, st))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(llmManager, st, stats))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.GET("/current", handlers.CurrentRunHandler(stats))
		}

		v1.GET("/applications", handlers.ApplicationsHandler(st))
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "autoapply",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
