package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/internal/llm"
	"autoapply/internal/logging"
	"autoapply/internal/store"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

const version = "1.0.0"

var startTime = time.Now()

// requestIDFrom returns the ID assigned by the validation middleware.
func requestIDFrom(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// HealthHandler answers the basic health probe.
func HealthHandler(c echo.Context) error {
	logger := logging.GetGlobalLogger()
	logger.Debug("Health check requested", map[string]interface{}{
		"request_id": requestIDFrom(c),
	})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the chat provider and the application
// store can actually serve. Unready returns 503 so probes catch it.
func ReadinessHandler(llmManager *llm.Manager, st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		logger.Debug("Readiness check requested", map[string]interface{}{
			"request_id": requestIDFrom(c),
		})

		ctx := c.Request().Context()
		status := "ready"
		code := http.StatusOK
		checks := map[string]string{"api": "ok"}

		if err := llmManager.CheckHealth(ctx); err != nil {
			checks["llm"] = err.Error()
			status = "not ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["llm"] = "ok"
		}

		if _, err := st.AppliedCount(ctx); err != nil {
			checks["store"] = err.Error()
			status = "not ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler answers the liveness probe.
func LivenessHandler(c echo.Context) error {
	logger := logging.GetGlobalLogger()
	logger.Debug("Liveness check requested", map[string]interface{}{
		"request_id": requestIDFrom(c),
	})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
	})
}
