package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"autoapply/internal/bot"
	"autoapply/internal/llm"
	"autoapply/internal/logging"
	"autoapply/internal/store"
	"autoapply/pkg/models"
)

const (
	defaultApplicationsLimit = 20
	maxApplicationsLimit     = 100
)

// StatsSource exposes live campaign progress.
type StatsSource interface {
	Stats() bot.RunStats
}

// StatusHandler aggregates provider health, run progress and store counts.
func StatusHandler(llmManager *llm.Manager, st *store.Store, stats StatsSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		logger.Debug("Status requested", map[string]interface{}{
			"request_id": requestIDFrom(c),
		})

		status := "operational"
		healthy := llmManager.IsHealthy()
		if !healthy {
			status = "degraded"
		}

		response := models.StatusResponse{
			Status:    status,
			Timestamp: time.Now(),
			Uptime:    time.Since(startTime),
			AIProvider: map[string]interface{}{
				"name":    llmManager.GetProviderName(),
				"healthy": healthy,
			},
		}

		if stats != nil {
			run := stats.Stats()
			response.Run = map[string]interface{}{
				"run_id":    run.RunID,
				"running":   run.Running,
				"collected": run.Collected,
				"processed": run.Processed,
				"applied":   run.Applied,
				"skipped":   run.Skipped,
				"failed":    run.Failed,
				"errors":    run.Errors,
			}
		}

		if counts, err := st.StatusCounts(c.Request().Context()); err == nil {
			applications := make(map[string]interface{}, len(counts))
			for status, count := range counts {
				applications[status] = count
			}
			response.Applications = applications
		}

		return c.JSON(http.StatusOK, response)
	}
}

// CurrentRunHandler serves the live stats of the running campaign.
func CurrentRunHandler(stats StatsSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		if stats == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"running": false,
			})
		}
		return c.JSON(http.StatusOK, stats.Stats())
	}
}

// ApplicationsHandler lists recent application outcomes from the store.
func ApplicationsHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := defaultApplicationsLimit
		if raw := c.QueryParam("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > maxApplicationsLimit {
			limit = maxApplicationsLimit
		}

		applications, err := st.RecentApplications(c.Request().Context(), limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "store_query_failed",
				Message:   err.Error(),
				RequestID: requestIDFrom(c),
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"count":        len(applications),
			"applications": applications,
		})
	}
}
