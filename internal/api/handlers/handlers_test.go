package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/bot"
	"autoapply/internal/config"
	"autoapply/internal/llm"
	"autoapply/internal/store"
	"autoapply/pkg/models"
)

type fixedStats struct {
	stats bot.RunStats
}

func (f fixedStats) Stats() bot.RunStats { return f.stats }

func testStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Store.LockPath = cfg.Store.Path + ".lock"

	st, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testManager(t *testing.T, baseURL string) *llm.Manager {
	t.Helper()
	cfg := &config.Config{}
	cfg.AI.Provider = "aiml"
	cfg.AI.APIKey = "test-key"
	cfg.AI.BaseURL = baseURL
	cfg.AI.Model = "test-model"
	cfg.AI.Timeout = 5 * time.Second
	cfg.AI.RateLimit = 60000
	return llm.NewManager(cfg)
}

func doRequest(t *testing.T, handler echo.HandlerFunc, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()

	require.NoError(t, handler(e.NewContext(req, rec)))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthHandler(t *testing.T) {
	rec, body := doRequest(t, HealthHandler, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])

	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", checks["api"])
}

func TestLivenessHandler(t *testing.T) {
	rec, body := doRequest(t, LivenessHandler, "/health/live")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessHandler_ProviderDown(t *testing.T) {
	st := testStore(t)
	manager := testManager(t, "http://unused.invalid")

	rec, body := doRequest(t, ReadinessHandler(manager, st), "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])

	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", checks["store"])
	assert.NotEqual(t, "ok", checks["llm"])
}

func TestReadinessHandler_Ready(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	st := testStore(t)
	manager := testManager(t, server.URL)
	require.NoError(t, manager.Start())
	defer manager.Stop()

	rec, body := doRequest(t, ReadinessHandler(manager, st), "/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestStatusHandler(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.RecordApplication(context.Background(), models.ApplicationResult{
		JobID:     "101",
		Title:     "Backend Engineer",
		URL:       "https://www.linkedin.com/jobs/view/101/",
		Status:    models.StatusApplied,
		Timestamp: time.Now().UTC(),
	}))

	manager := testManager(t, "http://unused.invalid")
	stats := fixedStats{stats: bot.RunStats{
		RunID:     "run-1",
		Running:   true,
		Collected: 5,
		Processed: 2,
		Applied:   1,
		Skipped:   1,
	}}

	rec, body := doRequest(t, StatusHandler(manager, st, stats), "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])

	provider, ok := body["ai_provider"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "none", provider["name"])
	assert.Equal(t, false, provider["healthy"])

	run, ok := body["run"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", run["run_id"])
	assert.Equal(t, true, run["running"])
	assert.Equal(t, float64(5), run["collected"])
	assert.Equal(t, float64(1), run["applied"])

	applications, ok := body["applications"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), applications["applied"])
}

func TestCurrentRunHandler_NoSource(t *testing.T) {
	rec, body := doRequest(t, CurrentRunHandler(nil), "/api/v1/runs/current")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["running"])
}

func TestCurrentRunHandler(t *testing.T) {
	stats := fixedStats{stats: bot.RunStats{RunID: "run-7", Running: true, Applied: 3}}

	rec, body := doRequest(t, CurrentRunHandler(stats), "/api/v1/runs/current")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-7", body["run_id"])
	assert.Equal(t, true, body["running"])
	assert.Equal(t, float64(3), body["applied"])
}

func TestApplicationsHandler(t *testing.T) {
	st := testStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"201", "202", "203"} {
		require.NoError(t, st.RecordApplication(context.Background(), models.ApplicationResult{
			JobID:     id,
			Title:     "Role " + id,
			URL:       "https://www.linkedin.com/jobs/view/" + id + "/",
			Status:    models.StatusApplied,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	rec, body := doRequest(t, ApplicationsHandler(st), "/api/v1/applications?limit=2")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])

	applications, ok := body["applications"].([]interface{})
	require.True(t, ok)
	require.Len(t, applications, 2)

	newest, ok := applications[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "203", newest["job_id"])
}

func TestApplicationsHandler_IgnoresBadLimit(t *testing.T) {
	st := testStore(t)

	rec, body := doRequest(t, ApplicationsHandler(st), "/api/v1/applications?limit=bogus")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}
