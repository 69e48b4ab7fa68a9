package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/config"
	"autoapply/pkg/models"
)

func webhookConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Webhook.Enabled = true
	cfg.Webhook.URL = url
	cfg.Webhook.Timeout = 5 * time.Second
	cfg.Webhook.MaxRetries = 3
	return cfg
}

func sampleResult() models.ApplicationResult {
	return models.ApplicationResult{
		JobID:     "3756789012",
		Title:     "Backend Engineer",
		Company:   "Acme",
		URL:       "https://www.linkedin.com/jobs/view/3756789012/",
		Status:    models.StatusApplied,
		Answered:  4,
		Timestamp: time.Now().UTC(),
	}
}

// Delivery runs in a detached goroutine, so tests synchronize on a channel
// fed by the receiving handler.
func TestNotifyResult_DeliversPayload(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received <- body
	}))
	defer server.Close()

	client := NewClient(webhookConfig(server.URL))
	client.NotifyResult(context.Background(), sampleResult())

	select {
	case body := <-received:
		var payload struct {
			Event     string                   `json:"event"`
			Timestamp string                   `json:"timestamp"`
			Result    models.ApplicationResult `json:"result"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "application.result", payload.Event)
		assert.Equal(t, "3756789012", payload.Result.JobID)
		assert.Equal(t, models.StatusApplied, payload.Result.Status)
		_, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestNotifyResult_RetriesOnServerError(t *testing.T) {
	var calls int32
	delivered := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		delivered <- struct{}{}
	}))
	defer server.Close()

	client := NewClient(webhookConfig(server.URL))
	client.NotifyResult(context.Background(), sampleResult())

	select {
	case <-delivered:
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	case <-time.After(5 * time.Second):
		t.Fatal("delivery was not retried")
	}
}

func TestNotifyResult_DisabledWithoutURL(t *testing.T) {
	received := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer server.Close()

	cfg := webhookConfig("")
	client := NewClient(cfg)
	client.NotifyResult(context.Background(), sampleResult())

	select {
	case <-received:
		t.Fatal("disabled client must not call the webhook")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNotifyResult_SkipsWhenRunIsStopping(t *testing.T) {
	received := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(webhookConfig(server.URL))
	client.NotifyResult(ctx, sampleResult())

	select {
	case <-received:
		t.Fatal("cancelled context must suppress delivery")
	case <-time.After(200 * time.Millisecond):
	}
}
