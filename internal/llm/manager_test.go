package llm

import (
	"context"
	"encoding/json"
	"fmt"
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

// echoServer answers every completion request with the prompt it received, so
// response ordering is observable.
func echoServer(t *testing.T, inFlight *int32, maxSeen *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if inFlight != nil {
			current := atomic.AddInt32(inFlight, 1)
			for {
				seen := atomic.LoadInt32(maxSeen)
				if current <= seen || atomic.CompareAndSwapInt32(maxSeen, seen, current) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			defer atomic.AddInt32(inFlight, -1)
		}

		var payload struct {
			Messages []models.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.NotEmpty(t, payload.Messages)
		prompt := payload.Messages[len(payload.Messages)-1].Content

		fmt.Fprintf(w, `{"model":"echo","choices":[{"message":{"role":"assistant","content":%q}}]}`, "echo: "+prompt)
	}))
}

func managerConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.Provider = "aiml"
	cfg.AI.APIKey = "test-key"
	cfg.AI.BaseURL = baseURL
	cfg.AI.Model = "test-model"
	cfg.AI.Temperature = 0.7
	cfg.AI.MaxTokens = 100
	cfg.AI.Timeout = 5 * time.Second
	cfg.AI.RateLimit = 60000
	return cfg
}

func TestManager_StartAndChat(t *testing.T) {
	server := echoServer(t, nil, nil)
	defer server.Close()

	manager := NewManager(managerConfig(server.URL))
	require.NoError(t, manager.Start())
	defer manager.Stop()

	assert.True(t, manager.IsHealthy())
	assert.Equal(t, "aiml", manager.GetProviderName())

	resp := manager.Chat(context.Background(), "ping", models.ChatOptions{})
	require.True(t, resp.Success)
	assert.Equal(t, "echo: ping", resp.Content)
}

func TestManager_ChatWithoutStart(t *testing.T) {
	manager := NewManager(managerConfig("http://unused.invalid"))

	resp := manager.Chat(context.Background(), "ping", models.ChatOptions{})
	require.True(t, resp.IsError())
	assert.Contains(t, resp.Error, "not available")
	assert.Equal(t, "none", manager.GetProviderName())
	assert.False(t, manager.IsHealthy())
}

func TestManager_ChatStreamWithoutStart(t *testing.T) {
	manager := NewManager(managerConfig("http://unused.invalid"))

	var chunks []models.StreamChunk
	for chunk := range manager.ChatStream(context.Background(), "ping", models.ChatOptions{}) {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 1)
	require.Error(t, chunks[0].Err)
}

func TestBatchProcess_KeepsInputOrder(t *testing.T) {
	server := echoServer(t, nil, nil)
	defer server.Close()

	manager := NewManager(managerConfig(server.URL))
	require.NoError(t, manager.Start())
	defer manager.Stop()

	prompts := []string{"one", "two", "three", "four", "five"}
	responses := manager.BatchProcess(context.Background(), prompts, models.ChatOptions{}, 3)

	require.Len(t, responses, len(prompts))
	for i, prompt := range prompts {
		require.NotNil(t, responses[i])
		require.True(t, responses[i].Success, "prompt %q failed: %s", prompt, responses[i].Error)
		assert.Equal(t, "echo: "+prompt, responses[i].Content)
	}
}

func TestBatchProcess_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, maxSeen int32
	server := echoServer(t, &inFlight, &maxSeen)
	defer server.Close()

	manager := NewManager(managerConfig(server.URL))
	require.NoError(t, manager.Start())
	defer manager.Stop()

	prompts := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	responses := manager.BatchProcess(context.Background(), prompts, models.ChatOptions{}, 2)

	require.Len(t, responses, len(prompts))
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2))
}

func TestBatchProcess_UnavailableProvider(t *testing.T) {
	manager := NewManager(managerConfig("http://unused.invalid"))

	prompts := []string{"a", "b", "c"}
	responses := manager.BatchProcess(context.Background(), prompts, models.ChatOptions{}, 0)

	require.Len(t, responses, 3)
	for _, resp := range responses {
		require.NotNil(t, resp)
		assert.True(t, resp.IsError())
		assert.Contains(t, resp.Error, "not available")
	}
}

func TestBatchProcess_EmptyInput(t *testing.T) {
	manager := NewManager(managerConfig("http://unused.invalid"))
	responses := manager.BatchProcess(context.Background(), nil, models.ChatOptions{}, 4)
	assert.Empty(t, responses)
}

func TestManager_CheckHealthRefreshesFlag(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	manager := NewManager(managerConfig(server.URL))
	require.NoError(t, manager.Start())
	defer manager.Stop()
	require.True(t, manager.IsHealthy())

	healthy = false
	require.Error(t, manager.CheckHealth(context.Background()))
	assert.False(t, manager.IsHealthy())

	healthy = true
	require.NoError(t, manager.CheckHealth(context.Background()))
	assert.True(t, manager.IsHealthy())
}
