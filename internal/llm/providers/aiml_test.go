package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/config"
	"autoapply/pkg/models"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.AI.Provider = "aiml"
	cfg.AI.APIKey = "test-key"
	cfg.AI.BaseURL = baseURL
	cfg.AI.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	cfg.AI.Temperature = 0.7
	cfg.AI.MaxTokens = 500
	cfg.AI.Timeout = 5 * time.Second
	cfg.AI.RateLimit = 6000
	return cfg
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":%q}}],"usage":{"total_tokens":12}}`, content)
}

func TestChat_RequestShape(t *testing.T) {
	var captured map[string]interface{}
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, completionBody("hi there"))
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.Chat(context.Background(), "hello", models.ChatOptions{
		SystemPrompt: "You are terse",
		Temperature:  0.3,
		MaxTokens:    64,
		Model:        "custom-model",
	})

	require.True(t, resp.Success)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "test-model", resp.Metadata["model"])

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	assert.Equal(t, "custom-model", captured["model"])
	assert.Equal(t, 0.3, captured["temperature"])
	assert.Equal(t, float64(64), captured["max_tokens"])

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You are terse", first["content"])
	second := messages[1].(map[string]interface{})
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "hello", second["content"])
}

func TestChat_ConfigDefaults(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.Chat(context.Background(), "hello", models.ChatOptions{})

	require.True(t, resp.Success)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct-v0.2", captured["model"])
	assert.Equal(t, 0.7, captured["temperature"])
	assert.Equal(t, float64(500), captured["max_tokens"])

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1, "no system message when the prompt is empty")
}

func TestChat_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.Chat(context.Background(), "hello", models.ChatOptions{})

	require.True(t, resp.IsError())
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "API error 429")
	assert.Contains(t, resp.Error, "quota exceeded")
	assert.Empty(t, resp.Content)
}

func TestChat_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.Chat(context.Background(), "hello", models.ChatOptions{})

	require.True(t, resp.IsError())
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"m","choices":[]}`)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.Chat(context.Background(), "hello", models.ChatOptions{})

	require.True(t, resp.IsError())
	assert.Contains(t, resp.Error, "no choices")
}

func TestChatStream_DeliversChunksUntilDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, true, payload["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n")
		fmt.Fprint(w, "\n")
		fmt.Fprint(w, "this line is not json\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n")
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))

	var content string
	for chunk := range provider.ChatStream(context.Background(), "hello", models.ChatOptions{}) {
		require.NoError(t, chunk.Err)
		content += chunk.Content
	}
	assert.Equal(t, "Hello", content)
}

func TestChatStream_HTTPErrorArrivesInBand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))

	var chunks []models.StreamChunk
	for chunk := range provider.ChatStream(context.Background(), "hello", models.ChatOptions{}) {
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 1)
	require.Error(t, chunks[0].Err)
	assert.Contains(t, chunks[0].Err.Error(), "API error 401")
}

func TestAnalyzeText_PayloadAndParse(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"analysis":"looks fine","details":{"score":0.9}}`)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.AnalyzeText(context.Background(), "some text", "sentiment", models.ChatOptions{})

	require.True(t, resp.Success)
	assert.Equal(t, "looks fine", resp.Content)
	assert.Equal(t, 0.9, resp.Metadata["score"])
	assert.Equal(t, "some text", captured["text"])
	assert.Equal(t, "sentiment", captured["type"])
}

func TestGenerateText_PayloadAndParse(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"generated_text":"a poem"}`)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	resp := provider.GenerateText(context.Background(), "write a poem", models.ChatOptions{})

	require.True(t, resp.Success)
	assert.Equal(t, "a poem", resp.Content)
	assert.Equal(t, "write a poem", captured["prompt"])
}

func TestIsHealthy(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer server.Close()

	provider := NewAIMLProvider(testConfig(server.URL))
	require.NoError(t, provider.IsHealthy(context.Background()))

	status = http.StatusServiceUnavailable
	err := provider.IsHealthy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestIsHealthy_MissingAPIKey(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.AI.APIKey = ""

	provider := NewAIMLProvider(cfg)
	err := provider.IsHealthy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
