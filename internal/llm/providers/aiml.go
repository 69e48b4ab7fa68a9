package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

const (
	streamDoneMarker  = "[DONE]"
	streamDataPrefix  = "data: "
	maxErrorBodySize  = 2048
	maxStreamLineSize = 1024 * 1024
)

// AIMLProvider implements the chat provider interface against an
// OpenAI-compatible completion API such as api.aimlapi.com. Endpoint failures
// of any kind come back inside the ChatResponse, never as Go errors.
type AIMLProvider struct {
	config     *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAIMLProvider creates a new AIML API provider instance
func NewAIMLProvider(cfg *config.Config) *AIMLProvider {
	// Rate limit: requests per minute converted to requests per second
	rps := rate.Limit(float64(cfg.AI.RateLimit) / 60.0)

	return &AIMLProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.AI.Timeout},
		limiter:    rate.NewLimiter(rps, 5),
	}
}

// Chat sends a single prompt and returns the completion
func (ap *AIMLProvider) Chat(ctx context.Context, message string, opts models.ChatOptions) *models.ChatResponse {
	logger := logging.GetGlobalLogger()

	body, err := ap.postJSON(ctx, "/chat/completions", ap.chatPayload(message, opts, false))
	if err != nil {
		logger.Warn("Chat completion failed", map[string]interface{}{
			"provider": "aiml",
			"error":    err.Error(),
		})
		return models.NewChatError(err.Error())
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message models.ChatMessage `json:"message"`
		} `json:"choices"`
		Usage map[string]interface{} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return models.NewChatError(fmt.Sprintf("invalid completion response: %v", err))
	}
	if len(result.Choices) == 0 {
		return models.NewChatError("API response contained no choices")
	}

	return models.NewChatSuccess(result.Choices[0].Message.Content, map[string]interface{}{
		"model": result.Model,
		"usage": result.Usage,
	})
}

// ChatStream streams the completion token by token over the returned channel.
// Lines arrive in SSE framing: a "data: " prefix, blank keep-alives and a
// terminal "[DONE]" marker. Unparseable lines are skipped rather than
// aborting the stream.
func (ap *AIMLProvider) ChatStream(ctx context.Context, message string, opts models.ChatOptions) <-chan models.StreamChunk {
	out := make(chan models.StreamChunk)

	go func() {
		defer close(out)
		logger := logging.GetGlobalLogger()

		if err := ap.limiter.Wait(ctx); err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: err})
			return
		}

		raw, err := json.Marshal(ap.chatPayload(message, opts, true))
		if err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: fmt.Errorf("failed to encode request: %w", err)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ap.endpoint("/chat/completions"), bytes.NewReader(raw))
		if err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: err})
			return
		}
		ap.setHeaders(req)

		resp, err := ap.httpClient.Do(req)
		if err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: err})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			emitChunk(ctx, out, models.StreamChunk{Err: fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			line = strings.TrimPrefix(line, streamDataPrefix)
			if line == streamDoneMarker {
				return
			}

			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				logger.Debug("Skipping unparseable stream line", map[string]interface{}{
					"provider": "aiml",
					"line":     utils.Truncate(line, 120),
				})
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !emitChunk(ctx, out, models.StreamChunk{Content: text}) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: err})
		}
	}()

	return out
}

// AnalyzeText runs the dedicated analysis endpoint over a text
func (ap *AIMLProvider) AnalyzeText(ctx context.Context, text, analysisType string, opts models.ChatOptions) *models.ChatResponse {
	payload := map[string]interface{}{
		"text":    text,
		"type":    analysisType,
		"options": ap.extraOptions(opts),
	}

	body, err := ap.postJSON(ctx, "/analyze", payload)
	if err != nil {
		return models.NewChatError(err.Error())
	}

	var result struct {
		Analysis string                 `json:"analysis"`
		Details  map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return models.NewChatError(fmt.Sprintf("invalid analysis response: %v", err))
	}

	return models.NewChatSuccess(result.Analysis, result.Details)
}

// GenerateText runs the bare text-generation endpoint
func (ap *AIMLProvider) GenerateText(ctx context.Context, prompt string, opts models.ChatOptions) *models.ChatResponse {
	payload := map[string]interface{}{
		"prompt":  prompt,
		"options": ap.extraOptions(opts),
	}

	body, err := ap.postJSON(ctx, "/generate", payload)
	if err != nil {
		return models.NewChatError(err.Error())
	}

	var result struct {
		GeneratedText string                 `json:"generated_text"`
		Details       map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return models.NewChatError(fmt.Sprintf("invalid generation response: %v", err))
	}

	return models.NewChatSuccess(result.GeneratedText, result.Details)
}

// IsHealthy checks if the AIML API is reachable
func (ap *AIMLProvider) IsHealthy(ctx context.Context) error {
	if ap.config.AI.APIKey == "" {
		return fmt.Errorf("AIML API key not configured - set AIML_API_KEY environment variable")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ap.endpoint("/health"), nil)
	if err != nil {
		return err
	}
	ap.setHeaders(req)

	resp, err := ap.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("AIML API health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("AIML API health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GetProviderName returns the name of the chat provider
func (ap *AIMLProvider) GetProviderName() string {
	return "aiml"
}

// chatPayload builds the completion request body. A system prompt, when set,
// is always the first message.
func (ap *AIMLProvider) chatPayload(message string, opts models.ChatOptions, stream bool) map[string]interface{} {
	messages := make([]models.ChatMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, models.ChatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, models.ChatMessage{Role: "user", Content: message})

	payload := map[string]interface{}{
		"model":       utils.GetStringOrDefault(opts.Model, ap.config.AI.Model),
		"messages":    messages,
		"temperature": ap.resolveTemperature(opts),
		"max_tokens":  ap.resolveMaxTokens(opts),
	}
	if stream {
		payload["stream"] = true
	}
	return payload
}

func (ap *AIMLProvider) resolveTemperature(opts models.ChatOptions) float64 {
	if opts.Temperature > 0 {
		return opts.Temperature
	}
	return ap.config.AI.Temperature
}

func (ap *AIMLProvider) resolveMaxTokens(opts models.ChatOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return ap.config.AI.MaxTokens
}

func (ap *AIMLProvider) extraOptions(opts models.ChatOptions) map[string]interface{} {
	if opts.Extra == nil {
		return map[string]interface{}{}
	}
	return opts.Extra
}

// postJSON issues a POST and returns the raw body. Non-2xx statuses are
// folded into the error as "API error <status>: <body excerpt>".
func (ap *AIMLProvider) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	if err := ap.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ap.endpoint(path), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	ap.setHeaders(req)

	resp, err := ap.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > maxErrorBodySize {
			excerpt = excerpt[:maxErrorBodySize]
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, excerpt)
	}

	return body, nil
}

func (ap *AIMLProvider) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", ap.config.AI.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (ap *AIMLProvider) endpoint(path string) string {
	return strings.TrimSuffix(ap.config.AI.BaseURL, "/") + path
}

// emitChunk delivers a chunk unless the consumer has gone away
func emitChunk(ctx context.Context, out chan<- models.StreamChunk, chunk models.StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
