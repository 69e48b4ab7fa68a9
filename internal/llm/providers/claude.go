package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// ClaudeProvider implements the chat provider interface using Anthropic's
// Claude. Analysis and bare generation have no dedicated endpoints on this
// backend, so both are expressed as chat completions.
type ClaudeProvider struct {
	client anthropic.Client
	config *config.Config
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AI.APIKey),
	)

	return &ClaudeProvider{
		client: client,
		config: cfg,
	}
}

// Chat sends a single prompt and returns the completion
func (cp *ClaudeProvider) Chat(ctx context.Context, message string, opts models.ChatOptions) *models.ChatResponse {
	logger := logging.GetGlobalLogger()

	response, err := cp.client.Messages.New(ctx, cp.buildParams(message, opts))
	if err != nil {
		logger.Warn("Chat completion failed", map[string]interface{}{
			"provider": "claude",
			"error":    err.Error(),
		})
		return models.NewChatError(err.Error())
	}

	text := messageText(response)
	if text == "" {
		return models.NewChatError("empty response from Claude")
	}

	return models.NewChatSuccess(text, map[string]interface{}{
		"model": string(response.Model),
		"usage": map[string]interface{}{
			"input_tokens":  response.Usage.InputTokens,
			"output_tokens": response.Usage.OutputTokens,
		},
	})
}

// ChatStream streams the completion incrementally via the Anthropic SSE API
func (cp *ClaudeProvider) ChatStream(ctx context.Context, message string, opts models.ChatOptions) <-chan models.StreamChunk {
	out := make(chan models.StreamChunk)

	go func() {
		defer close(out)

		stream := cp.client.Messages.NewStreaming(ctx, cp.buildParams(message, opts))
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					if !emitChunk(ctx, out, models.StreamChunk{Content: deltaVariant.Text}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			emitChunk(ctx, out, models.StreamChunk{Err: err})
		}
	}()

	return out
}

// AnalyzeText expresses the analysis operation as an instructed completion
func (cp *ClaudeProvider) AnalyzeText(ctx context.Context, text, analysisType string, opts models.ChatOptions) *models.ChatResponse {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = fmt.Sprintf(
			"You are a text analysis engine. Perform a %s analysis of the user's text and reply with the analysis only.",
			analysisType,
		)
	}

	response := cp.Chat(ctx, text, opts)
	if response.IsError() {
		return response
	}

	if response.Metadata == nil {
		response.Metadata = map[string]interface{}{}
	}
	response.Metadata["analysis_type"] = analysisType
	return response
}

// GenerateText expresses bare generation as a chat completion
func (cp *ClaudeProvider) GenerateText(ctx context.Context, prompt string, opts models.ChatOptions) *models.ChatResponse {
	return cp.Chat(ctx, prompt, opts)
}

// IsHealthy checks if the Claude provider is healthy and available
func (cp *ClaudeProvider) IsHealthy(ctx context.Context) error {
	if cp.config.AI.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set AIML_API_KEY or LLM_API_KEY environment variable")
	}

	// Minimal ping request to verify API access without burning tokens
	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     cp.resolveModel(models.ChatOptions{}),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "ping"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}
	if messageText(response) == "" {
		return fmt.Errorf("Claude API health check returned an empty response")
	}
	return nil
}

// GetProviderName returns the name of the chat provider
func (cp *ClaudeProvider) GetProviderName() string {
	return "claude"
}

func (cp *ClaudeProvider) buildParams(message string, opts models.ChatOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       cp.resolveModel(opts),
		MaxTokens:   int64(cp.resolveMaxTokens(opts)),
		Temperature: anthropic.Float(cp.resolveTemperature(opts)),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: message},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	}

	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}

	return params
}

// resolveModel maps the configured model onto this backend. The configured
// default targets the AIML provider, so anything that is not a Claude model
// name falls back to the SDK's latest Sonnet alias.
func (cp *ClaudeProvider) resolveModel(opts models.ChatOptions) anthropic.Model {
	model := utils.GetStringOrDefault(opts.Model, cp.config.AI.Model)
	if !strings.HasPrefix(model, "claude") {
		return anthropic.ModelClaude3_7SonnetLatest
	}
	return anthropic.Model(model)
}

func (cp *ClaudeProvider) resolveTemperature(opts models.ChatOptions) float64 {
	if opts.Temperature > 0 {
		return opts.Temperature
	}
	return cp.config.AI.Temperature
}

func (cp *ClaudeProvider) resolveMaxTokens(opts models.ChatOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return cp.config.AI.MaxTokens
}

// messageText extracts the first text block from a Claude response
func messageText(response *anthropic.Message) string {
	if response == nil || len(response.Content) == 0 {
		return ""
	}
	for _, content := range response.Content {
		textContent := content.AsText()
		if textContent.Text != "" {
			return textContent.Text
		}
	}
	return ""
}
