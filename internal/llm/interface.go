package llm

import (
	"context"

	"autoapply/pkg/models"
)

// ChatProvider is the surface every chat-completion backend implements.
// Per-call failures never surface as Go errors: every operation returns a
// ChatResponse whose Error field carries the failure, and streaming delivers
// errors in-band through StreamChunk.Err.
type ChatProvider interface {
	// Chat sends a single prompt and returns the completion
	Chat(ctx context.Context, message string, opts models.ChatOptions) *models.ChatResponse

	// ChatStream streams the completion incrementally. The channel closes
	// when the stream ends, after delivering any transport failure in-band.
	ChatStream(ctx context.Context, message string, opts models.ChatOptions) <-chan models.StreamChunk

	// AnalyzeText runs the provider's analysis operation over a text
	AnalyzeText(ctx context.Context, text, analysisType string, opts models.ChatOptions) *models.ChatResponse

	// GenerateText runs the provider's bare text-generation operation
	GenerateText(ctx context.Context, prompt string, opts models.ChatOptions) *models.ChatResponse

	// IsHealthy checks if the provider is reachable and serviceable
	IsHealthy(ctx context.Context) error

	// GetProviderName returns the name of the provider
	GetProviderName() string
}
