package llm

import (
	"fmt"

	"autoapply/internal/config"
	"autoapply/internal/llm/providers"
)

// ProviderFactory creates chat provider instances
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory instance
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// CreateProvider creates a chat provider based on the configuration
func (f *ProviderFactory) CreateProvider() (ChatProvider, error) {
	switch f.config.AI.Provider {
	case "aiml":
		return providers.NewAIMLProvider(f.config), nil
	case "claude":
		return providers.NewClaudeProvider(f.config), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", f.config.AI.Provider)
	}
}

// GetSupportedProviders returns a list of supported chat providers
func (f *ProviderFactory) GetSupportedProviders() []string {
	return []string{"aiml", "claude"}
}
