package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/pkg/models"
)

// healthProbeTimeout bounds the startup health check so a dead endpoint
// cannot stall boot
const healthProbeTimeout = 10 * time.Second

var errProviderUnavailable = errors.New("chat provider is not available")

// Manager manages chat providers and their lifecycle. Operations delegate to
// the active provider; when none is available they return error responses
// instead of panicking or surfacing Go errors.
type Manager struct {
	config   *config.Config
	factory  *ProviderFactory
	provider ChatProvider
	mu       sync.RWMutex
	healthy  bool
}

// NewManager creates a new chat manager instance
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:  cfg,
		factory: NewProviderFactory(cfg),
	}
}

// Start initializes the manager and creates the provider
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting chat manager", map[string]interface{}{
		"provider": m.config.AI.Provider,
	})

	provider, err := m.factory.CreateProvider()
	if err != nil {
		return fmt.Errorf("failed to create chat provider: %w", err)
	}
	m.provider = provider

	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	// A failed probe is not fatal: chat calls still go out and report their
	// own failures in-band
	if err := m.provider.IsHealthy(ctx); err != nil {
		logger.Warn("Chat provider health check failed", map[string]interface{}{
			"provider": provider.GetProviderName(),
			"error":    err.Error(),
		})
		m.healthy = false
	} else {
		m.healthy = true
		logger.Info("Chat manager started successfully", map[string]interface{}{
			"provider": provider.GetProviderName(),
		})
	}

	return nil
}

// Stop shuts down the manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logging.GetGlobalLogger().Info("Stopping chat manager")
	m.provider = nil
	m.healthy = false
	return nil
}

// Chat sends a single prompt through the active provider
func (m *Manager) Chat(ctx context.Context, message string, opts models.ChatOptions) *models.ChatResponse {
	provider := m.currentProvider()
	if provider == nil {
		return models.NewChatError(errProviderUnavailable.Error())
	}
	return provider.Chat(ctx, message, opts)
}

// ChatStream streams a completion through the active provider
func (m *Manager) ChatStream(ctx context.Context, message string, opts models.ChatOptions) <-chan models.StreamChunk {
	provider := m.currentProvider()
	if provider == nil {
		out := make(chan models.StreamChunk, 1)
		out <- models.StreamChunk{Err: errProviderUnavailable}
		close(out)
		return out
	}
	return provider.ChatStream(ctx, message, opts)
}

// AnalyzeText runs the analysis operation through the active provider
func (m *Manager) AnalyzeText(ctx context.Context, text, analysisType string, opts models.ChatOptions) *models.ChatResponse {
	provider := m.currentProvider()
	if provider == nil {
		return models.NewChatError(errProviderUnavailable.Error())
	}
	return provider.AnalyzeText(ctx, text, analysisType, opts)
}

// GenerateText runs the generation operation through the active provider
func (m *Manager) GenerateText(ctx context.Context, prompt string, opts models.ChatOptions) *models.ChatResponse {
	provider := m.currentProvider()
	if provider == nil {
		return models.NewChatError(errProviderUnavailable.Error())
	}
	return provider.GenerateText(ctx, prompt, opts)
}

// BatchProcess fans prompts out concurrently and returns responses in input
// order. A missing provider yields one error response per prompt. concurrency
// caps the in-flight requests; zero or negative means no cap.
func (m *Manager) BatchProcess(ctx context.Context, prompts []string, opts models.ChatOptions, concurrency int) []*models.ChatResponse {
	responses := make([]*models.ChatResponse, len(prompts))
	if len(prompts) == 0 {
		return responses
	}

	provider := m.currentProvider()
	if provider == nil {
		for i := range responses {
			responses[i] = models.NewChatError(errProviderUnavailable.Error())
		}
		return responses
	}

	if concurrency <= 0 || concurrency > len(prompts) {
		concurrency = len(prompts)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, prompt := range prompts {
		g.Go(func() error {
			responses[i] = provider.Chat(gctx, prompt, opts)
			return nil
		})
	}

	_ = g.Wait()
	return responses
}

// IsHealthy checks if the manager and provider are healthy
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && m.provider != nil
}

// GetProviderName returns the name of the current chat provider
func (m *Manager) GetProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider.GetProviderName()
	}
	return "none"
}

// CheckHealth performs a health check on the active provider and refreshes
// the cached health flag
func (m *Manager) CheckHealth(ctx context.Context) error {
	provider := m.currentProvider()
	if provider == nil {
		return errProviderUnavailable
	}

	err := provider.IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = err == nil
	m.mu.Unlock()

	return err
}

func (m *Manager) currentProvider() ChatProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.provider
}
