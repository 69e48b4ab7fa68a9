package posting

import (
	"context"

	"autoapply/internal/config"
	"autoapply/internal/logging"
)

// Fetcher retrieves a job posting page as readable text for analysis
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Name() string
}

// NewFetcher picks the fetch strategy from configuration: Firecrawl when an
// API key is present (with plain HTTP as its runtime fallback), plain HTTP
// otherwise.
func NewFetcher(cfg *config.Config) Fetcher {
	httpFetcher := newHTTPFetcher(cfg)

	if cfg.Firecrawl.APIKey == "" {
		return httpFetcher
	}

	fc := newFirecrawlFetcher(cfg, httpFetcher)
	if fc == nil {
		logging.GetGlobalLogger().Warn("Firecrawl initialization failed, using plain HTTP fetcher")
		return httpFetcher
	}
	return fc
}
