package posting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoapply/internal/config"
	"autoapply/internal/llm/processors"
)

const maxPostingBodySize = 4 << 20

// httpFetcher grabs the page with a plain GET and reduces it to text
type httpFetcher struct {
	client    *http.Client
	cleaner   *processors.HTMLCleaner
	userAgent string
}

func newHTTPFetcher(cfg *config.Config) *httpFetcher {
	timeout := cfg.Firecrawl.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpFetcher{
		client:    &http.Client{Timeout: timeout},
		cleaner:   processors.NewHTMLCleaner(),
		userAgent: cfg.Browser.UserAgent,
	}
}

func (f *httpFetcher) Name() string {
	return "http"
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch posting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("posting fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPostingBodySize))
	if err != nil {
		return "", err
	}

	return f.cleaner.ExtractJobContent(string(body))
}
