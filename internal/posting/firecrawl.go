package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"autoapply/internal/config"
	"autoapply/internal/llm/processors"
	"autoapply/internal/logging"
)

const firecrawlMaxRetries = 3

// firecrawlFetcher pulls postings through the Firecrawl API, which survives
// the bot-detection walls that block a bare GET. When every attempt fails it
// hands the URL to the plain HTTP fetcher.
type firecrawlFetcher struct {
	config   *config.Config
	app      *firecrawl.FirecrawlApp
	cleaner  *processors.HTMLCleaner
	fallback Fetcher
}

func newFirecrawlFetcher(cfg *config.Config, fallback Fetcher) *firecrawlFetcher {
	logger := logging.GetGlobalLogger()

	app, err := firecrawl.NewFirecrawlApp(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL)
	if err != nil {
		logger.Error("Failed to initialize Firecrawl", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	logger.Info("Firecrawl fetcher initialized", map[string]interface{}{
		"api_url": cfg.Firecrawl.APIURL,
	})

	return &firecrawlFetcher{
		config:   cfg,
		app:      app,
		cleaner:  processors.NewHTMLCleaner(),
		fallback: fallback,
	}
}

func (f *firecrawlFetcher) Name() string {
	return "firecrawl"
}

func (f *firecrawlFetcher) Fetch(ctx context.Context, url string) (string, error) {
	logger := logging.GetGlobalLogger()

	content, err := f.scrape(ctx, url)
	if err == nil {
		return content, nil
	}

	if f.fallback == nil {
		return "", err
	}

	logger.Warn("Firecrawl fetch failed, falling back to plain HTTP", map[string]interface{}{
		"url":   url,
		"error": err.Error(),
	})
	return f.fallback.Fetch(ctx, url)
}

func (f *firecrawlFetcher) scrape(ctx context.Context, url string) (string, error) {
	logger := logging.GetGlobalLogger()

	params := &firecrawl.ScrapeParams{
		Formats: []string{"markdown"},
	}

	var doc *firecrawl.FirecrawlDocument
	var err error
	for attempt := 1; attempt <= firecrawlMaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		doc, err = f.app.ScrapeURL(url, params)
		if err == nil {
			break
		}

		logger.Debug("Firecrawl scrape attempt failed", map[string]interface{}{
			"attempt": attempt,
			"url":     url,
			"error":   err.Error(),
		})
		if attempt < firecrawlMaxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("firecrawl scraping failed after %d attempts: %w", firecrawlMaxRetries, err)
	}
	if doc == nil {
		return "", fmt.Errorf("no result returned from Firecrawl")
	}

	if doc.Markdown != "" {
		return doc.Markdown, nil
	}
	if doc.HTML != "" {
		return f.cleaner.ExtractJobContent(doc.HTML)
	}
	return "", fmt.Errorf("no content found in Firecrawl response")
}
