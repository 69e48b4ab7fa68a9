package posting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/config"
)

func postingConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Firecrawl.Timeout = 5 * time.Second
	cfg.Browser.UserAgent = "test-agent/1.0"
	return cfg
}

func TestNewFetcher_PlainHTTPWithoutFirecrawlKey(t *testing.T) {
	fetcher := NewFetcher(postingConfig())
	assert.Equal(t, "http", fetcher.Name())
}

func TestHTTPFetcher_ExtractsPostingText(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`<html><head><script>tracking();</script></head><body>
			<nav>Site navigation</nav>
			<div class="jobs-description">
				<p>We are hiring a backend engineer with Go experience to build our matching pipeline and keep it fast.</p>
			</div>
			<footer>Legal footer</footer>
		</body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(postingConfig())
	text, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUserAgent)
	assert.Contains(t, text, "backend engineer with Go experience")
	assert.NotContains(t, text, "tracking()")
	assert.NotContains(t, text, "Site navigation")
	assert.NotContains(t, text, "Legal footer")
}

func TestHTTPFetcher_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(postingConfig())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	fetcher := NewFetcher(postingConfig())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch posting")
}
