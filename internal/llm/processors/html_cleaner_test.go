package processors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHTML_StripsScriptsAndChrome(t *testing.T) {
	html := `<html><head><title>Job</title><script>alert("x")</script></head>
<body>
  <nav>Site navigation</nav>
  <div class="job">Backend engineer building payment APIs in Go for a fully remote team.</div>
  <!-- tracking comment -->
  <footer>Copyright</footer>
</body></html>`

	cleaner := NewHTMLCleaner()
	cleaned, err := cleaner.CleanHTML(html)
	require.NoError(t, err)

	assert.NotContains(t, cleaned, "alert")
	assert.NotContains(t, cleaned, "Site navigation")
	assert.NotContains(t, cleaned, "Copyright")
	assert.NotContains(t, cleaned, "tracking comment")
	assert.Contains(t, cleaned, "Backend engineer building payment APIs")
}

func TestCleanHTML_DropsUnlistedAttributes(t *testing.T) {
	html := `<div class="job" onclick="evil()" style="color:red">A senior role working on distributed storage systems.</div>`

	cleaner := NewHTMLCleaner()
	cleaned, err := cleaner.CleanHTML(html)
	require.NoError(t, err)

	assert.NotContains(t, cleaned, "onclick")
	assert.NotContains(t, cleaned, "style=")
	assert.Contains(t, cleaned, `class="job"`)
}

func TestExtractJobContent_PrefersDescriptionContainer(t *testing.T) {
	html := `<html><body>
  <div class="global-nav">lots of navigation text that should never be extracted from the page</div>
  <div class="jobs-description">We are hiring a Go engineer to own our ingestion pipeline. You will design APIs and run them in production.</div>
</body></html>`

	cleaner := NewHTMLCleaner()
	text, err := cleaner.ExtractJobContent(html)
	require.NoError(t, err)

	assert.Contains(t, text, "hiring a Go engineer")
	assert.NotContains(t, text, "navigation text")
}

func TestExtractJobContent_FallsBackToBody(t *testing.T) {
	html := `<html><body><p>Short page with no recognised containers but enough text to matter.</p></body></html>`

	cleaner := NewHTMLCleaner()
	text, err := cleaner.ExtractJobContent(html)
	require.NoError(t, err)
	assert.Contains(t, text, "no recognised containers")
}

func TestExtractJobContent_CollapsesWhitespaceAndNoise(t *testing.T) {
	long := strings.Repeat("responsibilities and requirements ", 5)
	html := `<html><body><main>` + long + `

	JavaScript is disabled in your browser. Please make sure it is enabled.</main></body></html>`

	cleaner := NewHTMLCleaner()
	text, err := cleaner.ExtractJobContent(html)
	require.NoError(t, err)

	assert.NotContains(t, text, "  ", "runs of whitespace are collapsed")
	assert.NotContains(t, text, "JavaScript is disabled")
}

func TestGetCleanTextLength(t *testing.T) {
	cleaner := NewHTMLCleaner()
	assert.Equal(t, 25, cleaner.GetCleanTextLength(strings.Repeat("a", 100)))
	assert.Zero(t, cleaner.GetCleanTextLength(""))
}
