package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/config"
)

func TestDetectCaptcha_RecaptchaWidget(t *testing.T) {
	html := `<html><body>
		<div class="g-recaptcha" data-sitekey="6LeIxAcTAAAAAJcZVRqyHh71UMIEGNQ_MXjiZKhI"></div>
	</body></html>`

	found, challenge := DetectCaptcha(html)
	require.True(t, found)
	assert.Equal(t, "6LeIxAcTAAAAAJcZVRqyHh71UMIEGNQ_MXjiZKhI", challenge)
}

func TestDetectCaptcha_RecaptchaScriptConfig(t *testing.T) {
	html := `<script>grecaptcha.render('container', {"sitekey": "6LfScriptKeyAAAAAJcZVRqyHh71UMIEGNQ"});</script>`

	found, challenge := DetectCaptcha(html)
	require.True(t, found)
	assert.Equal(t, "6LfScriptKeyAAAAAJcZVRqyHh71UMIEGNQ", challenge)
}

func TestDetectCaptcha_RecaptchaMentionWithoutKey(t *testing.T) {
	// A page that merely talks about reCAPTCHA has nothing to solve
	found, challenge := DetectCaptcha(`<p>This site is protected by reCAPTCHA.</p>`)
	assert.False(t, found)
	assert.Empty(t, challenge)
}

func TestDetectCaptcha_TurnstileWidget(t *testing.T) {
	html := `<div class="cf-turnstile" data-sitekey="0x4AAAAAAADnPIDROrmt1Wwj"></div>`

	found, challenge := DetectCaptcha(html)
	require.True(t, found)
	assert.Equal(t, "turnstile:0x4AAAAAAADnPIDROrmt1Wwj", challenge)
}

func TestDetectCaptcha_CloudflareChallengeWithIframeKey(t *testing.T) {
	html := `<html><head><title>Just a moment...</title></head><body>
		<iframe src="https://challenges.cloudflare.com/cdn-cgi/challenge-platform/h/b/turnstile/if/ov2/av0/0x4AAAAAAADnPIDROrmt1Wwj/light/"></iframe>
	</body></html>`

	found, challenge := DetectCaptcha(html)
	require.True(t, found)
	assert.Equal(t, "turnstile:0x4AAAAAAADnPIDROrmt1Wwj", challenge)
}

func TestDetectCaptcha_CloudflareChallengeWithoutKey(t *testing.T) {
	html := `<html><body><h1>Just a moment</h1><p>Checking your browser before accessing the site.</p></body></html>`

	found, challenge := DetectCaptcha(html)
	require.True(t, found)
	assert.Equal(t, "cloudflare", challenge)
}

func TestDetectCaptcha_PlainPage(t *testing.T) {
	found, challenge := DetectCaptcha(`<html><body><h1>Jobs</h1><p>Browse openings.</p></body></html>`)
	assert.False(t, found)
	assert.Empty(t, challenge)
}

func TestExtractRecaptchaSiteKey_QuoteVariants(t *testing.T) {
	cases := map[string]string{
		`<div data-sitekey="double-quoted-key"></div>`:  "double-quoted-key",
		`<div data-sitekey='single-quoted-key'></div>`:  "single-quoted-key",
		`var cfg = {"sitekey": "json-style-key"};`:      "json-style-key",
		`var cfg = {'sitekey': 'js-object-key'};`:       "js-object-key",
		`<div class="widget" data-other="value"></div>`: "",
	}

	for html, want := range cases {
		assert.Equal(t, want, extractRecaptchaSiteKey(html), "html: %s", html)
	}
}

func TestExtractTurnstileSiteKey_RejectsShortKeys(t *testing.T) {
	// Keys at or under ten characters are noise from unrelated markup
	html := `<div class="cf-turnstile" data-sitekey="short"></div>`
	assert.Empty(t, extractTurnstileSiteKey(html))
}

func TestExtractTurnstileSiteKey_RenderCall(t *testing.T) {
	html := `<script>turnstile.render('#widget', {sitekey: '0x4AAAAAAADnPIDROrmt1Wwj'});</script>`
	assert.Equal(t, "0x4AAAAAAADnPIDROrmt1Wwj", extractTurnstileSiteKey(html))
}

func captchaConfig(apiKey string, autoSolve bool) *config.Config {
	cfg := &config.Config{}
	cfg.Captcha.APIKey = apiKey
	cfg.Captcha.Timeout = 30 * time.Second
	cfg.Captcha.EnableAutoSolve = autoSolve
	return cfg
}

func TestTwoCaptchaSolver_AutoSolveDisabled(t *testing.T) {
	solver := NewTwoCaptchaSolver(captchaConfig("test-key", false))

	_, err := solver.SolveRecaptcha(context.Background(), "site-key", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	_, err = solver.SolveTurnstile(context.Background(), "site-key", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestTwoCaptchaSolver_MissingAPIKey(t *testing.T) {
	solver := NewTwoCaptchaSolver(captchaConfig("", true))

	_, err := solver.SolveRecaptcha(context.Background(), "site-key", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	assert.False(t, solver.IsHealthy())
}
