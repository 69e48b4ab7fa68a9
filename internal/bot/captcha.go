package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2captcha/2captcha-go"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/internal/logging/types"
	"autoapply/pkg/utils"
)

// CaptchaSolver solves captcha challenges through an external service.
type CaptchaSolver interface {
	SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error)
	SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error)
	IsHealthy() bool
}

// TwoCaptchaSolver implements CaptchaSolver using the 2CAPTCHA service.
type TwoCaptchaSolver struct {
	config *config.Config
	client *api2captcha.Client
	logger types.Logger
}

// NewTwoCaptchaSolver creates a solver bound to the configured 2CAPTCHA key.
// Without a key the solver stays constructed but every solve call fails, so
// the login flow falls through to the manual wait.
func NewTwoCaptchaSolver(cfg *config.Config) *TwoCaptchaSolver {
	logger := logging.GetGlobalLogger()

	if cfg.Captcha.APIKey == "" {
		logger.Warn("2CAPTCHA API key not configured - captcha solving will be disabled")
	} else {
		logger.Info("2CAPTCHA solver initialized", map[string]interface{}{
			"timeout":           cfg.Captcha.Timeout.String(),
			"enable_auto_solve": cfg.Captcha.EnableAutoSolve,
		})
	}

	client := api2captcha.NewClient(cfg.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Captcha.Timeout.Seconds())
	client.PollingInterval = 5 // Check every 5 seconds

	return &TwoCaptchaSolver{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// SolveRecaptcha solves a reCAPTCHA challenge and returns the response token.
func (tcs *TwoCaptchaSolver) SolveRecaptcha(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !tcs.config.Captcha.EnableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}
	if tcs.config.Captcha.APIKey == "" {
		return "", fmt.Errorf("2CAPTCHA API key not configured")
	}

	tcs.logger.Info("Starting reCAPTCHA solving with 2CAPTCHA", map[string]interface{}{
		"site_key": siteKey,
		"page_url": pageURL,
	})
	startTime := time.Now()

	captcha := api2captcha.ReCaptcha{
		SiteKey: siteKey,
		Url:     pageURL,
	}

	req := captcha.ToRequest()
	code, _, err := tcs.client.Solve(req)
	if err != nil {
		tcs.logger.Error("Failed to solve reCAPTCHA", map[string]interface{}{
			"site_key": siteKey,
			"error":    err.Error(),
		})
		return "", fmt.Errorf("failed to solve reCAPTCHA: %w", err)
	}

	tcs.logger.Info("Successfully solved reCAPTCHA", map[string]interface{}{
		"site_key":     siteKey,
		"solving_time": time.Since(startTime).String(),
	})
	return code, nil
}

// SolveTurnstile solves a Cloudflare Turnstile challenge and returns the token.
func (tcs *TwoCaptchaSolver) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !tcs.config.Captcha.EnableAutoSolve {
		return "", fmt.Errorf("captcha auto-solve is disabled")
	}
	if tcs.config.Captcha.APIKey == "" {
		return "", fmt.Errorf("2CAPTCHA API key not configured")
	}

	tcs.logger.Info("Starting Cloudflare Turnstile solving with 2CAPTCHA", map[string]interface{}{
		"site_key": siteKey,
		"page_url": pageURL,
	})
	startTime := time.Now()

	captcha := api2captcha.CloudflareTurnstile{
		SiteKey: siteKey,
		Url:     pageURL,
	}

	req := captcha.ToRequest()
	code, captchaID, err := tcs.client.Solve(req)
	if err != nil {
		tcs.logger.Error("Failed to solve Cloudflare Turnstile", map[string]interface{}{
			"site_key":   siteKey,
			"captcha_id": captchaID,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("failed to solve Cloudflare Turnstile: %w", err)
	}

	tcs.logger.Info("Successfully solved Cloudflare Turnstile", map[string]interface{}{
		"site_key":     siteKey,
		"solving_time": time.Since(startTime).String(),
	})
	return code, nil
}

// IsHealthy checks the 2CAPTCHA account by querying its balance.
func (tcs *TwoCaptchaSolver) IsHealthy() bool {
	if tcs.config.Captcha.APIKey == "" {
		tcs.logger.Debug("2CAPTCHA health check failed: no API key configured")
		return false
	}

	balance, err := tcs.client.GetBalance()
	if err != nil {
		tcs.logger.Error("2CAPTCHA health check failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	tcs.logger.Debug("2CAPTCHA health check successful", map[string]interface{}{
		"balance": balance,
	})
	return balance >= 0 // Zero balance still answers, solves will fail loudly
}

// DetectCaptcha reports whether page content carries a captcha challenge and
// which kind. The returned challenge is the reCAPTCHA site key, a site key
// prefixed "turnstile:", or the literal "cloudflare" for a challenge page
// whose key could not be extracted.
func DetectCaptcha(pageContent string) (bool, string) {
	lower := strings.ToLower(pageContent)

	if strings.Contains(lower, "g-recaptcha") || strings.Contains(lower, "recaptcha") {
		if siteKey := extractRecaptchaSiteKey(pageContent); siteKey != "" {
			return true, siteKey
		}
	}

	if strings.Contains(lower, "turnstile") || strings.Contains(lower, "cf-turnstile") {
		if siteKey := extractTurnstileSiteKey(pageContent); siteKey != "" {
			return true, "turnstile:" + siteKey
		}
	}

	cloudflareIndicators := []string{
		"cf-challenge",
		"just a moment",
		"please wait while we verify",
		"checking your browser",
		"ddos protection by cloudflare",
		"enable javascript and cookies",
		"security verification",
		"cf-browser-verification",
		"__cf_chl_jschl_tk__",
		"performance & security by cloudflare",
	}
	for _, indicator := range cloudflareIndicators {
		if strings.Contains(lower, indicator) {
			if siteKey := extractTurnstileSiteKey(pageContent); siteKey != "" {
				return true, "turnstile:" + siteKey
			}
			return true, "cloudflare"
		}
	}

	return false, ""
}

// extractRecaptchaSiteKey pulls the reCAPTCHA site key out of page HTML.
func extractRecaptchaSiteKey(html string) string {
	patterns := []string{
		`data-sitekey="([^"]+)"`,
		`data-sitekey='([^']+)'`,
		`"sitekey"\s*:\s*"([^"]+)"`,
		`'sitekey'\s*:\s*'([^']+)'`,
	}

	for _, pattern := range patterns {
		if matches := utils.FindRegexMatch(html, pattern); len(matches) > 1 {
			return matches[1]
		}
	}
	return ""
}

// extractTurnstileSiteKey pulls the Turnstile site key out of page HTML,
// covering both widget markup and the Cloudflare challenge iframe URL.
func extractTurnstileSiteKey(html string) string {
	patterns := []string{
		`cf-turnstile[^>]*data-sitekey=['"]([^'"]+)['"]`,
		`data-sitekey="([^"]+)"[^>]*(?:turnstile|cf-turnstile)`,
		`(?:turnstile|cf-turnstile)[^>]*data-sitekey="([^"]+)"`,
		`window\.turnstile.*?sitekey['"]\s*:\s*['"]([^'"]+)['"]`,
		`turnstile\.render\([^)]*['"]([0-9a-zA-Z_-]{20,})['"]`,
		`"sitekey"\s*:\s*"([^"]+)".*?turnstile`,
		`challenges\.cloudflare\.com[^"]*/(0x[0-9a-zA-Z_-]+)/`,
		`challenges\.cloudflare\.com[^"]*?(0x[0-9a-zA-Z_-]{20,})[^"]*`,
	}

	for _, pattern := range patterns {
		if matches := utils.FindRegexMatch(html, pattern); len(matches) > 1 {
			siteKey := strings.TrimSpace(matches[1])
			if len(siteKey) > 10 {
				return siteKey
			}
		}
	}
	return ""
}

// attemptAutoSolve tries to clear a captcha on the current page: detect the
// challenge type, solve it through the configured service and inject the
// token. Returns true when a solution was injected. A generic Cloudflare
// challenge with no extractable key only gets human behavior simulation.
func attemptAutoSolve(ctx context.Context, solver CaptchaSolver, session *Session) (bool, error) {
	html, err := session.HTML()
	if err != nil {
		return false, err
	}

	found, challenge := DetectCaptcha(html)
	if !found {
		return false, nil
	}

	logger := logging.GetGlobalLogger()
	pageURL := session.CurrentURL()

	switch {
	case challenge == "cloudflare":
		logger.Info("Cloudflare challenge without extractable site key, simulating human behavior", map[string]interface{}{
			"page_url": pageURL,
		})
		return false, session.SimulateHumanBehavior()

	case strings.HasPrefix(challenge, "turnstile:"):
		siteKey := strings.TrimPrefix(challenge, "turnstile:")
		token, err := solver.SolveTurnstile(ctx, siteKey, pageURL)
		if err != nil {
			return false, err
		}
		if err := session.InjectTurnstileSolution(token); err != nil {
			return false, err
		}
		return true, nil

	default:
		token, err := solver.SolveRecaptcha(ctx, challenge, pageURL)
		if err != nil {
			return false, err
		}
		if err := session.InjectCaptchaSolution(token); err != nil {
			return false, err
		}
		return true, nil
	}
}
