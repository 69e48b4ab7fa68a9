package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"autoapply/pkg/utils"
)

const (
	maxLoginAttempts = 3
	rateLimitWait    = 60 * time.Second
	checkpointPoll   = 5 * time.Second
)

// Login signs the session into LinkedIn. Security checkpoints get one captcha
// auto-solve attempt, then the routine waits for manual approval from the
// account owner's device, polling until the checkpoint clears or the
// configured window runs out.
func (s *Session) Login(ctx context.Context, solver CaptchaSolver) error {
	loginURL := s.config.LinkedIn.BaseURL + "/login"

	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if err := s.Navigate(ctx, loginURL, s.config.LinkedIn.PageTimeout); err != nil {
			s.logger.Warn("Failed to open login page", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		// Navigating to /login while authenticated redirects straight to the feed
		if s.isLoggedIn() {
			s.logger.Info("Already logged in to LinkedIn", map[string]interface{}{})
			return nil
		}

		if err := s.submitCredentials(ctx); err != nil {
			s.logger.Warn("Failed to submit credentials", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		// Give the post-login redirect time to land
		if err := sleepCtx(ctx, 3*time.Second); err != nil {
			return err
		}

		currentURL := s.CurrentURL()
		switch {
		case isRateLimited(currentURL):
			s.logger.Warn("LinkedIn rate limit page hit, waiting before retry", map[string]interface{}{
				"attempt": attempt,
				"wait":    rateLimitWait.String(),
			})
			if err := sleepCtx(ctx, rateLimitWait); err != nil {
				return err
			}

		case isSecurityCheckpoint(currentURL):
			if err := s.resolveCheckpoint(ctx, solver); err != nil {
				return err
			}
			if s.isLoggedIn() {
				s.logger.Info("Logged in to LinkedIn", map[string]interface{}{
					"attempt": attempt,
				})
				return nil
			}

		case s.isLoggedIn():
			s.logger.Info("Logged in to LinkedIn", map[string]interface{}{
				"attempt": attempt,
			})
			return nil

		default:
			s.logger.Warn("Login did not reach the feed", map[string]interface{}{
				"attempt":     attempt,
				"current_url": currentURL,
			})
		}
	}

	return utils.NewLoginError(fmt.Sprintf("login failed after %d attempts", maxLoginAttempts))
}

// submitCredentials fills the login form and submits it.
func (s *Session) submitCredentials(ctx context.Context) error {
	formCtx, cancel := context.WithTimeout(ctx, s.config.LinkedIn.PageTimeout)
	defer cancel()

	return rod.Try(func() {
		page := s.Page.Context(formCtx)

		username := page.MustElement("#username")
		username.MustSelectAllText().MustInput(s.config.LinkedIn.Email)

		password := page.MustElement("#password")
		password.MustSelectAllText().MustInput(s.config.LinkedIn.Password)

		page.MustElement("button[type='submit']").MustClick()
	})
}

// isLoggedIn reports whether the session has reached an authenticated page.
func (s *Session) isLoggedIn() bool {
	url := s.CurrentURL()
	return strings.Contains(url, "feed") || strings.Contains(url, "/jobs")
}

// isRateLimited recognizes LinkedIn's too-many-attempts interstitial.
func isRateLimited(url string) bool {
	return strings.Contains(url, "challengesV2/inapp/tooManyAttempts") ||
		strings.Contains(url, "tooManyAttempts")
}

// isSecurityCheckpoint recognizes the 2FA / verification checkpoint URLs.
func isSecurityCheckpoint(url string) bool {
	return strings.Contains(url, "/checkpoint/") || strings.Contains(url, "/challenge")
}

// resolveCheckpoint waits out a security checkpoint. One captcha auto-solve
// attempt runs up front; after that the loop polls for the account owner
// approving the login manually.
func (s *Session) resolveCheckpoint(ctx context.Context, solver CaptchaSolver) error {
	timeout := s.config.LinkedIn.SecurityCheckTimeout
	deadline := time.Now().Add(timeout)

	if solver != nil && s.config.Captcha.EnableAutoSolve {
		injected, err := attemptAutoSolve(ctx, solver, s)
		switch {
		case err != nil:
			s.logger.Warn("Captcha auto-solve failed, falling back to manual approval", map[string]interface{}{
				"error": err.Error(),
			})
		case injected:
			s.logger.Info("Captcha solution injected, waiting for redirect", map[string]interface{}{})
		}
	}

	s.logger.Info("Security checkpoint detected - approve the login from your device", map[string]interface{}{
		"timeout": timeout.String(),
	})

	for poll := 0; time.Now().Before(deadline); poll++ {
		if err := sleepCtx(ctx, checkpointPoll); err != nil {
			return err
		}

		url := s.CurrentURL()
		if strings.Contains(url, "feed") || strings.Contains(url, "/jobs") {
			s.logger.Info("Security checkpoint resolved", map[string]interface{}{})
			return nil
		}

		// Remind the operator every 30 seconds
		if poll > 0 && poll%6 == 0 {
			s.logger.Info("Still waiting for verification", map[string]interface{}{
				"remaining": utils.FormatDuration(time.Until(deadline)),
			})
		}
	}

	return utils.NewCaptchaError(fmt.Sprintf("security check not resolved within %s", timeout))
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
