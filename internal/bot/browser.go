package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/internal/logging/types"
)

const screenshotQuality = 90

// Session owns the single browser the bot drives for a whole campaign.
// LinkedIn ties the login to the browser fingerprint, so exactly one
// browser and one page stay alive at a time.
type Session struct {
	Browser *rod.Browser
	Page    *rod.Page

	config   *config.Config
	launcher *launcher.Launcher
	logger   types.Logger
}

// NewSession launches the browser and prepares a stealth page.
func NewSession(cfg *config.Config) (*Session, error) {
	logger := logging.GetGlobalLogger()

	// Setup launcher with stealth mode and critical Docker flags
	l := launcher.New().
		Headless(cfg.Browser.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-background-timer-throttling").    // Prevent render delays
		Set("disable-backgrounding-occluded-windows"). // Keep rendering active
		Set("disable-renderer-backgrounding").         // Prevent background throttling
		Set("disable-gpu").          // Essential: prevents GPU context failures in Docker
		Set("disable-dev-shm-usage") // Essential: overcomes Docker shared memory limitations

	// Use system-installed Chrome/Chromium instead of downloading
	if chromePath := systemChromePath(cfg.Browser.ChromePath); chromePath != "" {
		l = l.Bin(chromePath)
		logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		logger.Warn("System Chrome not found, Rod will download browser", map[string]interface{}{})
	}

	if cfg.Browser.UserAgent != "" {
		l = l.Set("user-agent", cfg.Browser.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{
		Browser:  browser,
		config:   cfg,
		launcher: l,
		logger:   logger,
	}

	page, err := s.createPage()
	if err != nil {
		browser.MustClose()
		l.Cleanup()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.Page = page

	logger.Info("Browser session started", map[string]interface{}{
		"headless": cfg.Browser.Headless,
		"stealth":  cfg.Browser.StealthMode,
	})
	return s, nil
}

// createPage creates the session page, with stealth mode when configured.
func (s *Session) createPage() (*rod.Page, error) {
	var page *rod.Page
	var err error

	if s.config.Browser.StealthMode {
		page, err = stealth.Page(s.Browser)
		if err != nil {
			return nil, fmt.Errorf("failed to create stealth page: %w", err)
		}
	} else {
		page, err = s.Browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	// Set viewport to common desktop resolution
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		s.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if s.config.Browser.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: s.config.Browser.UserAgent,
		})
		if err != nil {
			s.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Set additional headers to appear more human-like
	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
	}

	for name, value := range headers {
		if _, err := page.SetExtraHeaders([]string{name, value}); err != nil {
			s.logger.Debug("Failed to set header", map[string]interface{}{
				"error":  err.Error(),
				"header": name,
			})
		}
	}

	if s.config.Browser.StealthMode {
		s.injectStealthScript(page)
	}

	return page, nil
}

// injectStealthScript masks the most common automation fingerprints that
// survive the stealth library defaults.
func (s *Session) injectStealthScript(page *rod.Page) {
	err := rod.Try(func() {
		page.MustEval(`() => {
			// Override webdriver property
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined,
			});

			// Override automation-related properties
			Object.defineProperty(navigator, 'plugins', {
				get: () => [1, 2, 3, 4, 5],
			});

			Object.defineProperty(navigator, 'languages', {
				get: () => ['en-US', 'en'],
			});

			// Override chrome property
			window.chrome = {
				runtime: {},
			};

			// Override permissions
			const originalQuery = window.navigator.permissions.query;
			window.navigator.permissions.query = (parameters) => (
				parameters.name === 'notifications' ?
					Promise.resolve({ state: Notification.permission }) :
					originalQuery(parameters)
			);

			// Pin screen properties to the configured viewport
			Object.defineProperty(screen, 'width', {
				get: () => 1920,
			});
			Object.defineProperty(screen, 'height', {
				get: () => 1080,
			});
			Object.defineProperty(screen, 'availWidth', {
				get: () => 1920,
			});
			Object.defineProperty(screen, 'availHeight', {
				get: () => 1050,
			});

			// Override WebRTC
			let RTCPeerConnection = window.RTCPeerConnection || window.mozRTCPeerConnection || window.webkitRTCPeerConnection;
			if (RTCPeerConnection) {
				window.RTCPeerConnection = function() {
					throw new Error('WebRTC is disabled');
				};
			}
		}`)
	})
	if err != nil {
		s.logger.Warn("Failed to inject stealth JavaScript", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Navigate navigates the page to the specified URL with timeout.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := rod.Try(func() {
		s.Page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	s.logger.Debug("Successfully navigated to URL", map[string]interface{}{
		"url": url,
	})
	return nil
}

// WaitForSelector waits for an element to appear on the page.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := rod.Try(func() {
		s.Page.Context(waitCtx).MustElement(selector)
	})
	if err != nil {
		return fmt.Errorf("element with selector '%s' not found within timeout: %w", selector, err)
	}
	return nil
}

// HTML returns the full HTML content of the current page.
func (s *Session) HTML() (string, error) {
	html, err := s.Page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

// CurrentURL returns the URL the page is on right now.
func (s *Session) CurrentURL() string {
	var url string
	err := rod.Try(func() {
		url = s.Page.MustInfo().URL
	})
	if err != nil {
		return ""
	}
	return url
}

// Screenshot captures the current page as a JPEG for failure diagnostics.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	captureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	quality := screenshotQuality
	data, err := s.Page.Context(captureCtx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Debug("Screenshot captured", map[string]interface{}{
		"path": path,
		"size": len(data),
	})
	return nil
}

// SimulateHumanBehavior drives mouse, keyboard and scroll activity to help
// resolve bot checks before interacting with the page.
func (s *Session) SimulateHumanBehavior() error {
	err := rod.Try(func() {
		viewport := s.Page.MustEval(`() => ({
			width: window.innerWidth,
			height: window.innerHeight
		})`)

		width := int(viewport.Get("width").Num())
		height := int(viewport.Get("height").Num())

		// Mouse movements with curves rather than straight jumps
		for i := 0; i < 5; i++ {
			startX := 100 + (i * 50) + (i % 3 * 100)
			startY := 100 + (i * 30) + (i % 2 * 150)
			endX := startX + 50 + (i * 20)
			endY := startY + 30 + (i * 25)

			if startX < width && startY < height && endX < width && endY < height {
				s.Page.Mouse.MustMoveTo(float64(startX), float64(startY))
				time.Sleep(time.Duration(200+i*100) * time.Millisecond)

				midX := (startX + endX) / 2
				midY := (startY + endY) / 2
				s.Page.Mouse.MustMoveTo(float64(midX), float64(midY))
				time.Sleep(time.Duration(100+i*50) * time.Millisecond)
				s.Page.Mouse.MustMoveTo(float64(endX), float64(endY))
				time.Sleep(time.Duration(300+i*100) * time.Millisecond)
			}
		}

		// Keyboard activity
		s.Page.MustEval(`() => {
			document.body.focus();
			const events = ['keydown', 'keyup'];
			events.forEach(event => {
				document.dispatchEvent(new KeyboardEvent(event, {key: 'Tab'}));
			});
		}`)
		time.Sleep(500 * time.Millisecond)

		// Varied scrolling patterns
		s.Page.MustEval(`() => {
			window.scrollTo({top: 200, behavior: 'smooth'});
			setTimeout(() => {
				window.scrollTo({top: 50, behavior: 'smooth'});
			}, 800);
			setTimeout(() => {
				window.scrollTo({top: 0, behavior: 'smooth'});
			}, 1600);
		}`)
		time.Sleep(2 * time.Second)

		// Focus and visibility events
		s.Page.MustEval(`() => {
			window.dispatchEvent(new Event('focus'));
			setTimeout(() => {
				window.dispatchEvent(new Event('blur'));
			}, 200);
			setTimeout(() => {
				window.dispatchEvent(new Event('focus'));
			}, 400);

			document.dispatchEvent(new Event('visibilitychange'));
		}`)

		// Let any JavaScript challenges complete
		time.Sleep(3 * time.Second)
	})
	if err != nil {
		return fmt.Errorf("failed to simulate human behavior: %w", err)
	}

	s.logger.Debug("Human behavior simulation completed")
	return nil
}

// InjectCaptchaSolution injects a solved reCAPTCHA token into the page and
// submits the surrounding form.
func (s *Session) InjectCaptchaSolution(solution string) error {
	js := fmt.Sprintf(`
		// Set the reCAPTCHA response token
		if (window.grecaptcha && typeof window.grecaptcha.getResponse === 'function') {
			document.getElementById('g-recaptcha-response').innerHTML = '%s';

			let recaptchaElement = document.querySelector('.g-recaptcha');
			if (recaptchaElement) {
				let callback = recaptchaElement.getAttribute('data-callback');
				if (callback && typeof window[callback] === 'function') {
					window[callback]('%s');
				}
			}
		}

		// For reCAPTCHA invisible or v3
		let responseElements = document.querySelectorAll('[name="g-recaptcha-response"]');
		for (let element of responseElements) {
			element.value = '%s';
			element.innerHTML = '%s';
		}

		// Try to submit the form automatically
		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.g-recaptcha') || form.querySelector('[name="g-recaptcha-response"]')) {
				form.submit();
				break;
			}
		}

		// Also try clicking submit buttons
		let submitButtons = document.querySelectorAll('input[type="submit"], button[type="submit"], button');
		for (let button of submitButtons) {
			if (button.textContent.toLowerCase().includes('submit') ||
				button.textContent.toLowerCase().includes('continue') ||
				button.value && button.value.toLowerCase().includes('submit')) {
				button.click();
				break;
			}
		}
	`, solution, solution, solution, solution)

	err := rod.Try(func() {
		s.Page.MustEval(js)
	})
	if err != nil {
		return fmt.Errorf("failed to inject captcha solution: %w", err)
	}

	s.logger.Debug("Captcha solution injected successfully")
	return nil
}

// InjectTurnstileSolution injects a solved Cloudflare Turnstile token into
// the page and submits the surrounding form.
func (s *Session) InjectTurnstileSolution(solution string) error {
	js := fmt.Sprintf(`
		// Set the Turnstile response token
		if (window.turnstile && typeof window.turnstile.reset === 'function') {
			let turnstileElements = document.querySelectorAll('[data-sitekey]');
			for (let element of turnstileElements) {
				if (element.closest('.cf-turnstile') || element.classList.contains('cf-turnstile')) {
					let responseInput = element.querySelector('input[name="cf-turnstile-response"]');
					if (responseInput) {
						responseInput.value = '%s';
					} else {
						responseInput = document.createElement('input');
						responseInput.type = 'hidden';
						responseInput.name = 'cf-turnstile-response';
						responseInput.value = '%s';
						element.appendChild(responseInput);
					}

					let callback = element.getAttribute('data-callback');
					if (callback && typeof window[callback] === 'function') {
						window[callback]('%s');
					}
					break;
				}
			}
		}

		// Also check for any hidden inputs with turnstile-related names
		let responseElements = document.querySelectorAll('input[name*="turnstile"], input[name*="cf-turnstile"]');
		for (let element of responseElements) {
			element.value = '%s';
		}

		// Try to submit the form automatically
		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.cf-turnstile') || form.querySelector('[data-sitekey]') || form.querySelector('input[name*="turnstile"]')) {
				form.submit();
				break;
			}
		}

		// Also try clicking submit buttons
		let submitButtons = document.querySelectorAll('input[type="submit"], button[type="submit"], button');
		for (let button of submitButtons) {
			if (button.textContent.toLowerCase().includes('submit') ||
				button.textContent.toLowerCase().includes('continue') ||
				button.textContent.toLowerCase().includes('verify') ||
				button.value && button.value.toLowerCase().includes('submit')) {
				button.click();
				break;
			}
		}
	`, solution, solution, solution, solution)

	err := rod.Try(func() {
		s.Page.MustEval(js)
	})
	if err != nil {
		return fmt.Errorf("failed to inject Turnstile solution: %w", err)
	}

	s.logger.Debug("Turnstile solution injected successfully")
	return nil
}

// IsHealthy reports whether the browser still responds to commands.
func (s *Session) IsHealthy() bool {
	err := rod.Try(func() {
		s.Browser.MustPages()
	})
	return err == nil
}

// Close shuts the page, browser and launcher down.
func (s *Session) Close() {
	if s.Page != nil {
		_ = rod.Try(func() {
			s.Page.MustClose()
		})
	}
	if s.Browser != nil && s.IsHealthy() {
		s.Browser.MustClose()
	}
	s.launcher.Cleanup()
	s.logger.Info("Browser session closed", map[string]interface{}{})
}

// systemChromePath finds a Chrome/Chromium binary, preferring the configured
// path, then environment overrides, then the usual install locations.
func systemChromePath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",                                        // Alpine Linux (Docker)
		"/usr/bin/chromium",                                                // Some Linux distros
		"/usr/bin/google-chrome",                                           // Google Chrome on Linux
		"/usr/bin/google-chrome-stable",                                    // Google Chrome stable
		"/opt/google/chrome/chrome",                                        // Alternative Chrome path
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",     // macOS
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",       // Windows
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe", // Windows 32-bit
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
