package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

const (
	jobCardSelector  = "div.job-card-container"
	cardFieldTimeout = 2 * time.Second
	// Consecutive scrolls that load no new cards before giving up
	maxStaleScrolls = 3
)

// Selector fallback chains for the jobs search page. LinkedIn renames
// classes between rollouts, so each control is looked up through a list.
var (
	keywordBoxSelectors = []string{
		"input[aria-label='Search by title, skill, or company']",
		"input[id*='jobs-search-box-keyword']",
		"input.jobs-search-box__text-input[aria-label*='Search by title']",
	}
	locationBoxSelectors = []string{
		"input[aria-label='City, state, or zip code']",
		"input[id*='jobs-search-box-location']",
	}
	easyApplyFilterSelectors = []string{
		"button[aria-label='Easy Apply filter.']",
		"button[aria-label*='Easy Apply filter']",
	}
	resultListSelectors = []string{
		jobCardSelector,
		".jobs-search-results-list",
		".jobs-search-results__list-item",
		".scaffold-layout__list",
	}
)

// SearchJobs opens the jobs page, runs the keyword/location search and
// narrows the results to Easy Apply listings.
func (s *Session) SearchJobs(ctx context.Context, keywords, location string, pacer *Pacer) error {
	jobsURL := s.config.LinkedIn.BaseURL + "/jobs/"
	if err := s.Navigate(ctx, jobsURL, s.config.LinkedIn.PageTimeout); err != nil {
		return err
	}
	if err := pacer.PageSettle(ctx); err != nil {
		return err
	}

	if err := s.fillSearchBox(ctx, keywordBoxSelectors, keywords, false); err != nil {
		return fmt.Errorf("keyword search box not found: %w", err)
	}
	if err := pacer.FormPause(ctx); err != nil {
		return err
	}

	if location != "" {
		if err := s.fillSearchBox(ctx, locationBoxSelectors, location, true); err != nil {
			// Keyword-only search still works, keep going
			s.logger.Warn("Location search box not found, searching by keywords only", map[string]interface{}{
				"error": err.Error(),
			})
			if err := s.pressEnter(ctx, keywordBoxSelectors); err != nil {
				return fmt.Errorf("failed to submit search: %w", err)
			}
		}
	} else {
		if err := s.pressEnter(ctx, keywordBoxSelectors); err != nil {
			return fmt.Errorf("failed to submit search: %w", err)
		}
	}

	if err := pacer.PageSettle(ctx); err != nil {
		return err
	}

	if err := s.waitForResults(ctx); err != nil {
		return fmt.Errorf("no search results appeared: %w", err)
	}

	if err := s.applyEasyApplyFilter(ctx); err != nil {
		s.logger.Warn("Easy Apply filter not applied, listings will be checked per card", map[string]interface{}{
			"error": err.Error(),
		})
	} else if err := pacer.PageSettle(ctx); err != nil {
		return err
	}

	s.logger.Info("Job search submitted", map[string]interface{}{
		"keywords": keywords,
		"location": location,
	})
	return nil
}

// fillSearchBox types text into the first matching search box. When submit is
// set the routine presses Enter afterwards to run the search.
func (s *Session) fillSearchBox(ctx context.Context, selectors []string, text string, submit bool) error {
	for _, selector := range selectors {
		err := rod.Try(func() {
			box := s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElement(selector)
			box.MustClick()
			box.MustSelectAllText().MustInput(text)
			if submit {
				box.MustType(input.Enter)
			}
		})
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("no selector matched out of %d candidates", len(selectors))
}

// pressEnter sends Enter to the first matching element.
func (s *Session) pressEnter(ctx context.Context, selectors []string) error {
	for _, selector := range selectors {
		err := rod.Try(func() {
			s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElement(selector).MustType(input.Enter)
		})
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("no selector matched out of %d candidates", len(selectors))
}

// waitForResults blocks until any result-list selector appears.
func (s *Session) waitForResults(ctx context.Context) error {
	var lastErr error
	for _, selector := range resultListSelectors {
		if err := s.WaitForSelector(ctx, selector, s.config.LinkedIn.PageTimeout); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

// applyEasyApplyFilter clicks the Easy Apply filter pill.
func (s *Session) applyEasyApplyFilter(ctx context.Context) error {
	for _, selector := range easyApplyFilterSelectors {
		if s.clickFirst(ctx, selector, cardFieldTimeout) {
			return nil
		}
	}

	// Fall back to matching the pill by its text
	clicked := false
	_ = rod.Try(func() {
		buttons := s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElements("button.search-reusables__filter-pill-button")
		for _, button := range buttons {
			if strings.Contains(strings.ToLower(button.MustText()), "easy apply") {
				button.MustClick()
				clicked = true
				break
			}
		}
	})
	if clicked {
		return nil
	}
	return fmt.Errorf("easy apply filter button not found")
}

// clickFirst clicks the first element matching selector, reporting whether a
// click happened.
func (s *Session) clickFirst(ctx context.Context, selector string, timeout time.Duration) bool {
	err := rod.Try(func() {
		s.Page.Context(ctx).Timeout(timeout).MustElement(selector).MustClick()
	})
	return err == nil
}

// CollectListings gathers job cards from the results list, scrolling to load
// more until maxJobs cards are parsed or the list stops growing.
func (s *Session) CollectListings(ctx context.Context, maxJobs int, pacer *Pacer) ([]models.JobListing, error) {
	listings := make([]models.JobListing, 0, maxJobs)
	seen := make(map[string]struct{})
	prevCount := 0
	stale := 0

	for len(listings) < maxJobs && stale < maxStaleScrolls {
		if err := ctx.Err(); err != nil {
			return listings, err
		}

		var cards rod.Elements
		err := rod.Try(func() {
			cards = s.Page.Timeout(s.config.LinkedIn.PageTimeout).MustElements(jobCardSelector)
		})
		if err != nil || len(cards) == 0 {
			break
		}

		for _, card := range cards {
			if len(listings) >= maxJobs {
				break
			}
			listing, ok := s.parseCard(card)
			if !ok {
				continue
			}
			if _, dup := seen[listing.ID]; dup {
				continue
			}
			seen[listing.ID] = struct{}{}
			listings = append(listings, listing)
		}

		if len(cards) == prevCount {
			stale++
		} else {
			stale = 0
		}
		prevCount = len(cards)

		if len(listings) < maxJobs {
			// Scrolling the last card into view triggers lazy loading
			_ = rod.Try(func() {
				cards.Last().MustScrollIntoView()
			})
			if err := pacer.Sleep(ctx, time.Second, 2*time.Second); err != nil {
				return listings, err
			}
		}
	}

	s.logger.Info("Collected job listings", map[string]interface{}{
		"count": len(listings),
	})
	return listings, nil
}

// parseCard extracts one listing from a result card. Cards without a link
// are decoration and get skipped.
func (s *Session) parseCard(card *rod.Element) (models.JobListing, bool) {
	var listing models.JobListing

	err := rod.Try(func() {
		link := card.Timeout(cardFieldTimeout).MustElement("a.job-card-container__link, a.job-card-list__title")
		if href := link.MustAttribute("href"); href != nil {
			listing.URL = absoluteURL(s.config.LinkedIn.BaseURL, *href)
		}
		listing.Title = strings.TrimSpace(link.MustText())
	})
	if err != nil || listing.URL == "" {
		return listing, false
	}

	// Company and location are nice to have, never required
	_ = rod.Try(func() {
		company := card.Timeout(cardFieldTimeout).MustElement(
			".job-card-container__primary-description, .job-card-container__company-name, .artdeco-entity-lockup__subtitle")
		listing.Company = strings.TrimSpace(company.MustText())
	})
	_ = rod.Try(func() {
		location := card.Timeout(cardFieldTimeout).MustElement(
			"li.job-card-container__metadata-item, .job-card-container__metadata-wrapper li")
		listing.Location = strings.TrimSpace(location.MustText())
	})

	listing.ID = utils.JobIdentifier(listing.URL)
	return listing, true
}

// absoluteURL resolves the relative hrefs listing cards carry.
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + href
}
