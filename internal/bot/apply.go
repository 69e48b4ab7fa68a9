package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"autoapply/pkg/models"
)

const (
	easyApplyModalSelector = "div[data-test-modal-id='easy-apply-modal']"
	descriptionSelector    = "div.jobs-description"

	// Bound on Next clicks so a misbehaving modal cannot loop forever
	maxModalSteps = 10
	spinnerWait   = 10 * time.Second
)

// Apply-button fallbacks, most specific first. The XPath entries catch
// layouts where the button classes changed but the text did not.
var (
	easyApplyButtonSelectors = []string{
		"button.jobs-apply-button",
		"button[aria-label*='Easy Apply']",
		"button.jobs-apply-button--top-card",
		"button[data-control-name='jobdetails_topcard_inapply']",
		".jobs-apply-button--top-card button",
		".jobs-s-apply button",
	}
	easyApplyButtonXPaths = []string{
		"//button[contains(@class, 'jobs-apply-button')]",
		"//button[contains(text(), 'Easy Apply')]",
	}
	spinnerSelectors = []string{
		"div.artdeco-loader",
		"div.artdeco-modal__loader",
		"div.loading-icon",
		"div.loading-animation",
	}
	successMarkers = []string{
		"application was sent",
		"application sent",
		"successfully submitted",
	}
)

// AnswerSource supplies values for questionnaire fields. An empty string
// means the source cannot answer and the field should be left alone.
type AnswerSource interface {
	SuggestAnswer(ctx context.Context, question, fieldType string, options []string) string
}

// ApplyOutcome is what one apply attempt produced.
type ApplyOutcome struct {
	Status   models.ApplicationStatus
	Reason   string
	Answered int
	Fields   []models.FormField
}

// ApplyToListing runs the Easy Apply flow for one listing: open it, click
// Easy Apply, walk the modal steps filling fields, submit. Listings without
// an Easy Apply button are skipped; a required question the answer source
// cannot fill aborts with the application discarded.
func (s *Session) ApplyToListing(ctx context.Context, listing models.JobListing, answers AnswerSource, pacer *Pacer) ApplyOutcome {
	if err := s.openListing(ctx, listing, pacer); err != nil {
		s.captureFailure(ctx, listing.ID)
		return ApplyOutcome{
			Status: models.StatusError,
			Reason: fmt.Sprintf("failed to open listing: %v", err),
		}
	}
	return s.applyCurrent(ctx, listing, answers, pacer)
}

// applyCurrent runs the Easy Apply flow assuming the listing detail pane is
// already open. The campaign loop opens listings itself so it can run the
// fit analysis before committing to an application.
func (s *Session) applyCurrent(ctx context.Context, listing models.JobListing, answers AnswerSource, pacer *Pacer) ApplyOutcome {
	outcome := ApplyOutcome{Status: models.StatusFailed}

	button, kind := s.findApplyButton(ctx)
	switch kind {
	case applyButtonNone:
		outcome.Status = models.StatusSkipped
		outcome.Reason = "no apply button found"
		return outcome
	case applyButtonExternal:
		outcome.Status = models.StatusSkipped
		outcome.Reason = "external application, no Easy Apply"
		return outcome
	}

	if err := clickElement(button); err != nil {
		outcome.Reason = fmt.Sprintf("failed to click Easy Apply: %v", err)
		s.captureFailure(ctx, listing.ID)
		return outcome
	}

	if err := s.WaitForSelector(ctx, easyApplyModalSelector, s.config.LinkedIn.PageTimeout); err != nil {
		outcome.Reason = "apply modal did not open"
		s.captureFailure(ctx, listing.ID)
		return outcome
	}

	for step := 1; step <= maxModalSteps; step++ {
		if err := ctx.Err(); err != nil {
			outcome.Status = models.StatusError
			outcome.Reason = err.Error()
			s.dismissModal(ctx)
			return outcome
		}

		s.waitForSpinner(ctx)

		modal, err := s.applyModal(ctx)
		if err != nil {
			// Modal gone after a submit click means the flow finished
			if s.applicationSucceeded() {
				outcome.Status = models.StatusApplied
				return outcome
			}
			outcome.Reason = "apply modal disappeared mid-flow"
			return outcome
		}

		answered, fields, fillErr := s.fillModalStep(ctx, modal, answers, pacer)
		outcome.Answered += answered
		outcome.Fields = append(outcome.Fields, fields...)
		if fillErr != nil {
			outcome.Reason = fillErr.Error()
			s.captureFailure(ctx, listing.ID)
			s.dismissModal(ctx)
			return outcome
		}

		if s.clickSubmit(modal) {
			_ = pacer.PageSettle(ctx)
			if s.applicationSucceeded() {
				s.logger.Info("Application submitted", map[string]interface{}{
					"job_id": listing.ID,
					"title":  listing.Title,
					"steps":  step,
				})
				outcome.Status = models.StatusApplied
				s.dismissModal(ctx)
				return outcome
			}
			// Submit clicked but no confirmation: modal closing is the
			// only other signal the application went through
			if _, err := s.applyModal(ctx); err != nil {
				outcome.Status = models.StatusApplied
				return outcome
			}
			outcome.Reason = "submit clicked but no confirmation appeared"
			s.captureFailure(ctx, listing.ID)
			s.dismissModal(ctx)
			return outcome
		}

		if !s.clickNext(modal) {
			outcome.Reason = "no actionable button in apply modal"
			s.captureFailure(ctx, listing.ID)
			s.dismissModal(ctx)
			return outcome
		}

		if err := pacer.FormPause(ctx); err != nil {
			outcome.Status = models.StatusError
			outcome.Reason = err.Error()
			s.dismissModal(ctx)
			return outcome
		}
	}

	outcome.Reason = fmt.Sprintf("apply modal did not finish within %d steps", maxModalSteps)
	s.captureFailure(ctx, listing.ID)
	s.dismissModal(ctx)
	return outcome
}

// openListing brings the job detail pane up, preferring a click on the
// result card so the search context survives, with direct navigation and a
// "Page not found" recovery as fallbacks.
func (s *Session) openListing(ctx context.Context, listing models.JobListing, pacer *Pacer) error {
	clicked := false
	_ = rod.Try(func() {
		links := s.Page.Timeout(cardFieldTimeout).MustElements("a.job-card-container__link, a.job-card-list__title")
		for _, link := range links {
			href := link.MustAttribute("href")
			if href != nil && listing.ID != "" && strings.Contains(*href, listing.ID) {
				if err := clickElement(link); err == nil {
					clicked = true
				}
				break
			}
		}
	})

	if !clicked {
		if err := s.Navigate(ctx, listing.URL, s.config.LinkedIn.PageTimeout); err != nil {
			return err
		}
	}
	if err := pacer.PageSettle(ctx); err != nil {
		return err
	}

	if s.isPageNotFound() {
		s.logger.Warn("Listing page not found, recovering", map[string]interface{}{
			"job_id": listing.ID,
		})
		if err := s.recoverFromNotFound(ctx); err != nil {
			return err
		}
		return fmt.Errorf("listing page not found")
	}

	return s.WaitForSelector(ctx, descriptionSelector, s.config.LinkedIn.PageTimeout)
}

// isPageNotFound detects LinkedIn's 404 interstitial.
func (s *Session) isPageNotFound() bool {
	html, err := s.HTML()
	if err != nil {
		return false
	}
	lower := strings.ToLower(html)
	return strings.Contains(lower, "page not found") || strings.Contains(lower, "page doesn't exist")
}

// recoverFromNotFound returns to a known page via the feed link, falling
// back to direct jobs navigation.
func (s *Session) recoverFromNotFound(ctx context.Context) error {
	err := rod.Try(func() {
		s.Page.Timeout(cardFieldTimeout).MustElement("a[href*='/feed/']").MustClick()
	})
	if err == nil {
		return nil
	}
	return s.Navigate(ctx, s.config.LinkedIn.BaseURL+"/jobs/", s.config.LinkedIn.PageTimeout)
}

type applyButtonKind int

const (
	applyButtonNone applyButtonKind = iota
	applyButtonEasy
	applyButtonExternal
)

// findApplyButton locates the apply button and classifies it. A button whose
// text or label never mentions "Easy Apply" sends the candidate to an
// external site, which this flow does not handle.
func (s *Session) findApplyButton(ctx context.Context) (*rod.Element, applyButtonKind) {
	var button *rod.Element

	for _, selector := range easyApplyButtonSelectors {
		_ = rod.Try(func() {
			button = s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElement(selector)
		})
		if button != nil {
			break
		}
	}
	if button == nil {
		for _, xpath := range easyApplyButtonXPaths {
			_ = rod.Try(func() {
				button = s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElementX(xpath)
			})
			if button != nil {
				break
			}
		}
	}
	if button == nil {
		return nil, applyButtonNone
	}

	var text, label string
	_ = rod.Try(func() {
		text = strings.ToLower(button.MustText())
		if l := button.MustAttribute("aria-label"); l != nil {
			label = strings.ToLower(*l)
		}
	})
	if strings.Contains(text, "easy apply") || strings.Contains(label, "easy apply") {
		return button, applyButtonEasy
	}
	return button, applyButtonExternal
}

// applyModal returns the live Easy Apply modal element.
func (s *Session) applyModal(ctx context.Context) (*rod.Element, error) {
	var modal *rod.Element
	err := rod.Try(func() {
		modal = s.Page.Context(ctx).Timeout(cardFieldTimeout).MustElement(easyApplyModalSelector)
	})
	if err != nil {
		return nil, fmt.Errorf("apply modal not present: %w", err)
	}
	return modal, nil
}

// waitForSpinner blocks while a loading overlay covers the modal.
func (s *Session) waitForSpinner(ctx context.Context) {
	deadline := time.Now().Add(spinnerWait)
	for time.Now().Before(deadline) {
		visible := false
		for _, selector := range spinnerSelectors {
			if has, _, err := s.Page.Has(selector); err == nil && has {
				visible = true
				break
			}
		}
		if !visible {
			return
		}
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return
		}
	}
}

// fillModalStep fills every answerable field on the current modal step.
// Radio groups are handled as grouped questions first, then the remaining
// inputs individually. A required field with no answer fails the step.
func (s *Session) fillModalStep(ctx context.Context, modal *rod.Element, answers AnswerSource, pacer *Pacer) (int, []models.FormField, error) {
	answered := 0
	var fields []models.FormField

	groupAnswered, groupFields, err := s.fillRadioGroups(ctx, modal, answers, pacer)
	answered += groupAnswered
	fields = append(fields, groupFields...)
	if err != nil {
		return answered, fields, err
	}

	var inputs rod.Elements
	_ = rod.Try(func() {
		inputs = modal.Timeout(cardFieldTimeout).MustElements("input, select, textarea, div[role='textbox']")
	})

	for _, el := range inputs {
		field, filled, err := s.fillField(ctx, el, answers)
		if err != nil {
			return answered, fields, err
		}
		if !filled {
			continue
		}
		answered++
		fields = append(fields, field)
		if err := pacer.FormPause(ctx); err != nil {
			return answered, fields, err
		}
	}

	return answered, fields, nil
}

// fillRadioGroups answers the screening questions rendered as radio groups.
func (s *Session) fillRadioGroups(ctx context.Context, modal *rod.Element, answers AnswerSource, pacer *Pacer) (int, []models.FormField, error) {
	var groups rod.Elements
	_ = rod.Try(func() {
		groups = modal.Timeout(cardFieldTimeout).MustElements("div.jobs-easy-apply-form-section__grouping")
	})

	answered := 0
	var fields []models.FormField

	for _, group := range groups {
		var radioLabels rod.Elements
		_ = rod.Try(func() {
			radioLabels = group.Timeout(cardFieldTimeout).MustElements("input[type='radio'] + label")
		})
		if len(radioLabels) == 0 {
			continue
		}

		question := ""
		_ = rod.Try(func() {
			question = strings.TrimSpace(group.Timeout(cardFieldTimeout).
				MustElement("label, legend, span.jobs-easy-apply-form-element__label").MustText())
		})
		if question == "" {
			continue
		}

		// Skip groups already answered on a previous pass of this step
		alreadyChecked := false
		_ = rod.Try(func() {
			alreadyChecked = group.MustEval(`() => !!this.querySelector("input[type='radio']:checked")`).Bool()
		})
		if alreadyChecked {
			continue
		}

		options := make([]string, 0, len(radioLabels))
		for _, radioLabel := range radioLabels {
			_ = rod.Try(func() {
				options = append(options, strings.TrimSpace(radioLabel.MustText()))
			})
		}

		answer := answers.SuggestAnswer(ctx, question, "radio", options)
		if answer == "" {
			return answered, fields, fmt.Errorf("unanswered required question: %s", question)
		}

		choice := radioLabels[0]
		for i, option := range options {
			if strings.EqualFold(option, answer) || strings.Contains(strings.ToLower(answer), strings.ToLower(option)) {
				choice = radioLabels[i]
				break
			}
		}
		if err := clickElement(choice); err != nil {
			return answered, fields, fmt.Errorf("failed to select option for %q: %w", question, err)
		}

		answered++
		fields = append(fields, models.FormField{
			Label:   question,
			Type:    "radio",
			Value:   answer,
			Options: options,
		})
		if err := pacer.FormPause(ctx); err != nil {
			return answered, fields, err
		}
	}

	return answered, fields, nil
}

// fillField handles one non-radio input. Prefilled fields and fields the
// answer source cannot fill are left alone unless they are required.
func (s *Session) fillField(ctx context.Context, el *rod.Element, answers AnswerSource) (models.FormField, bool, error) {
	var field models.FormField

	kind := ""
	_ = rod.Try(func() {
		kind = strings.ToLower(el.MustEval(`() => {
			if (this.tagName === 'SELECT') return 'select';
			if (this.tagName === 'TEXTAREA') return 'textarea';
			if (this.getAttribute('role') === 'textbox') return 'textbox';
			return (this.getAttribute('type') || 'text');
		}`).Str())
	})

	switch kind {
	case "", "hidden", "file", "button", "submit", "radio", "image", "reset":
		return field, false, nil
	}

	prefilled := false
	_ = rod.Try(func() {
		prefilled = el.MustEval(`() => {
			if (this.tagName === 'SELECT') return this.selectedIndex > 0;
			if (this.type === 'checkbox') return this.checked;
			return (this.value || this.innerText || '').trim() !== '';
		}`).Bool()
	})
	if prefilled {
		return field, false, nil
	}

	label := ""
	_ = rod.Try(func() {
		label = strings.TrimSpace(el.MustEval(`() => {
			if (this.id) {
				const forLabel = document.querySelector('label[for="' + this.id + '"]');
				if (forLabel) return forLabel.innerText;
			}
			const wrapper = this.closest('.jobs-easy-apply-form-element, .fb-dash-form-element, .jobs-easy-apply-form-section__grouping, .form-group');
			if (wrapper) {
				const wrapped = wrapper.querySelector('label, span.jobs-easy-apply-form-element__label');
				if (wrapped) return wrapped.innerText;
			}
			return this.getAttribute('aria-label') || this.getAttribute('placeholder') || this.getAttribute('name') || '';
		}`).Str())
	})
	if label == "" {
		return field, false, nil
	}

	required := false
	_ = rod.Try(func() {
		required = el.MustEval(`() => this.required || this.getAttribute('aria-required') === 'true'`).Bool()
	})

	var options []string
	if kind == "select" {
		_ = rod.Try(func() {
			raw := el.MustEval(`() => Array.from(this.options || []).map(o => o.text.trim())`)
			for _, option := range raw.Arr() {
				if text := option.Str(); text != "" {
					options = append(options, text)
				}
			}
		})
	}

	if kind == "checkbox" {
		// Checkboxes are consents; only tick the ones the form insists on
		if !required {
			return field, false, nil
		}
		if err := clickElement(el); err != nil {
			return field, false, fmt.Errorf("failed to check %q: %w", label, err)
		}
		return models.FormField{Label: label, Type: kind, Value: "checked"}, true, nil
	}

	answer := answers.SuggestAnswer(ctx, label, kind, options)
	if answer == "" {
		if required {
			return field, false, fmt.Errorf("unanswered required question: %s", label)
		}
		return field, false, nil
	}

	if err := s.enterValue(el, kind, answer); err != nil {
		if required {
			return field, false, fmt.Errorf("failed to fill %q: %w", label, err)
		}
		s.logger.Debug("Skipped unfillable field", map[string]interface{}{
			"label": label,
			"error": err.Error(),
		})
		return field, false, nil
	}

	return models.FormField{Label: label, Type: kind, Value: answer, Options: options}, true, nil
}

// enterValue writes the answer into the element according to its kind.
func (s *Session) enterValue(el *rod.Element, kind, answer string) error {
	switch kind {
	case "select":
		return el.Select([]string{answer}, true, rod.SelectorTypeText)
	case "textbox":
		// contenteditable has no value property, type through the page
		return rod.Try(func() {
			el.MustClick()
			s.Page.MustInsertText(answer)
		})
	default:
		return rod.Try(func() {
			el.MustSelectAllText().MustInput(answer)
		})
	}
}

// clickSubmit clicks the final submit button when present.
func (s *Session) clickSubmit(modal *rod.Element) bool {
	if el, ok := findButton(modal, "button[aria-label='Submit application']"); ok {
		return clickElement(el) == nil
	}
	if el, ok := findButtonWithText(modal, "button[type='submit']", "submit"); ok {
		return clickElement(el) == nil
	}
	return false
}

// clickNext advances the modal to its next step.
func (s *Session) clickNext(modal *rod.Element) bool {
	for _, selector := range []string{
		"button[aria-label*='Continue to next step']",
		"button[aria-label*='Next']",
		"button[aria-label*='Review your application']",
	} {
		if el, ok := findButton(modal, selector); ok {
			return clickElement(el) == nil
		}
	}
	if el, ok := findButtonWithText(modal, "button[type='button'], footer button", "next", "continue", "review"); ok {
		return clickElement(el) == nil
	}
	return false
}

// findButton returns the first element for selector inside modal.
func findButton(modal *rod.Element, selector string) (*rod.Element, bool) {
	var el *rod.Element
	err := rod.Try(func() {
		el = modal.Timeout(cardFieldTimeout).MustElement(selector)
	})
	return el, err == nil && el != nil
}

// findButtonWithText returns the first button under selector whose visible
// text contains any needle.
func findButtonWithText(modal *rod.Element, selector string, needles ...string) (*rod.Element, bool) {
	var found *rod.Element
	_ = rod.Try(func() {
		buttons := modal.Timeout(cardFieldTimeout).MustElements(selector)
		for _, button := range buttons {
			text := strings.ToLower(button.MustText())
			for _, needle := range needles {
				if strings.Contains(text, needle) {
					found = button
					return
				}
			}
		}
	})
	return found, found != nil
}

// applicationSucceeded looks for LinkedIn's confirmation text.
func (s *Session) applicationSucceeded() bool {
	html, err := s.HTML()
	if err != nil {
		return false
	}
	lower := strings.ToLower(html)
	for _, marker := range successMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dismissModal closes whatever modal is open, confirming the discard prompt
// when LinkedIn asks whether to throw the draft application away.
func (s *Session) dismissModal(ctx context.Context) {
	_ = rod.Try(func() {
		s.Page.Timeout(cardFieldTimeout).MustElement("button[aria-label='Dismiss']").MustClick()
	})

	// Discard confirmation only appears for partially filled applications
	_ = sleepCtx(ctx, time.Second)
	discarded := false
	_ = rod.Try(func() {
		s.Page.Timeout(cardFieldTimeout).
			MustElement("button[data-control-name='discard_application_confirm_btn']").MustClick()
		discarded = true
	})
	if discarded {
		return
	}
	_ = rod.Try(func() {
		buttons := s.Page.Timeout(cardFieldTimeout).MustElements("div.artdeco-modal button")
		for _, button := range buttons {
			if strings.Contains(strings.ToLower(button.MustText()), "discard") {
				button.MustClick()
				return
			}
		}
	})
}

// clickElement clicks via JS first, which works on elements covered by
// overlays, then falls back to a real mouse click.
func clickElement(el *rod.Element) error {
	if err := rod.Try(func() {
		el.MustEval(`() => this.click()`)
	}); err == nil {
		return nil
	}
	return rod.Try(func() {
		el.MustClick()
	})
}

// captureFailure saves a screenshot next to the store for later diagnosis.
func (s *Session) captureFailure(ctx context.Context, jobID string) {
	if jobID == "" {
		jobID = "unknown"
	}
	path := filepath.Join(filepath.Dir(s.config.Store.Path), "screenshots",
		fmt.Sprintf("%s-%d.jpg", sanitizeFileName(jobID), time.Now().Unix()))
	if err := s.Screenshot(ctx, path); err != nil {
		s.logger.Debug("Failed to capture failure screenshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// sanitizeFileName keeps job identifiers filesystem-safe; URL fallback IDs
// carry slashes and colons.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_")
	name = replacer.Replace(name)
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
