package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/internal/logging/types"
	"autoapply/pkg/models"
	"autoapply/pkg/utils"
)

// Advisor is the AI help a campaign needs: job details, a fit verdict and
// questionnaire answers.
type Advisor interface {
	AnswerSource
	ExtractJobDetails(ctx context.Context, html string) (string, string)
	AnalyzeJob(ctx context.Context, details models.JobDetails) (bool, string)
}

// ApplicationStore persists outcomes and suppresses duplicate applications.
type ApplicationStore interface {
	IsApplied(ctx context.Context, jobID string) bool
	RecordApplication(ctx context.Context, result models.ApplicationResult) error
	RecordFormField(ctx context.Context, jobID string, field models.FormField) error
	RecordAttempt(ctx context.Context, jobID string, status models.ApplicationStatus, detail string) error
}

// Notifier delivers one application result to an external listener.
type Notifier interface {
	NotifyResult(ctx context.Context, result models.ApplicationResult)
}

// RunStats is a snapshot of campaign progress served by the status server.
type RunStats struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Keywords  string    `json:"keywords"`
	Location  string    `json:"location"`
	Collected int       `json:"collected"`
	Processed int       `json:"processed"`
	Applied   int       `json:"applied"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Errors    int       `json:"errors"`
	Current   string    `json:"current_job,omitempty"`
	Running   bool      `json:"running"`
}

// Runner drives one application campaign end to end.
type Runner struct {
	config   *config.Config
	session  *Session
	advisor  Advisor
	store    ApplicationStore
	notifier Notifier
	solver   CaptchaSolver
	pacer    *Pacer
	logger   types.Logger

	mu    sync.RWMutex
	stats RunStats
}

// NewRunner wires a campaign. The notifier may be nil.
func NewRunner(cfg *config.Config, session *Session, advisor Advisor, store ApplicationStore, notifier Notifier, solver CaptchaSolver) *Runner {
	return &Runner{
		config:   cfg,
		session:  session,
		advisor:  advisor,
		store:    store,
		notifier: notifier,
		solver:   solver,
		pacer:    NewPacer(),
		logger:   logging.GetGlobalLogger(),
		stats: RunStats{
			RunID:    utils.GenerateRequestID(),
			Keywords: cfg.LinkedIn.SearchKeywords,
			Location: cfg.LinkedIn.SearchLocation,
		},
	}
}

// Stats returns a copy of the current campaign stats.
func (r *Runner) Stats() RunStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *Runner) updateStats(fn func(*RunStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}

// Run logs in, searches, and processes every collected listing in order.
// Listing-level failures are recorded and skipped; only login, search, or
// cancellation abort the campaign.
func (r *Runner) Run(ctx context.Context) error {
	r.updateStats(func(st *RunStats) {
		st.StartedAt = time.Now().UTC()
		st.Running = true
	})
	defer r.updateStats(func(st *RunStats) {
		st.Running = false
		st.Current = ""
	})

	started := time.Now()
	r.logger.Info("Campaign starting", map[string]interface{}{
		"run_id":   r.stats.RunID,
		"keywords": r.config.LinkedIn.SearchKeywords,
		"location": r.config.LinkedIn.SearchLocation,
		"max_jobs": r.config.LinkedIn.MaxJobs,
	})

	if err := r.session.Login(ctx, r.solver); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := r.session.SearchJobs(ctx, r.config.LinkedIn.SearchKeywords, r.config.LinkedIn.SearchLocation, r.pacer); err != nil {
		return fmt.Errorf("job search failed: %w", err)
	}

	listings, err := r.session.CollectListings(ctx, r.config.LinkedIn.MaxJobs, r.pacer)
	if err != nil {
		return fmt.Errorf("failed to collect listings: %w", err)
	}
	if len(listings) == 0 {
		r.logger.Warn("No listings collected, nothing to do", map[string]interface{}{})
		return nil
	}
	r.updateStats(func(st *RunStats) { st.Collected = len(listings) })

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, fields := r.processListing(ctx, listing)
		r.recordResult(ctx, result, fields)

		if err := r.pacer.ListingGap(ctx); err != nil {
			return err
		}
	}

	stats := r.Stats()
	r.logger.Info("Campaign finished", map[string]interface{}{
		"run_id":   stats.RunID,
		"duration": utils.FormatDuration(time.Since(started)),
		"applied":  stats.Applied,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"errors":   stats.Errors,
	})
	return nil
}

// processListing takes one listing through skip checks, the fit gate and the
// apply flow.
func (r *Runner) processListing(ctx context.Context, listing models.JobListing) (models.ApplicationResult, []models.FormField) {
	result := models.ApplicationResult{
		JobID:     listing.ID,
		Title:     listing.Title,
		Company:   listing.Company,
		Location:  listing.Location,
		URL:       listing.URL,
		Timestamp: time.Now().UTC(),
	}

	r.updateStats(func(st *RunStats) {
		st.Current = fmt.Sprintf("%s at %s", listing.Title, listing.Company)
	})

	if r.store.IsApplied(ctx, listing.ID) {
		result.Status = models.StatusSkipped
		result.Reason = "already applied"
		return result, nil
	}

	if err := r.session.openListing(ctx, listing, r.pacer); err != nil {
		result.Status = models.StatusError
		result.Reason = fmt.Sprintf("failed to open listing: %v", err)
		return result, nil
	}

	if r.config.LinkedIn.AnalyzeFit {
		details := models.JobDetails{Title: listing.Title, Company: listing.Company}
		if html, err := r.session.HTML(); err == nil {
			details.Description, details.Requirements = r.advisor.ExtractJobDetails(ctx, html)
		}

		fits, reason := r.advisor.AnalyzeJob(ctx, details)
		if !fits {
			result.Status = models.StatusSkipped
			result.Reason = fmt.Sprintf("not a fit: %s", reason)
			return result, nil
		}
		r.logger.Debug("Listing passed the fit gate", map[string]interface{}{
			"job_id": listing.ID,
			"reason": reason,
		})
	}

	outcome := r.session.applyCurrent(ctx, listing, r.advisor, r.pacer)
	result.Status = outcome.Status
	result.Reason = outcome.Reason
	result.Answered = outcome.Answered
	return result, outcome.Fields
}

// recordResult persists the outcome, fires the webhook and folds the status
// into the stats. Store failures are logged, never fatal to the campaign.
func (r *Runner) recordResult(ctx context.Context, result models.ApplicationResult, fields []models.FormField) {
	if err := r.store.RecordAttempt(ctx, result.JobID, result.Status, result.Reason); err != nil {
		r.logger.Warn("Failed to record attempt", map[string]interface{}{
			"job_id": result.JobID,
			"error":  err.Error(),
		})
	}

	for _, field := range fields {
		if err := r.store.RecordFormField(ctx, result.JobID, field); err != nil {
			r.logger.Warn("Failed to record form field", map[string]interface{}{
				"job_id": result.JobID,
				"label":  field.Label,
				"error":  err.Error(),
			})
		}
	}

	if err := r.store.RecordApplication(ctx, result); err != nil {
		r.logger.Warn("Failed to record application", map[string]interface{}{
			"job_id": result.JobID,
			"error":  err.Error(),
		})
	}

	if r.notifier != nil {
		r.notifier.NotifyResult(ctx, result)
	}

	r.updateStats(func(st *RunStats) {
		st.Processed++
		switch result.Status {
		case models.StatusApplied:
			st.Applied++
		case models.StatusSkipped:
			st.Skipped++
		case models.StatusFailed:
			st.Failed++
		case models.StatusError:
			st.Errors++
		}
	})

	r.logger.Info("Listing processed", map[string]interface{}{
		"job_id":  result.JobID,
		"title":   result.Title,
		"company": result.Company,
		"status":  string(result.Status),
		"reason":  result.Reason,
	})
}
