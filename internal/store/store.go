package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"autoapply/internal/logging"
	"autoapply/pkg/models"
)

// Store persists application outcomes and suppresses duplicate applications.
// Applied job IDs are mirrored in memory so the hot path of the campaign loop
// does not hit the database for every card.
type Store struct {
	db      *sql.DB
	lock    *flock.Flock
	mu      sync.RWMutex
	applied map[string]struct{}
}

// Close releases the database and the single-instance lock
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			firstErr = err
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var version int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&version); err != nil {
		return err
	}
	if version >= 1 {
		return tx.Commit()
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
  job_id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  job_url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL CHECK(status IN ('pending','skipped','applied','failed','error')),
  reason TEXT NOT NULL DEFAULT '',
  answered INTEGER NOT NULL DEFAULT 0,
  date_applied TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS form_fields (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id TEXT NOT NULL,
  field_label TEXT NOT NULL DEFAULT '',
  field_type TEXT NOT NULL DEFAULT 'text',
  field_value TEXT NOT NULL DEFAULT '',
  field_options TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS application_attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id TEXT NOT NULL,
  attempt_at TEXT NOT NULL,
  status TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT ''
);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_date_applied ON jobs(date_applied);`,
		`CREATE INDEX IF NOT EXISTS idx_form_fields_job_id ON form_fields(job_id);`,
		`CREATE INDEX IF NOT EXISTS idx_application_attempts_job_id ON application_attempts(job_id);`,
		`PRAGMA user_version = 1;`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) loadAppliedJobs() error {
	rows, err := s.db.Query(`SELECT job_id FROM jobs WHERE status = 'applied'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return err
		}
		s.applied[jobID] = struct{}{}
	}
	return rows.Err()
}

// RecordApplication upserts the outcome row for a job and keeps the applied
// set current
func (s *Store) RecordApplication(ctx context.Context, result models.ApplicationResult) error {
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO jobs (job_id, title, company, location, job_url, status, reason, answered, date_applied)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		result.JobID, result.Title, result.Company, result.Location, result.URL,
		string(result.Status), result.Reason, result.Answered, ts.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record application: %w", err)
	}

	if result.Status == models.StatusApplied {
		s.mu.Lock()
		s.applied[result.JobID] = struct{}{}
		s.mu.Unlock()
	}
	return nil
}

// IsApplied reports whether the job was already applied to. The in-memory set
// is checked first, then the database; lookup errors count as not applied so
// the campaign keeps moving.
func (s *Store) IsApplied(ctx context.Context, jobID string) bool {
	if jobID == "" {
		return false
	}

	s.mu.RLock()
	_, hit := s.applied[jobID]
	s.mu.RUnlock()
	if hit {
		return true
	}

	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = ?`, jobID).Scan(&status)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.GetGlobalLogger().Warn("Applied lookup failed, assuming not applied", map[string]interface{}{
				"job_id": jobID,
				"error":  err.Error(),
			})
		}
		return false
	}

	if status == string(models.StatusApplied) {
		s.mu.Lock()
		s.applied[jobID] = struct{}{}
		s.mu.Unlock()
		return true
	}
	return false
}

// RecordFormField logs one questionnaire field seen during an application
func (s *Store) RecordFormField(ctx context.Context, jobID string, field models.FormField) error {
	options := "[]"
	if len(field.Options) > 0 {
		if raw, err := json.Marshal(field.Options); err == nil {
			options = string(raw)
		}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO form_fields (job_id, field_label, field_type, field_value, field_options, created_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		jobID, field.Label, field.Type, field.Value, options, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record form field: %w", err)
	}
	return nil
}

// RecordAttempt logs one pass through the apply modal for a job
func (s *Store) RecordAttempt(ctx context.Context, jobID string, status models.ApplicationStatus, detail string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO application_attempts (job_id, attempt_at, status, detail)
VALUES (?, ?, ?, ?);`,
		jobID, time.Now().UTC().Format(time.RFC3339), string(status), detail,
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// AppliedCount returns how many jobs reached the applied status
func (s *Store) AppliedCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE status = 'applied'`).Scan(&count)
	return count, err
}

// StatusCounts returns application totals grouped by status
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// RecentApplications lists the newest outcome rows, most recent first
func (s *Store) RecentApplications(ctx context.Context, limit int) ([]models.AppliedJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, title, company, location, job_url, status, date_applied
FROM jobs
ORDER BY date_applied DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AppliedJob
	for rows.Next() {
		var job models.AppliedJob
		var status, dateApplied string
		if err := rows.Scan(&job.JobID, &job.Title, &job.Company, &job.Location, &job.URL, &status, &dateApplied); err != nil {
			return nil, err
		}
		job.Status = models.ApplicationStatus(status)
		job.DateApplied, _ = time.Parse(time.RFC3339, dateApplied)
		out = append(out, job)
	}
	return out, rows.Err()
}
