package models

import "time"

// ApplicationStatus tracks the lifecycle of one job application
type ApplicationStatus string

const (
	StatusPending ApplicationStatus = "pending"
	StatusSkipped ApplicationStatus = "skipped"
	StatusApplied ApplicationStatus = "applied"
	StatusFailed  ApplicationStatus = "failed"
	StatusError   ApplicationStatus = "error"
)

// JobListing is one search-result card scraped from the jobs page
type JobListing struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// JobDetails is what the assistant extracts from a posting before applying
type JobDetails struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
}

// ApplicationResult is the outcome of processing one listing
type ApplicationResult struct {
	JobID     string            `json:"job_id"`
	Title     string            `json:"title"`
	Company   string            `json:"company"`
	Location  string            `json:"location,omitempty"`
	URL       string            `json:"url"`
	Status    ApplicationStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	Answered  int               `json:"answered_questions"`
	Timestamp time.Time         `json:"timestamp"`
}

// FormField is one questionnaire field encountered inside the apply modal
type FormField struct {
	Label   string   `json:"label"`
	Type    string   `json:"type"` // text, select, radio, checkbox, textarea
	Value   string   `json:"value"`
	Options []string `json:"options,omitempty"`
}

// AppliedJob is a row of the duplicate-suppression store
type AppliedJob struct {
	JobID       string            `json:"job_id"`
	Title       string            `json:"title"`
	Company     string            `json:"company"`
	Location    string            `json:"location"`
	URL         string            `json:"url"`
	Status      ApplicationStatus `json:"status"`
	DateApplied time.Time         `json:"date_applied"`
}
