package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LinkedInURLType represents the type of LinkedIn URL
type LinkedInURLType int

const (
	LinkedInURLTypeUnknown       LinkedInURLType = iota
	LinkedInURLTypeJobView                       // Direct job view: /jobs/view/123
	LinkedInURLTypeJobCollection                 // Jobs page carrying ?currentJobId=123
	LinkedInURLTypeNonJob                        // Non-job URLs: profiles, company pages, etc.
)

// LinkedInURLInfo contains information about a parsed LinkedIn URL
type LinkedInURLInfo struct {
	Type      LinkedInURLType
	JobID     string
	PublicURL string
}

var (
	jobViewRegex = regexp.MustCompile(`^/jobs/view/(\d+)/?$`)
	// Slug form used by listing card hrefs: /jobs/view/title-at-company-123
	jobViewSlugRegex = regexp.MustCompile(`^/jobs/view/[^/]*?(\d+)/?$`)
	jobIDRegex       = regexp.MustCompile(`^\d+$`)
)

// IsLinkedInURL checks if a URL is a LinkedIn URL
func IsLinkedInURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	return hostname == "linkedin.com" || hostname == "www.linkedin.com"
}

// ParseLinkedInURL analyzes a LinkedIn URL and returns its type and job ID
func ParseLinkedInURL(urlStr string) (*LinkedInURLInfo, error) {
	if !IsLinkedInURL(urlStr) {
		return nil, fmt.Errorf("not a LinkedIn URL: %s", urlStr)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	path := strings.ToLower(parsedURL.Path)
	query := parsedURL.Query()

	info := &LinkedInURLInfo{
		Type: LinkedInURLTypeUnknown,
	}

	// Direct job view URLs: /jobs/view/123456 or /jobs/view/some-title-123456
	if matches := jobViewRegex.FindStringSubmatch(path); len(matches) > 1 {
		info.Type = LinkedInURLTypeJobView
		info.JobID = matches[1]
		info.PublicURL = fmt.Sprintf("https://www.linkedin.com/jobs/view/%s", info.JobID)
		return info, nil
	}
	if matches := jobViewSlugRegex.FindStringSubmatch(path); len(matches) > 1 {
		info.Type = LinkedInURLTypeJobView
		info.JobID = matches[1]
		info.PublicURL = fmt.Sprintf("https://www.linkedin.com/jobs/view/%s", info.JobID)
		return info, nil
	}

	// Search and collection pages reference the selected job through the
	// currentJobId query parameter
	if strings.HasPrefix(path, "/jobs/") {
		if currentJobID := query.Get("currentJobId"); jobIDRegex.MatchString(currentJobID) {
			info.Type = LinkedInURLTypeJobCollection
			info.JobID = currentJobID
			info.PublicURL = fmt.Sprintf("https://www.linkedin.com/jobs/view/%s", info.JobID)
			return info, nil
		}
		info.Type = LinkedInURLTypeNonJob
		return info, nil
	}

	// All other LinkedIn URLs are non-job (profiles, company pages, feed, etc.)
	info.Type = LinkedInURLTypeNonJob
	return info, nil
}

// ConvertToPublicLinkedInJobURL converts various LinkedIn job URL formats to
// the public job view format
func ConvertToPublicLinkedInJobURL(urlStr string) (string, error) {
	info, err := ParseLinkedInURL(urlStr)
	if err != nil {
		return "", err
	}

	switch info.Type {
	case LinkedInURLTypeJobView, LinkedInURLTypeJobCollection:
		return info.PublicURL, nil
	case LinkedInURLTypeNonJob:
		return "", NewNotJobPostingError(fmt.Sprintf("LinkedIn URL is not a job posting: %s", urlStr))
	default:
		return "", fmt.Errorf("unknown LinkedIn URL type for: %s", urlStr)
	}
}

// IsLinkedInJobURL checks if a LinkedIn URL is specifically a job posting URL
func IsLinkedInJobURL(urlStr string) bool {
	if !IsLinkedInURL(urlStr) {
		return false
	}

	info, err := ParseLinkedInURL(urlStr)
	if err != nil {
		return false
	}

	return info.Type == LinkedInURLTypeJobView || info.Type == LinkedInURLTypeJobCollection
}

// ExtractLinkedInJobID extracts the job ID from a LinkedIn job URL
func ExtractLinkedInJobID(urlStr string) (string, error) {
	info, err := ParseLinkedInURL(urlStr)
	if err != nil {
		return "", err
	}

	if info.JobID == "" {
		return "", fmt.Errorf("no job ID found in LinkedIn URL: %s", urlStr)
	}

	return info.JobID, nil
}

// JobIdentifier returns the best duplicate-suppression key for a listing URL.
// URLs without a recognizable numeric ID fall back to the URL itself so the
// listing is still tracked.
func JobIdentifier(urlStr string) string {
	if id, err := ExtractLinkedInJobID(urlStr); err == nil {
		return id
	}
	return urlStr
}
