package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinkedInURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantType LinkedInURLType
		wantID   string
	}{
		{
			name:     "direct job view",
			url:      "https://www.linkedin.com/jobs/view/3756789012",
			wantType: LinkedInURLTypeJobView,
			wantID:   "3756789012",
		},
		{
			name:     "job view with trailing slash",
			url:      "https://www.linkedin.com/jobs/view/3756789012/",
			wantType: LinkedInURLTypeJobView,
			wantID:   "3756789012",
		},
		{
			name:     "slugged card href",
			url:      "https://www.linkedin.com/jobs/view/senior-backend-engineer-at-acme-3756789012",
			wantType: LinkedInURLTypeJobView,
			wantID:   "3756789012",
		},
		{
			name:     "collection page with currentJobId",
			url:      "https://www.linkedin.com/jobs/collections/recommended/?currentJobId=4011223344",
			wantType: LinkedInURLTypeJobCollection,
			wantID:   "4011223344",
		},
		{
			name:     "search page with currentJobId",
			url:      "https://www.linkedin.com/jobs/search/?currentJobId=4011223344&keywords=golang",
			wantType: LinkedInURLTypeJobCollection,
			wantID:   "4011223344",
		},
		{
			name:     "jobs landing page without id",
			url:      "https://www.linkedin.com/jobs/",
			wantType: LinkedInURLTypeNonJob,
			wantID:   "",
		},
		{
			name:     "profile page",
			url:      "https://www.linkedin.com/in/someone/",
			wantType: LinkedInURLTypeNonJob,
			wantID:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseLinkedInURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantID, info.JobID)
		})
	}
}

func TestParseLinkedInURL_RejectsOtherHosts(t *testing.T) {
	_, err := ParseLinkedInURL("https://example.com/jobs/view/123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a LinkedIn URL")
}

func TestConvertToPublicLinkedInJobURL(t *testing.T) {
	got, err := ConvertToPublicLinkedInJobURL("https://www.linkedin.com/jobs/search/?currentJobId=123456")
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/123456", got)

	_, err = ConvertToPublicLinkedInJobURL("https://www.linkedin.com/company/acme/")
	require.Error(t, err)
}

func TestIsLinkedInJobURL(t *testing.T) {
	assert.True(t, IsLinkedInJobURL("https://www.linkedin.com/jobs/view/123456"))
	assert.True(t, IsLinkedInJobURL("https://linkedin.com/jobs/search/?currentJobId=9"))
	assert.False(t, IsLinkedInJobURL("https://www.linkedin.com/feed/"))
	assert.False(t, IsLinkedInJobURL("https://example.com/jobs/view/123456"))
	assert.False(t, IsLinkedInJobURL(""))
}

func TestJobIdentifier(t *testing.T) {
	assert.Equal(t, "123456", JobIdentifier("https://www.linkedin.com/jobs/view/123456/"))
	assert.Equal(t, "777", JobIdentifier("https://www.linkedin.com/jobs/view/staff-engineer-at-acme-777"))

	// Unrecognized URLs fall back to the URL itself so tracking still works
	raw := "https://www.linkedin.com/jobs/view/external-posting/"
	assert.Equal(t, raw, JobIdentifier(raw))
}
