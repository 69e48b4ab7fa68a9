package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited("https://www.linkedin.com/checkpoint/challengesV2/inapp/tooManyAttempts"))
	assert.True(t, isRateLimited("https://www.linkedin.com/uas/login?error=tooManyAttempts"))
	assert.False(t, isRateLimited("https://www.linkedin.com/feed/"))
	assert.False(t, isRateLimited("https://www.linkedin.com/login"))
}

func TestIsSecurityCheckpoint(t *testing.T) {
	assert.True(t, isSecurityCheckpoint("https://www.linkedin.com/checkpoint/lg/login-submit"))
	assert.True(t, isSecurityCheckpoint("https://www.linkedin.com/challenge/verify"))
	assert.False(t, isSecurityCheckpoint("https://www.linkedin.com/feed/"))
	assert.False(t, isSecurityCheckpoint("https://www.linkedin.com/jobs/search/"))
}

func TestRateLimitPageIsAlsoACheckpoint(t *testing.T) {
	// The login loop must test for rate limiting before checkpoints: the
	// too-many-attempts page lives under /checkpoint/ and would otherwise be
	// treated as a 2FA prompt.
	url := "https://www.linkedin.com/checkpoint/challengesV2/inapp/tooManyAttempts"
	assert.True(t, isRateLimited(url))
	assert.True(t, isSecurityCheckpoint(url))
}
