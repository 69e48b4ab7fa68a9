package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.linkedin.com"

	assert.Equal(t, "https://www.linkedin.com/jobs/view/123/", absoluteURL(base, "/jobs/view/123/"))
	assert.Equal(t, "https://www.linkedin.com/jobs/view/123/", absoluteURL(base+"/", "/jobs/view/123/"))
	assert.Equal(t, "https://other.example.com/jobs/9", absoluteURL(base, "https://other.example.com/jobs/9"))
	assert.Equal(t, "http://insecure.example.com/x", absoluteURL(base, "http://insecure.example.com/x"))
}
