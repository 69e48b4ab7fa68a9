package utils

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomError_MessageOnly(t *testing.T) {
	err := NewBadRequestError("missing field")
	assert.Equal(t, "missing field", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.Code)
}

func TestCustomError_WithDetail(t *testing.T) {
	err := NewLoginError("login failed after 3 attempts")
	assert.Equal(t, "Login failed: login failed after 3 attempts", err.Error())
	assert.Equal(t, http.StatusUnauthorized, err.Code)
}

func TestAutomationErrorCodes(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, NewCaptchaError("x").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, NewApplicationError("x").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, NewNotJobPostingError("x").Code)
	assert.Equal(t, http.StatusBadGateway, NewLLMError("x").Code)
	assert.Equal(t, http.StatusRequestTimeout, NewTimeoutError("x").Code)
}
