package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatResponse_SuccessAndError(t *testing.T) {
	ok := NewChatSuccess("hello", map[string]interface{}{"model": "m1"})
	assert.True(t, ok.Success)
	assert.False(t, ok.IsError())
	assert.Equal(t, "hello", ok.Content)
	assert.Equal(t, "m1", ok.Metadata["model"])

	bad := NewChatError("connection refused")
	assert.False(t, bad.Success)
	assert.True(t, bad.IsError())
	assert.Empty(t, bad.Content)
	assert.Equal(t, "connection refused", bad.Error)
}

func TestChatResponse_ErrorFieldAloneMarksFailure(t *testing.T) {
	resp := &ChatResponse{Content: "partial", Success: true, Error: "truncated"}
	assert.True(t, resp.IsError())
}

func TestChatResponse_MapRoundTrip(t *testing.T) {
	original := NewChatSuccess("body", map[string]interface{}{
		"model": "m1",
		"usage": map[string]interface{}{"total_tokens": 42},
	})

	rebuilt := ChatResponseFromMap(original.ToMap())
	require.NotNil(t, rebuilt)
	assert.Equal(t, original.Content, rebuilt.Content)
	assert.Equal(t, original.Success, rebuilt.Success)
	assert.Equal(t, original.Metadata, rebuilt.Metadata)
}

func TestChatResponse_ErrorMapRoundTrip(t *testing.T) {
	original := NewChatError("API error 500: boom")

	m := original.ToMap()
	assert.Equal(t, "API error 500: boom", m["error"])
	_, hasMetadata := m["metadata"]
	assert.False(t, hasMetadata, "error responses carry no metadata key")

	rebuilt := ChatResponseFromMap(m)
	assert.True(t, rebuilt.IsError())
	assert.Equal(t, original.Error, rebuilt.Error)
}
