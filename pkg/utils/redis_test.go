package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"autoapply/internal/config"
)

func TestNewAnswerCache_DisabledWithoutURL(t *testing.T) {
	cache := NewAnswerCache(&config.Config{})
	assert.Nil(t, cache)
}

// A nil cache must behave as a transparent miss so callers never branch on it.
func TestAnswerCache_NilIsNoOp(t *testing.T) {
	var cache *AnswerCache
	ctx := context.Background()

	answer, hit := cache.Get(ctx, "How many years of experience do you have?")
	assert.Empty(t, answer)
	assert.False(t, hit)

	assert.NoError(t, cache.Put(ctx, "q", "a", "text"))
	assert.NoError(t, cache.Ping(ctx))
	assert.NoError(t, cache.IsHealthy(ctx))
	assert.NoError(t, cache.Close())
}

func TestAnswerKey_NormalizesQuestionText(t *testing.T) {
	cache := &AnswerCache{}

	a := cache.answerKey("  How many years of experience?  ")
	b := cache.answerKey("how many years of EXPERIENCE?")
	c := cache.answerKey("Are you authorized to work?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "answers:question:")
}
