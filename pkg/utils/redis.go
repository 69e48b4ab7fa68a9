package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"autoapply/internal/config"
)

// AnswerCache remembers AI-suggested answers for screening questions so
// recurring questions across listings do not burn API calls. Backed by Redis
// and entirely optional: a nil *AnswerCache is a valid no-op cache.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// CachedAnswer is one stored suggestion
type CachedAnswer struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	FieldType string    `json:"field_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Hits      int       `json:"hits"`
}

// NewAnswerCache creates a Redis-backed answer cache. Returns nil when no
// Redis URL is configured, which disables caching.
func NewAnswerCache(cfg *config.Config) *AnswerCache {
	if cfg.Redis.URL == "" {
		return nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	}

	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	ttl := cfg.Redis.AnswerTTL
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}

	return &AnswerCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}
}

// Ping tests the Redis connection
func (c *AnswerCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *AnswerCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the cached answer for a question, or "" when absent
func (c *AnswerCache) Get(ctx context.Context, question string) (string, bool) {
	if c == nil {
		return "", false
	}

	key := c.answerKey(question)
	payload, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}

	var cached CachedAnswer
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		return "", false
	}

	// Refresh the TTL and hit count on access; failures here do not matter
	cached.Hits++
	if updated, err := json.Marshal(cached); err == nil {
		c.client.Set(ctx, key, updated, c.ttl)
	}

	return cached.Answer, true
}

// Put stores a suggested answer under the question's hash
func (c *AnswerCache) Put(ctx context.Context, question, answer, fieldType string) error {
	if c == nil {
		return nil
	}

	cached := CachedAnswer{
		Question:  question,
		Answer:    answer,
		FieldType: fieldType,
		CreatedAt: time.Now(),
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached answer: %w", err)
	}

	if err := c.client.Set(ctx, c.answerKey(question), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache answer: %w", err)
	}

	return nil
}

// IsHealthy checks if Redis is connected and healthy
func (c *AnswerCache) IsHealthy(ctx context.Context) error {
	return c.Ping(ctx)
}

// answerKey hashes the normalized question text into a stable Redis key
func (c *AnswerCache) answerKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return "answers:question:" + hex.EncodeToString(sum[:8])
}
