package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"autoapply/internal/config"
	"autoapply/internal/logging"
	"autoapply/internal/logging/types"
	"autoapply/pkg/models"
)

// Client delivers application results to a configured webhook endpoint.
// Delivery is fire and forget: the campaign loop never waits on a listener.
type Client struct {
	config     *config.Config
	httpClient *http.Client
	logger     types.Logger
}

// resultPayload is the JSON body listeners receive per processed listing.
type resultPayload struct {
	Event     string                   `json:"event"`
	Timestamp string                   `json:"timestamp"`
	Result    models.ApplicationResult `json:"result"`
}

// NewClient creates a webhook client. With no URL configured the client
// stays constructed and every notify call is a no-op.
func NewClient(cfg *config.Config) *Client {
	logger := logging.GetGlobalLogger()

	if cfg.Webhook.URL == "" {
		logger.Debug("Webhook URL not configured, result notifications disabled")
	} else {
		logger.Info("Webhook notifications enabled", map[string]interface{}{
			"url":         cfg.Webhook.URL,
			"max_retries": cfg.Webhook.MaxRetries,
		})
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Webhook.Timeout,
		},
		logger: logger,
	}
}

func (c *Client) enabled() bool {
	return c.config.Webhook.Enabled && c.config.Webhook.URL != ""
}

// NotifyResult queues one application result for delivery.
func (c *Client) NotifyResult(ctx context.Context, result models.ApplicationResult) {
	if !c.enabled() || ctx.Err() != nil {
		return
	}

	payload := resultPayload{
		Event:     "application.result",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Result:    result,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("Failed to encode webhook payload", map[string]interface{}{
			"job_id": result.JobID,
			"error":  err.Error(),
		})
		return
	}

	go c.deliver(result.JobID, body)
}

// deliver posts the payload with a small linear-backoff retry. Runs detached
// from the campaign so a slow listener cannot stall the bot.
func (c *Client) deliver(jobID string, body []byte) {
	maxRetries := c.config.Webhook.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.Webhook.Timeout)
		err := c.post(ctx, body)
		cancel()

		if err == nil {
			c.logger.Debug("Webhook delivered", map[string]interface{}{
				"job_id":  jobID,
				"attempt": attempt,
			})
			return
		}

		c.logger.Warn("Webhook delivery failed", map[string]interface{}{
			"job_id":  jobID,
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	c.logger.Error("Webhook delivery abandoned", map[string]interface{}{
		"job_id":   jobID,
		"attempts": maxRetries,
	})
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
