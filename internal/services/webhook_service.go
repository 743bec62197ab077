package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gridvolt/gridvolt-api/pkg/logger"
)

// WebhookService posts workflow events to an external automation endpoint.
// Delivery is best effort: failures log and are dropped, they never roll back
// the transition that produced them.
type WebhookService struct {
	url    string
	client *http.Client
}

// NewWebhookService creates a new webhook dispatcher. An empty URL disables it.
func NewWebhookService(url string) *WebhookService {
	return &WebhookService{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook endpoint is configured
func (s *WebhookService) Enabled() bool {
	return s.url != ""
}

// Dispatch posts one event. The payload carries the event name, entity
// reference and any extra fields the caller provides.
func (s *WebhookService) Dispatch(ctx context.Context, event string, payload map[string]any) error {
	if !s.Enabled() {
		return nil
	}

	body := map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		body[k] = v
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn(fmt.Sprintf("webhook %s delivery failed: %v", event, err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn(fmt.Sprintf("webhook %s returned status %d", event, resp.StatusCode))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
