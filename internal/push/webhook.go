package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"glanced/internal/island"
)

// Webhook delivers live-activity updates by POSTing them to a push
// gateway. Deliveries are paced by a rate limiter: push platforms
// rate-limit live-activity updates to roughly one per device per minute,
// and the gateway should not be hammered past that.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhook creates a Webhook deliverer posting to url, allowing up to
// perMinute deliveries per minute overall (default 60 when <= 0).
func NewWebhook(url string, perMinute int) *Webhook {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

type updateEnvelope struct {
	DeviceToken  string         `json:"device_token"`
	ActivityID   string         `json:"activity_id"`
	Event        string         `json:"event"`
	Timestamp    int64          `json:"timestamp"`
	ContentState map[string]any `json:"content-state"`
}

// Deliver posts one update. A 410 from the gateway means the device
// token is permanently invalid and maps to island.ErrTokenGone so the
// rotator can evict the device.
func (w *Webhook) Deliver(ctx context.Context, deviceToken, activityID string, contentState map[string]any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(updateEnvelope{
		DeviceToken:  deviceToken,
		ActivityID:   activityID,
		Event:        "update",
		Timestamp:    time.Now().Unix(),
		ContentState: contentState,
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post update: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusGone:
		return fmt.Errorf("gateway reported 410: %w", island.ErrTokenGone)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, msg)
	}
}
