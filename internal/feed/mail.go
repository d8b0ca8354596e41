package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"glanced/internal/registry"
)

// MailFeed reads a JSON status endpoint exposing an unread summary:
//
//	{"unread_count": 4, "recent_emails": [{"sender": ..., "subject": ..., "time": ...}]}
//
// Any mail bridge that can serve this shape (a webmail gateway, an IMAP
// sidecar) works as the shared fallback.
type MailFeed struct {
	url    string
	client *http.Client
}

// NewMailFeed creates a mail source for the given status URL.
func NewMailFeed(url string) *MailFeed {
	return &MailFeed{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// UnreadSummary fetches the endpoint and returns the unread count and
// recent messages, most recent first.
func (m *MailFeed) UnreadSummary(ctx context.Context) (int, []registry.Email, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build mail request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch mail summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("fetch mail summary: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		UnreadCount  int              `json:"unread_count"`
		RecentEmails []registry.Email `json:"recent_emails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, nil, fmt.Errorf("decode mail summary: %w", err)
	}
	return body.UnreadCount, body.RecentEmails, nil
}
