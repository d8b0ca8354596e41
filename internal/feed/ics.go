package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"glanced/internal/registry"
)

// ICSSource reads an ICS subscription feed and exposes the next upcoming
// event. Events arrive pre-expanded from the subscription endpoint; the
// source only has to pick the earliest start that is still in the future.
type ICSSource struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewICSSource creates a source for the given ICS subscription URL.
func NewICSSource(url string) *ICSSource {
	return &ICSSource{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

// NextEvent fetches the feed and returns the next upcoming event, or nil
// when nothing upcoming is scheduled.
func (s *ICSSource) NextEvent(ctx context.Context) (*registry.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build ics request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ics: unexpected status %d", resp.StatusCode)
	}

	cal, err := ical.ParseCalendar(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	return nextUpcoming(cal, s.now()), nil
}

// nextUpcoming scans the calendar's events for the earliest start after
// now. Events with unparsable starts are skipped.
func nextUpcoming(cal *ical.Calendar, now time.Time) *registry.CalendarEvent {
	var (
		bestStart time.Time
		bestTitle string
		found     bool
	)

	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil || start.IsZero() {
			continue
		}
		if !start.After(now) {
			continue
		}
		if found && !start.Before(bestStart) {
			continue
		}

		title := "Untitled Event"
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
			title = p.Value
		}

		bestStart = start
		bestTitle = title
		found = true
	}

	if !found {
		return nil
	}
	return &registry.CalendarEvent{
		Title: bestTitle,
		Time:  bestStart.Format("3:04 PM"),
		Start: bestStart.Format(time.RFC3339),
	}
}
