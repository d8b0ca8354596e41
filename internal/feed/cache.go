package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"glanced/internal/registry"
)

// CalendarSource supplies the shared next-event snapshot.
type CalendarSource interface {
	NextEvent(ctx context.Context) (*registry.CalendarEvent, error)
}

// MailSource supplies the shared unread-mail snapshot.
type MailSource interface {
	UnreadSummary(ctx context.Context) (int, []registry.Email, error)
}

// Cache is the session-agnostic fallback snapshot consulted by the
// rotator when a device has not synced its own calendar or mail data.
// It is refreshed on a fixed schedule; readers only ever see the last
// complete snapshot.
type Cache struct {
	calendar CalendarSource // may be nil
	mail     MailSource     // may be nil

	mu          sync.RWMutex
	nextEvent   *registry.CalendarEvent
	unread      int
	recent      []registry.Email
	lastRefresh time.Time
}

// NewCache creates a Cache over the given sources. Either source may be
// nil, in which case that half of the snapshot stays empty.
func NewCache(calendar CalendarSource, mail MailSource) *Cache {
	return &Cache{calendar: calendar, mail: mail}
}

// Refresh pulls fresh data from both sources. A failing source is logged
// and leaves its part of the previous snapshot in place.
func (c *Cache) Refresh(ctx context.Context) {
	if c.calendar != nil {
		ev, err := c.calendar.NextEvent(ctx)
		if err != nil {
			log.Printf("feed: calendar refresh failed: %v", err)
		} else {
			c.mu.Lock()
			c.nextEvent = ev
			c.mu.Unlock()
			if ev != nil {
				log.Printf("feed: next event %q at %s", ev.Title, ev.Time)
			}
		}
	}

	if c.mail != nil {
		unread, recent, err := c.mail.UnreadSummary(ctx)
		if err != nil {
			log.Printf("feed: mail refresh failed: %v", err)
		} else {
			c.mu.Lock()
			c.unread = unread
			c.recent = recent
			c.mu.Unlock()
			log.Printf("feed: %d unread messages", unread)
		}
	}

	c.mu.Lock()
	c.lastRefresh = time.Now()
	c.mu.Unlock()
}

// NextEvent returns the cached next event, or nil when none is known.
func (c *Cache) NextEvent() *registry.CalendarEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextEvent
}

// MailSummary returns the cached unread count and recent messages.
func (c *Cache) MailSummary() (int, []registry.Email) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread, c.recent
}

// LastRefresh returns when the cache last completed a refresh.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}
