package island

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"glanced/internal/registry"
)

// ErrTokenGone is returned by a Deliverer when the push target reports
// that the device token is permanently invalid. The rotator evicts the
// device from the registry.
var ErrTokenGone = errors.New("device token no longer valid")

// Deliverer pushes one content-state update to a device. Implementations
// own the wire format, retries, and pacing; the rotator only needs
// success, failure, or ErrTokenGone.
type Deliverer interface {
	Deliver(ctx context.Context, deviceToken, activityID string, contentState map[string]any) error
}

// Fallback is the shared, session-agnostic snapshot consulted when a
// device has no synced calendar or mail data of its own.
type Fallback interface {
	NextEvent() *registry.CalendarEvent
	MailSummary() (unread int, recent []registry.Email)
}

// Rotator runs selection cycles: it assembles per-device context, ranks
// the candidate presentations, records the selection, and hands the
// resulting content state to the deliverer.
type Rotator struct {
	reg       *registry.Registry
	scorer    *Scorer
	fallback  Fallback // may be nil
	deliverer Deliverer
	now       func() time.Time
}

// NewRotator creates a Rotator. fallback may be nil when no shared feed
// is configured.
func NewRotator(reg *registry.Registry, scorer *Scorer, fallback Fallback, deliverer Deliverer) *Rotator {
	return &Rotator{
		reg:       reg,
		scorer:    scorer,
		fallback:  fallback,
		deliverer: deliverer,
		now:       time.Now,
	}
}

// RotateAll runs one cycle for every registered device, sequentially.
// A failure or panic in one device's cycle never stops the others.
func (r *Rotator) RotateAll(ctx context.Context) {
	for _, token := range r.reg.Tokens() {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("rotate: panic for device %s: %v", registry.Redact(token), p)
				}
			}()
			if _, err := r.Rotate(ctx, token); err != nil {
				log.Printf("rotate: device %s: %v", registry.Redact(token), err)
			}
		}()
	}
}

// Rotate runs one selection cycle for the device identified by token and
// returns the selected type. The device lock is held for the whole
// cycle, so a rotation never overlaps another rotation or a state sync
// for the same device.
func (r *Rotator) Rotate(ctx context.Context, token string) (Type, error) {
	dev, err := r.reg.Acquire(token)
	if err != nil {
		return "", err
	}
	defer dev.Unlock()

	now := r.now()
	if dev.Timezone != "" {
		if loc, err := time.LoadLocation(dev.Timezone); err == nil {
			now = now.In(loc)
		}
	}

	events := dev.CalendarEvents
	if len(events) == 0 && r.fallback != nil {
		if ev := r.fallback.NextEvent(); ev != nil {
			events = []registry.CalendarEvent{*ev}
		}
	}

	email := dev.Email
	if email.UnreadCount == 0 && r.fallback != nil {
		if unread, recent := r.fallback.MailSummary(); unread > 0 {
			email = registry.EmailData{UnreadCount: unread, RecentEmails: recent}
		}
	}

	var nextMin *int
	if len(events) > 0 && events[0].Start != "" {
		if start, err := parseInstant(events[0].Start, now.Location()); err == nil {
			m := int(math.Round(start.Sub(now).Minutes()))
			nextMin = &m
		}
		// An unparsable start leaves next-meeting unknown; the cycle goes on.
	}

	cctx := Context{
		CurrentHour:        now.Hour(),
		MeetingsToday:      len(events),
		NextMeetingMinutes: nextMin,
		UnreadCount:        email.UnreadCount,
	}
	rec := Recency{LastType: Type(dev.LastIslandType), LastShownAt: dev.LastIslandShownAt}

	scores := r.scorer.Rank(cctx, rec, now)
	best := scores[0]
	log.Printf("rotate: device %s selected %s (score %d) - %s",
		registry.Redact(token), best.Type, int(best.Score), best.Reason)

	// Selection state advances regardless of delivery outcome, so a failed
	// push still counts for recency. Delivery health is tracked separately
	// via LastPushAt.
	dev.MarkShown(string(best.Type), now)

	state := contentState(now, best.Type, events, email, dev.Weather, nextMin)

	if err := r.deliverer.Deliver(ctx, dev.DeliveryTarget(), dev.ActivityID, state); err != nil {
		if errors.Is(err, ErrTokenGone) {
			r.reg.Unregister(dev.Token)
			log.Printf("rotate: device %s evicted (token gone)", registry.Redact(token))
			return best.Type, nil
		}
		log.Printf("rotate: deliver to %s failed: %v", registry.Redact(token), err)
		return best.Type, nil
	}
	dev.LastPushAt = now
	return best.Type, nil
}

// parseInstant parses an event start. RFC3339 (with or without a trailing
// Z) is the expected form; a zone-less timestamp is interpreted in the
// device's resolved location.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}
