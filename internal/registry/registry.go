package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry holds all registered devices. It replaces ad-hoc shared maps
// with an explicit object passed to the rotator and the HTTP handlers.
// The registry lock guards the map only; per-device state is coordinated
// by the per-device locks handed out with each entry.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*entry
}

type entry struct {
	mu  sync.Mutex
	dev *Device
}

// Locked is a device together with its held lock. Callers must Unlock
// when done; no two rotations (or a rotation and a sync) can overlap on
// the same device.
type Locked struct {
	*Device
	e *entry
}

// Unlock releases the device for other writers.
func (l Locked) Unlock() { l.e.mu.Unlock() }

// New creates an empty Registry.
func New() *Registry {
	return &Registry{devices: make(map[string]*entry)}
}

// Register adds or replaces a device. Re-registering an existing token
// keeps its recency bookkeeping so a reconnect does not reset rotation.
func (r *Registry) Register(d *Device, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.devices[d.Token]; ok {
		prev.mu.Lock()
		d.LastIslandType = prev.dev.LastIslandType
		d.LastIslandShownAt = prev.dev.LastIslandShownAt
		d.RegisteredAt = prev.dev.RegisteredAt
		prev.mu.Unlock()
	}
	if d.RegisteredAt.IsZero() {
		d.RegisteredAt = now
	}
	r.devices[d.Token] = &entry{dev: d}
}

// Unregister removes a device. Returns false if the token is unknown.
func (r *Registry) Unregister(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[token]; !ok {
		return false
	}
	delete(r.devices, token)
	return true
}

// Acquire returns the device for token with its lock held, or an error if
// the token is unknown.
func (r *Registry) Acquire(token string) (Locked, error) {
	r.mu.RLock()
	e, ok := r.devices[token]
	r.mu.RUnlock()
	if !ok {
		return Locked{}, fmt.Errorf("device %s not registered", redact(token))
	}
	e.mu.Lock()
	return Locked{Device: e.dev, e: e}, nil
}

// Tokens returns all registered tokens in a stable order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokens := make([]string, 0, len(r.devices))
	for t := range r.devices {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Snapshot returns copies of all devices for persistence or listing.
// Slices and the weather pointer are shared; snapshot consumers treat
// them as read-only.
func (r *Registry) Snapshot() []Device {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.devices))
	for _, e := range r.devices {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Device, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, *e.dev)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Load replaces the registry contents, used on startup to restore the
// persisted state.
func (r *Registry) Load(devices []Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*entry, len(devices))
	for i := range devices {
		d := devices[i]
		r.devices[d.Token] = &entry{dev: &d}
	}
}

// SyncState is a full-state sync from a device. Nil fields are "no
// change"; the device remains authoritative for everything it sends.
type SyncState struct {
	CalendarEvents    []CalendarEvent `json:"calendar_events"`
	Email             *EmailData      `json:"email_data"`
	Weather           *Weather        `json:"weather_data"`
	Timezone          *string         `json:"timezone"`
	CurrentIslandType *string         `json:"current_island_type"`
	IsSubscribed      *bool           `json:"is_subscribed"`
}

// ApplySync merges a state sync into the device identified by token.
func (r *Registry) ApplySync(token string, s SyncState, now time.Time) error {
	dev, err := r.Acquire(token)
	if err != nil {
		return err
	}
	defer dev.Unlock()

	if s.CalendarEvents != nil {
		dev.CalendarEvents = s.CalendarEvents
	}
	if s.Email != nil {
		dev.Email = *s.Email
	}
	if s.Weather != nil {
		dev.Weather = s.Weather
	}
	if s.Timezone != nil {
		dev.Timezone = *s.Timezone
	}
	if s.CurrentIslandType != nil {
		dev.CurrentIslandType = *s.CurrentIslandType
	}
	if s.IsSubscribed != nil {
		dev.IsSubscribed = *s.IsSubscribed
	}
	dev.LastSyncAt = now
	return nil
}

// redact shortens a token for log and error messages.
func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}

// Redact is the exported form used by handlers and the rotator for logs.
func Redact(token string) string { return redact(token) }
