package registry

import "time"

// CalendarEvent is one upcoming entry from a device's synced calendar.
// Events arrive sorted by start time ascending; index 0 is "next".
type CalendarEvent struct {
	Title string `json:"title"`
	Time  string `json:"time"`                 // display string, e.g. "3:04 PM"
	Start string `json:"start_date,omitempty"` // RFC3339 start instant, if known
}

// Email is a summary of one unread message.
type Email struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Time    string `json:"time"`
}

// EmailData is a device's synced mailbox summary. RecentEmails[0] is the
// most recent message.
type EmailData struct {
	UnreadCount  int     `json:"unread_count"`
	RecentEmails []Email `json:"recent_emails,omitempty"`
}

// Weather is an optional snapshot synced from the device; its fields pass
// through to the content state verbatim.
type Weather struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon"`
	Sunrise   string  `json:"sunrise"`
	Sunset    string  `json:"sunset"`
	Location  string  `json:"location"`
}

// Device is one registered session: its identity, synced context, and
// rotation bookkeeping. A Device is mutated by the rotator (bookkeeping)
// and by the sync handlers (context); callers must hold the device lock
// across a rotation cycle or a sync application.
type Device struct {
	Token      string
	ActivityID string
	UserID     string
	// PushToken is the live-activity push token, which differs from the
	// registration token on some platforms. Empty means use Token.
	PushToken string

	CalendarEvents []CalendarEvent
	Email          EmailData
	Weather        *Weather
	Timezone       string // IANA zone name, e.g. "Asia/Kolkata"

	CurrentIslandType string
	IsSubscribed      bool

	// Recency bookkeeping. LastIslandType and LastIslandShownAt are either
	// both set or both zero; MarkShown is the only writer.
	LastIslandType    string
	LastIslandShownAt time.Time

	RegisteredAt time.Time
	LastUpdate   time.Time // last completed rotation cycle
	LastPushAt   time.Time // last confirmed delivery
	LastSyncAt   time.Time
}

// MarkShown records a completed selection. It updates the recency pair
// atomically with the cycle timestamp.
func (d *Device) MarkShown(islandType string, now time.Time) {
	d.LastIslandType = islandType
	d.LastIslandShownAt = now
	d.LastUpdate = now
}

// DeliveryTarget returns the token pushes should be addressed to.
func (d *Device) DeliveryTarget() string {
	if d.PushToken != "" {
		return d.PushToken
	}
	return d.Token
}
