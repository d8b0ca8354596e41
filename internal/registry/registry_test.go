package registry

import (
	"testing"
	"time"
)

func TestRegisterAndAcquire(t *testing.T) {
	r := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	r.Register(&Device{Token: "tok-1", ActivityID: "act-1"}, now)

	dev, err := r.Acquire("tok-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer dev.Unlock()

	if dev.ActivityID != "act-1" {
		t.Errorf("ActivityID = %q, want act-1", dev.ActivityID)
	}
	if !dev.RegisteredAt.Equal(now) {
		t.Errorf("RegisteredAt = %v, want %v", dev.RegisteredAt, now)
	}
}

func TestReregisterKeepsRecency(t *testing.T) {
	r := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	r.Register(&Device{Token: "tok-1", ActivityID: "act-1"}, now)

	dev, _ := r.Acquire("tok-1")
	dev.MarkShown("dashboard", now)
	dev.Unlock()

	// A reconnect re-registers with a fresh record; rotation bookkeeping
	// must survive so recency suppression still applies.
	later := now.Add(30 * time.Second)
	r.Register(&Device{Token: "tok-1", ActivityID: "act-2"}, later)

	dev, _ = r.Acquire("tok-1")
	defer dev.Unlock()
	if dev.LastIslandType != "dashboard" {
		t.Errorf("LastIslandType = %q, want dashboard", dev.LastIslandType)
	}
	if !dev.LastIslandShownAt.Equal(now) {
		t.Errorf("LastIslandShownAt = %v, want %v", dev.LastIslandShownAt, now)
	}
	if !dev.RegisteredAt.Equal(now) {
		t.Errorf("RegisteredAt = %v, want original %v", dev.RegisteredAt, now)
	}
	if dev.ActivityID != "act-2" {
		t.Errorf("ActivityID = %q, want act-2", dev.ActivityID)
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(&Device{Token: "tok-1"}, time.Now())

	if !r.Unregister("tok-1") {
		t.Error("Unregister returned false for known token")
	}
	if r.Unregister("tok-1") {
		t.Error("Unregister returned true for removed token")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestAcquireUnknown(t *testing.T) {
	r := New()
	if _, err := r.Acquire("missing"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestTokensStableOrder(t *testing.T) {
	r := New()
	now := time.Now()
	r.Register(&Device{Token: "charlie"}, now)
	r.Register(&Device{Token: "alpha"}, now)
	r.Register(&Device{Token: "bravo"}, now)

	got := r.Tokens()
	want := []string{"alpha", "bravo", "charlie"}
	if len(got) != len(want) {
		t.Fatalf("Tokens = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestApplySync(t *testing.T) {
	r := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Register(&Device{Token: "tok-1"}, now)

	tz := "Asia/Kolkata"
	sub := true
	err := r.ApplySync("tok-1", SyncState{
		CalendarEvents: []CalendarEvent{{Title: "Standup", Time: "9:00 AM"}},
		Email:          &EmailData{UnreadCount: 4},
		Weather:        &Weather{Temp: 28, Location: "Mumbai"},
		Timezone:       &tz,
		IsSubscribed:   &sub,
	}, now)
	if err != nil {
		t.Fatalf("ApplySync: %v", err)
	}

	dev, _ := r.Acquire("tok-1")
	defer dev.Unlock()

	if len(dev.CalendarEvents) != 1 || dev.CalendarEvents[0].Title != "Standup" {
		t.Errorf("CalendarEvents = %+v", dev.CalendarEvents)
	}
	if dev.Email.UnreadCount != 4 {
		t.Errorf("UnreadCount = %d, want 4", dev.Email.UnreadCount)
	}
	if dev.Weather == nil || dev.Weather.Location != "Mumbai" {
		t.Errorf("Weather = %+v", dev.Weather)
	}
	if dev.Timezone != "Asia/Kolkata" {
		t.Errorf("Timezone = %q", dev.Timezone)
	}
	if !dev.IsSubscribed {
		t.Error("IsSubscribed not applied")
	}
	if !dev.LastSyncAt.Equal(now) {
		t.Errorf("LastSyncAt = %v", dev.LastSyncAt)
	}
}

func TestApplySyncPartial(t *testing.T) {
	r := New()
	now := time.Now()
	r.Register(&Device{
		Token:          "tok-1",
		Timezone:       "UTC",
		CalendarEvents: []CalendarEvent{{Title: "Keep me"}},
	}, now)

	// Nil fields mean "no change".
	if err := r.ApplySync("tok-1", SyncState{Email: &EmailData{UnreadCount: 2}}, now); err != nil {
		t.Fatalf("ApplySync: %v", err)
	}

	dev, _ := r.Acquire("tok-1")
	defer dev.Unlock()
	if len(dev.CalendarEvents) != 1 || dev.CalendarEvents[0].Title != "Keep me" {
		t.Errorf("CalendarEvents overwritten: %+v", dev.CalendarEvents)
	}
	if dev.Timezone != "UTC" {
		t.Errorf("Timezone overwritten: %q", dev.Timezone)
	}
}

func TestSnapshotAndLoad(t *testing.T) {
	r := New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Register(&Device{Token: "tok-1", ActivityID: "act-1", UserID: "user-1"}, now)
	r.Register(&Device{Token: "tok-2", ActivityID: "act-2"}, now)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(snap))
	}
	if snap[0].Token != "tok-1" || snap[1].Token != "tok-2" {
		t.Errorf("snapshot order = %q, %q", snap[0].Token, snap[1].Token)
	}

	restored := New()
	restored.Load(snap)
	if restored.Len() != 2 {
		t.Errorf("restored Len = %d, want 2", restored.Len())
	}
	dev, err := restored.Acquire("tok-1")
	if err != nil {
		t.Fatalf("Acquire after Load: %v", err)
	}
	defer dev.Unlock()
	if dev.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", dev.UserID)
	}
}

func TestDeliveryTarget(t *testing.T) {
	d := &Device{Token: "registration-token"}
	if got := d.DeliveryTarget(); got != "registration-token" {
		t.Errorf("DeliveryTarget = %q", got)
	}
	d.PushToken = "live-activity-token"
	if got := d.DeliveryTarget(); got != "live-activity-token" {
		t.Errorf("DeliveryTarget = %q, want push token", got)
	}
}

func TestMarkShownPairInvariant(t *testing.T) {
	d := &Device{Token: "tok-1"}
	if d.LastIslandType != "" || !d.LastIslandShownAt.IsZero() {
		t.Fatal("fresh device should have no recency state")
	}
	now := time.Now()
	d.MarkShown("sunrise", now)
	if d.LastIslandType != "sunrise" || !d.LastIslandShownAt.Equal(now) || !d.LastUpdate.Equal(now) {
		t.Errorf("MarkShown did not update the pair atomically: %+v", d)
	}
}
