package island

import (
	"testing"
	"time"

	"glanced/internal/registry"
)

func TestContentStateBaseFields(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	state := contentState(now, FocusMode, nil, registry.EmailData{}, nil, nil)

	want := map[string]any{
		"callStatus":            "Ready",
		"duration":              0,
		"transcript":            "Updated at 14:30",
		"isSpeaking":            false,
		"companionMode":         "idle",
		"isIdleMode":            true,
		"isDarkMode":            false,
		"currentDate":           "Sat, Mar 01",
		"intelligentIslandType": "focus_mode",
		"suggestion":            "Focus time 🌙",
		"suggestionIcon":        "moon.stars.fill",
	}
	for k, v := range want {
		if state[k] != v {
			t.Errorf("state[%q] = %v, want %v", k, state[k], v)
		}
	}
}

func TestContentStateDarkModeBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		dark bool
	}{
		{6, true},
		{7, false},
		{18, false},
		{19, true},
		{23, true},
	}
	for _, tc := range cases {
		now := time.Date(2025, 3, 1, tc.hour, 0, 0, 0, time.UTC)
		state := contentState(now, Dashboard, nil, registry.EmailData{}, nil, nil)
		if state["isDarkMode"] != tc.dark {
			t.Errorf("hour %d: isDarkMode = %v, want %v", tc.hour, state["isDarkMode"], tc.dark)
		}
	}
}

func TestContentStateWeatherPassthrough(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	w := &registry.Weather{
		Temp:      21.5,
		Condition: "Partly cloudy",
		Icon:      "cloud.sun.fill",
		Sunrise:   "6:41 AM",
		Sunset:    "6:12 PM",
		Location:  "Lisbon",
	}
	state := contentState(now, Sunrise, nil, registry.EmailData{}, w, nil)

	if state["weatherTemp"] != 21.5 {
		t.Errorf("weatherTemp = %v", state["weatherTemp"])
	}
	if state["weatherCondition"] != "Partly cloudy" {
		t.Errorf("weatherCondition = %v", state["weatherCondition"])
	}
	if state["locationName"] != "Lisbon" {
		t.Errorf("locationName = %v", state["locationName"])
	}
	if state["suggestion"] != "Good morning ☀️" {
		t.Errorf("suggestion = %v", state["suggestion"])
	}

	// Without a snapshot, no weather keys appear.
	state = contentState(now, Sunrise, nil, registry.EmailData{}, nil, nil)
	if _, ok := state["weatherTemp"]; ok {
		t.Error("weatherTemp present without a weather snapshot")
	}
}

func TestContentStateDashboardEmail(t *testing.T) {
	now := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	events := []registry.CalendarEvent{{Title: "1:1", Time: "2:00 PM"}}
	email := registry.EmailData{
		UnreadCount: 7,
		RecentEmails: []registry.Email{
			{Sender: "Dana", Subject: "Q2 plan", Time: "10:48 AM"},
		},
	}
	state := contentState(now, Dashboard, events, email, nil, nil)

	if state["nextEventTitle"] != "1:1" || state["nextEventTime"] != "2:00 PM" {
		t.Errorf("next event = %v / %v", state["nextEventTitle"], state["nextEventTime"])
	}
	if state["unreadEmailCount"] != 7 {
		t.Errorf("unreadEmailCount = %v", state["unreadEmailCount"])
	}
	if state["topEmailSubject"] != "Q2 plan" {
		t.Errorf("topEmailSubject = %v", state["topEmailSubject"])
	}

	// Zero unread: the email keys stay out of the payload.
	state = contentState(now, Dashboard, events, registry.EmailData{}, nil, nil)
	if _, ok := state["unreadEmailCount"]; ok {
		t.Error("unreadEmailCount present with zero unread")
	}
}

func TestContentStateMarathonCountsEvents(t *testing.T) {
	now := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	events := []registry.CalendarEvent{
		{Title: "Standup", Time: "9:00 AM"},
		{Title: "Planning", Time: "11:30 AM"},
		{Title: "Retro", Time: "3:00 PM"},
	}
	state := contentState(now, MeetingMarathon, events, registry.EmailData{}, nil, nil)

	if state["suggestion"] != "3 meetings today" {
		t.Errorf("suggestion = %v", state["suggestion"])
	}
	if state["nextEventTitle"] != "Standup" {
		t.Errorf("nextEventTitle = %v", state["nextEventTitle"])
	}
}
