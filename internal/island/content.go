package island

import (
	"fmt"
	"time"

	"glanced/internal/registry"
)

// contentState builds the flat payload describing what the device should
// render for the selected presentation. Keys match the client contract;
// only primitives go in.
func contentState(now time.Time, selected Type, events []registry.CalendarEvent,
	email registry.EmailData, weather *registry.Weather, nextMin *int) map[string]any {

	hour := now.Hour()
	state := map[string]any{
		"callStatus":            "Ready",
		"duration":              0,
		"transcript":            "Updated at " + now.Format("15:04"),
		"isSpeaking":            false,
		"companionMode":         "idle",
		"isIdleMode":            true,
		"isDarkMode":            hour < 7 || hour >= 19,
		"currentDate":           now.Format("Mon, Jan 02"),
		"intelligentIslandType": string(selected),
	}

	if weather != nil {
		state["weatherTemp"] = weather.Temp
		state["weatherCondition"] = weather.Condition
		state["weatherIcon"] = weather.Icon
		state["sunriseTime"] = weather.Sunrise
		state["sunsetTime"] = weather.Sunset
		state["locationName"] = weather.Location
	}

	switch selected {
	case MeetingPrep:
		if len(events) > 0 {
			next := events[0]
			state["nextEventTitle"] = next.Title
			state["nextEventTime"] = next.Time
			if nextMin != nil {
				state["suggestion"] = fmt.Sprintf("Meeting in %d min", *nextMin)
			}
			state["suggestionIcon"] = "calendar.badge.clock"
		}

	case MeetingMarathon:
		if len(events) > 0 {
			next := events[0]
			state["nextEventTitle"] = next.Title
			state["nextEventTime"] = next.Time
			state["suggestion"] = fmt.Sprintf("%d meetings today", len(events))
			state["suggestionIcon"] = "calendar.badge.exclamationmark"
		}

	case Sunrise:
		state["suggestion"] = "Good morning ☀️"
		state["suggestionIcon"] = "sunrise.fill"
		if len(events) > 0 {
			state["nextEventTitle"] = events[0].Title
			state["nextEventTime"] = events[0].Time
		}

	case FocusMode:
		state["suggestion"] = "Focus time 🌙"
		state["suggestionIcon"] = "moon.stars.fill"

	case BreakingNews:
		state["suggestion"] = "Check latest updates"
		state["suggestionIcon"] = "newspaper.fill"

	default: // dashboard
		state["suggestion"] = "Your day at a glance"
		state["suggestionIcon"] = "calendar"
		if len(events) > 0 {
			state["nextEventTitle"] = events[0].Title
			state["nextEventTime"] = events[0].Time
		}
		if email.UnreadCount > 0 {
			state["unreadEmailCount"] = email.UnreadCount
			if len(email.RecentEmails) > 0 {
				top := email.RecentEmails[0]
				state["topEmailSenders"] = top.Sender
				state["topEmailSubject"] = top.Subject
				state["topEmailTime"] = top.Time
			}
		}
	}

	return state
}
