package island

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// Type identifies one of the mutually exclusive presentations a device
// can be shown.
type Type string

const (
	Dashboard       Type = "dashboard"
	MeetingPrep     Type = "meeting_prep"
	MeetingMarathon Type = "meeting_marathon"
	Sunrise         Type = "sunrise"
	FocusMode       Type = "focus_mode"
	BreakingNews    Type = "breaking_news"
)

// All is the candidate set in selection order. Ranking sorts stably, so
// earlier types win exact ties.
var All = []Type{Dashboard, MeetingPrep, MeetingMarathon, Sunrise, FocusMode, BreakingNews}

// basePriorities seeds every type's score before contextual rules apply.
// Most rules below override it outright. reminder_due is not part of the
// rotation candidate set but keeps its slot in the table.
var basePriorities = map[Type]float64{
	"reminder_due":  100,
	BreakingNews:    95,
	MeetingPrep:     90,
	FocusMode:       85,
	Sunrise:         75,
	MeetingMarathon: 70,
	Dashboard:       50,
}

const (
	// recencyWindow is how long a shown presentation stays penalized.
	recencyWindow = 90 * time.Second
	recencyPenalty = 50
	// jitterRange is the half-width of the uniform random variation.
	jitterRange = 5
)

// Context is the per-cycle input to scoring, derived by the rotator.
type Context struct {
	CurrentHour        int  // 0-23, in the device's zone when known
	MeetingsToday      int
	NextMeetingMinutes *int // nil when no upcoming meeting or unparsable
	UnreadCount        int
}

// Recency is the device's last-selection bookkeeping as seen by the
// scorer. A zero LastShownAt means no prior selection.
type Recency struct {
	LastType    Type
	LastShownAt time.Time
}

// Score is one scored candidate.
type Score struct {
	Type   Type
	Score  float64
	Reason string
}

// Scorer computes contextual scores for presentation types. It is pure
// apart from the injected jitter source, and safe for concurrent use
// only when rng is nil.
type Scorer struct {
	rng *rand.Rand // jitter source; nil disables jitter
}

// NewScorer returns a Scorer with the given jitter source. Pass nil for a
// deterministic scorer (tests); production callers seed their own.
func NewScorer(rng *rand.Rand) *Scorer {
	return &Scorer{rng: rng}
}

// ScoreType computes the score and reason for a single candidate type.
// now is the cycle instant; recency elapsed time is measured against it,
// so the caller's clock and the bookkeeping writer's clock are the same.
func (s *Scorer) ScoreType(t Type, ctx Context, rec Recency, now time.Time) (float64, string) {
	score, ok := basePriorities[t]
	if !ok {
		score = 50
	}
	reason := "Base priority"

	hour := ctx.CurrentHour
	meetings := ctx.MeetingsToday
	nextMin := ctx.NextMeetingMinutes
	unread := ctx.UnreadCount
	highEmail := unread > 20

	morning := hour >= 7 && hour < 10
	workHours := hour >= 10 && hour < 17
	evening := hour >= 17 && hour < 21
	night := hour >= 21 || hour < 7

	switch t {
	case Dashboard:
		if meetings > 0 {
			score += 5
			reason = "Has meetings today"
		}
		if highEmail {
			score += 3
			reason = "High email volume"
		}
		// At night the dashboard drops to stay competitive with the
		// night rotation rather than dominating it.
		if night {
			if meetings > 0 || unread > 0 {
				score = 48
				reason = "Night - has useful content"
			} else {
				score = 45
				reason = "Night - minimal content"
			}
		}
		if workHours {
			score += 5
			reason = "Work hours - dashboard relevant"
		}

	case Sunrise:
		// Sun arc at night, sunrise in the morning, nothing during the day.
		if night {
			score = 47
			reason = "Night mode - sun arc"
		} else if morning {
			score += 40
			reason = "Morning - sunrise"
		} else {
			score -= 100
		}

	case FocusMode:
		if !night {
			score -= 100
		} else {
			reason = "Night - focus mode"
		}

	case MeetingPrep:
		// Only when a meeting starts within the next 15 minutes.
		if nextMin == nil || *nextMin > 15 || *nextMin <= 0 {
			score -= 100
		} else {
			reason = fmt.Sprintf("Meeting in %d min", *nextMin)
		}

	case MeetingMarathon:
		// 3+ meetings today with at least one still upcoming.
		if meetings >= 3 && nextMin != nil {
			if workHours || evening {
				score += 20
				reason = fmt.Sprintf("Busy day - %d meetings", meetings)
			} else if night {
				score = 50
				reason = "Night - meeting overview"
			} else {
				score += 15
				reason = "Meeting marathon day"
			}
		} else {
			score -= 100
		}

	case BreakingNews:
		switch {
		case workHours:
			score = 58
			reason = "Work hours - breaking news"
		case evening:
			score = 55
			reason = "Evening - news rotation"
		case night:
			score = 52
			reason = "Night - news rotation"
		case morning:
			score = 60
			reason = "Morning - news briefing"
		default:
			score = 45
			reason = "News available"
		}
	}

	// Anti-repetition: penalize the type shown within the last window.
	if rec.LastType == t && !rec.LastShownAt.IsZero() {
		if now.Sub(rec.LastShownAt) < recencyWindow {
			score -= recencyPenalty
			reason = "Recently shown"
		}
	}

	if s.rng != nil {
		score += s.rng.Float64()*2*jitterRange - jitterRange
	}

	if score < 0 {
		score = 0
	}
	return score, reason
}

// Rank scores every candidate type and returns them sorted by score
// descending. The sort is stable, so on exact ties the fixed candidate
// order decides.
func (s *Scorer) Rank(ctx Context, rec Recency, now time.Time) []Score {
	scores := make([]Score, 0, len(All))
	for _, t := range All {
		v, reason := s.ScoreType(t, ctx, rec, now)
		scores = append(scores, Score{Type: t, Score: v, Reason: reason})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}
