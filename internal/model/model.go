package model

import (
	"errors"
	"time"
)

// ErrEndBeforeStart is returned by NewInterval for an inverted span.
var ErrEndBeforeStart = errors.New("interval end is before start")

// EventInterval is the span an event occupies. For all-day events Start and
// End are midnights in the event's location and End is exclusive.
type EventInterval struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// NewInterval checks that end does not precede start.
func NewInterval(start, end time.Time, allDay bool) (EventInterval, error) {
	if end.Before(start) {
		return EventInterval{}, ErrEndBeforeStart
	}
	return EventInterval{Start: start, End: end, AllDay: allDay}, nil
}

func (iv EventInterval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps reports whether iv touches [start, end]. Both ends are inclusive
// so that zero-length events on a window edge are kept.
func (iv EventInterval) Overlaps(start, end time.Time) bool {
	return !iv.End.Before(start) && !end.Before(iv.Start)
}

// Event represents a logical calendar event before recurrence expansion.
type Event struct {
	SourceID string // calendar source ID (config source key)
	UID      string // iCalendar UID

	Summary     string
	Description string
	Location    string

	Interval EventInterval
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
