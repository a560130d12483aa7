package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-uk1/plannr/internal/icalendar"
)

var testSource = Source{ID: "work", Name: "Work"}

// vevent builds one VEVENT with a fixed DTSTAMP.
func vevent(uid string, props ...string) string {
	lines := append([]string{"BEGIN:VEVENT", "UID:" + uid, "DTSTAMP:20240101T000000Z"}, props...)
	return strings.Join(append(lines, "END:VEVENT"), "\n")
}

// vcalendar wraps events in a calendar using bare LF line endings, which
// Load is expected to normalize.
func vcalendar(events ...string) []byte {
	parts := append([]string{"BEGIN:VCALENDAR", "PRODID:-//plannr//test//EN", "VERSION:2.0"}, events...)
	return []byte(strings.Join(append(parts, "END:VCALENDAR"), "\n") + "\n")
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func loadEvents(t *testing.T, opts LoadOptions, events ...string) []ParsedEvent {
	t.Helper()
	doc, err := Load(testSource, vcalendar(events...), opts)
	require.NoError(t, err)
	return doc.Events
}

func TestLoadTimes(t *testing.T) {
	berlin := mustLocation(t, "Europe/Berlin")
	london := mustLocation(t, "Europe/London")

	tests := []struct {
		name      string
		props     []string
		wantStart time.Time
		wantEnd   time.Time
		allDay    bool
	}{
		{
			name:      "zoned start and end",
			props:     []string{"DTSTART;TZID=Europe/Berlin:20240108T093000", "DTEND;TZID=Europe/Berlin:20240108T100000"},
			wantStart: time.Date(2024, 1, 8, 9, 30, 0, 0, berlin),
			wantEnd:   time.Date(2024, 1, 8, 10, 0, 0, 0, berlin),
		},
		{
			name:      "utc with duration",
			props:     []string{"DTSTART:20240108T093000Z", "DURATION:PT1H30M"},
			wantStart: time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC),
		},
		{
			name:      "floating uses the default zone",
			props:     []string{"DTSTART:20240108T093000"},
			wantStart: time.Date(2024, 1, 8, 9, 30, 0, 0, london),
			wantEnd:   time.Date(2024, 1, 8, 9, 30, 0, 0, london),
		},
		{
			name:      "all-day without end lasts one day",
			props:     []string{"DTSTART;VALUE=DATE:20240229"},
			wantStart: time.Date(2024, 2, 29, 0, 0, 0, 0, london),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, london),
			allDay:    true,
		},
		{
			name:      "unknown zone falls back",
			props:     []string{"DTSTART;TZID=Mars/Olympus:20240108T093000"},
			wantStart: time.Date(2024, 1, 8, 9, 30, 0, 0, london),
			wantEnd:   time.Date(2024, 1, 8, 9, 30, 0, 0, london),
		},
		{
			name:      "global zone id with vendor prefix",
			props:     []string{"DTSTART;TZID=/example.org/Europe/Berlin:20240108T093000"},
			wantStart: time.Date(2024, 1, 8, 9, 30, 0, 0, berlin),
			wantEnd:   time.Date(2024, 1, 8, 9, 30, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs := loadEvents(t, LoadOptions{Parse: icalendar.DefaultOptions(), Location: london}, vevent("e@x", tt.props...))
			require.Len(t, evs, 1)
			ev := evs[0]
			assert.True(t, tt.wantStart.Equal(ev.Start), "start %s, want %s", ev.Start, tt.wantStart)
			assert.True(t, tt.wantEnd.Equal(ev.End), "end %s, want %s", ev.End, tt.wantEnd)
			assert.Equal(t, tt.wantStart.Location().String(), ev.Start.Location().String())
			assert.Equal(t, tt.allDay, ev.AllDay)
			assert.Equal(t, testSource, ev.Source)
		})
	}
}

func TestLoadFields(t *testing.T) {
	evs := loadEvents(t, LoadOptions{Parse: icalendar.DefaultOptions()},
		vevent("series@x",
			"DTSTART:20240101T090000Z",
			"DTEND:20240101T100000Z",
			"SEQUENCE:2",
			"SUMMARY:Planning\\, weekly",
			"LOCATION:Room 1",
			"RRULE:FREQ=WEEKLY;BYDAY=MO",
			"EXDATE:20240108T090000Z",
			"RDATE:20240103T090000Z",
			"RDATE;VALUE=PERIOD:20240104T090000Z/PT1H",
		),
		vevent("series@x",
			"RECURRENCE-ID:20240115T090000Z",
			"DTSTART:20240115T110000Z",
			"DTEND:20240115T120000Z",
			"STATUS:CANCELLED",
		),
	)
	require.Len(t, evs, 2)

	base := evs[0]
	assert.Equal(t, "Planning, weekly", base.Summary)
	assert.Equal(t, "Room 1", base.Location)
	assert.Equal(t, 2, base.Seq)
	require.NotNil(t, base.RRule)
	assert.Equal(t, icalendar.Weekly, base.RRule.Freq)
	require.Len(t, base.ExDates, 1)
	assert.True(t, base.ExDates[0].Equal(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)))
	require.Len(t, base.RDates, 2)
	assert.True(t, base.RDates[1].Equal(time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)))
	assert.False(t, base.IsOverride)

	ov := evs[1]
	assert.True(t, ov.IsOverride)
	assert.True(t, ov.Cancelled)
	require.NotNil(t, ov.Recurrence)
	assert.True(t, ov.Recurrence.Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))
}

func TestLoadSkipsUnplaceableEvents(t *testing.T) {
	evs := loadEvents(t, LoadOptions{Parse: icalendar.DefaultOptions()},
		vevent("no-start@x", "SUMMARY:floating idea"),
		vevent("inverted@x", "DTSTART:20240102T000000Z", "DTEND:20240101T000000Z"),
		vevent("ok@x", "DTSTART:20240102T000000Z"),
	)
	require.Len(t, evs, 1)
	assert.Equal(t, "ok@x", evs[0].UID)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(testSource, nil, LoadOptions{})
	assert.Error(t, err)

	body := vcalendar(vevent("e@x", "DTSTART:20240101T000000Z", "PRIORITY:12"))

	_, err = Load(testSource, body, LoadOptions{Parse: icalendar.Options{Strict: true}})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "work: "), err.Error())
	var pe *icalendar.ParseError
	assert.True(t, errors.As(err, &pe))

	doc, err := Load(testSource, body, LoadOptions{Parse: icalendar.Options{Strict: false}})
	require.NoError(t, err)
	assert.Len(t, doc.Events, 1)
	assert.Len(t, doc.Calendars, 1)
}
