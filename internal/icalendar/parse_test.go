package icalendar

import (
	"strings"
	"testing"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func doc(lines ...string) string { return strings.Join(lines, "\r\n") + "\r\n" }

func calendarDoc(body ...string) string {
	lines := append([]string{"BEGIN:VCALENDAR", "PRODID:-//test//", "VERSION:2.0"}, body...)
	return doc(append(lines, "END:VCALENDAR")...)
}

func eventDoc(props ...string) string {
	body := append([]string{"BEGIN:VEVENT", "UID:1@example.com", "DTSTAMP:20240101T000000Z"}, props...)
	return calendarDoc(append(body, "END:VEVENT")...)
}

func parseEvent(t *testing.T, opts Options, props ...string) Event {
	t.Helper()
	cals, err := ParseWithOptions(eventDoc(props...), opts)
	require.NoError(t, err)
	require.Len(t, cals, 1)
	require.Len(t, cals[0].Events, 1)
	return cals[0].Events[0]
}

func TestParseMinimalCalendar(t *testing.T) {
	cals, err := Parse("BEGIN:VCALENDAR\r\nPRODID:-//test//\r\nVERSION:2.0\r\nEND:VCALENDAR")
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, "-//test//", cals[0].ProdID)
	assert.Equal(t, "2.0", cals[0].Version)
	assert.Equal(t, Gregorian, cals[0].CalScale)
	assert.Empty(t, cals[0].Events)
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "\r\n", "  \r\n\t"} {
		cals, err := Parse(in)
		assert.NoError(t, err)
		assert.Empty(t, cals)
	}
}

func TestParseMultipleCalendars(t *testing.T) {
	in := calendarDoc() + doc("BEGIN:VCALENDAR", "PRODID:-//second//", "VERSION:2.0", "METHOD:PUBLISH", "END:VCALENDAR")
	cals, err := Parse(in)
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "-//second//", cals[1].ProdID)
	assert.Equal(t, "PUBLISH", cals[1].Method)
}

func TestParseCalendarCardinality(t *testing.T) {
	_, err := Parse(doc("BEGIN:VCALENDAR", "VERSION:2.0", "END:VCALENDAR"))
	var cerr *CardinalityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "PRODID", cerr.Property)
	assert.Equal(t, Missing, cerr.Problem)
	assert.ErrorIs(t, err, ErrCardinality)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)

	_, err = Parse(calendarDoc("VERSION:2.0"))
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, Duplicate, cerr.Problem)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 4, perr.Line)
	assert.Equal(t, "VERSION", perr.Property)
}

func TestParseCalendarPropertyErrors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  error
	}{
		"unsupported version":  {doc("BEGIN:VCALENDAR", "PRODID:x", "VERSION:1.0", "END:VCALENDAR"), ErrInvalidValue},
		"registered param":     {doc("BEGIN:VCALENDAR", "PRODID;LANGUAGE=en:x", "VERSION:2.0", "END:VCALENDAR"), ErrInvalidParam},
		"not a calendar":       {doc("BEGIN:VEVENT", "END:VEVENT"), ErrStructure},
		"truncated":            {doc("BEGIN:VCALENDAR", "PRODID:x"), ErrUnexpectedEOF},
		"malformed line":       {doc("BEGIN:VCALENDAR", "PRODID x", "END:VCALENDAR"), ErrMalformedLine},
		"truncated in skipped": {doc("BEGIN:VCALENDAR", "BEGIN:VTODO", "SUMMARY:x"), ErrUnexpectedEOF},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.ErrorIs(t, err, tt.want)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseIgnoresUnknownAndExtensions(t *testing.T) {
	cals, err := Parse(calendarDoc(
		"X-WR-CALNAME:Team",
		"X-abc-custom;X-P=1:v",
		"CALSCALE:gregorian",
		"BEGIN:VTIMEZONE",
		"TZID:Europe/Berlin",
		"BEGIN:STANDARD",
		"DTSTART:19701025T030000",
		"END:STANDARD",
		"END:VTIMEZONE",
		"BEGIN:VTODO",
		"UID:todo",
		"END:VTODO",
	))
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, Gregorian, cals[0].CalScale)
	assert.Empty(t, cals[0].Events)
}

func TestParseMismatchedEnd(t *testing.T) {
	in := calendarDoc("BEGIN:VEVENT", "UID:a", "END:VTODO", "END:VEVENT")

	_, err := Parse(in)
	assert.ErrorIs(t, err, ErrStructure)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 6, perr.Line)

	cals, err := ParseWithOptions(in, Options{Strict: false})
	require.NoError(t, err)
	require.Len(t, cals[0].Events, 1)
	assert.Equal(t, "a", cals[0].Events[0].UID)
}

func TestParseLenientMisspelledEndNeverCloses(t *testing.T) {
	in := calendarDoc("BEGIN:VEVENT", "UID:a", "END:VTODO")

	_, err := ParseWithOptions(in, Options{Strict: false})
	assert.ErrorIs(t, err, ErrStructure)
	assert.Contains(t, err.Error(), "unexpected end of input")
}

func TestParseFullEvent(t *testing.T) {
	ev := parseEvent(t, DefaultOptions(),
		"CREATED:20231201T120000Z",
		"LAST-MODIFIED:20231202T120000Z",
		"DTSTART;TZID=Europe/Berlin:20240115T090000",
		"DTEND;TZID=Europe/Berlin:20240115T100000",
		"SUMMARY;LANGUAGE=en:Stand-up\\, daily",
		"DESCRIPTION;ALTREP=\"https://example.com/desc\":Line one\\nLine two",
		"LOCATION:Room 1",
		"CLASS:PRIVATE",
		"STATUS:confirmed",
		"PRIORITY:3",
		"SEQUENCE:2",
		"TRANSP:TRANSPARENT",
		"GEO:52.52;13.405",
		"ORGANIZER;CN=\"Boss, The\";SENT-BY=\"mailto:pa@example.com\":mailto:boss@example.com",
		"ATTENDEE;ROLE=CHAIR;PARTSTAT=ACCEPTED;RSVP=TRUE:mailto:a@example.com",
		"ATTENDEE;CUTYPE=ROOM:mailto:room@example.com",
		"RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;COUNT=20",
		"EXDATE;TZID=Europe/Berlin:20240116T090000,20240117T090000",
		"RDATE;VALUE=DATE:20240301",
		"RDATE;VALUE=PERIOD:20240302T090000Z/PT1H",
		"CATEGORIES;LANGUAGE=en-GB:Work,Meetings",
		"CATEGORIES:Daily",
		"COMMENT:first",
		"COMMENT;LANGUAGE=de:zweiter",
		"CONTACT:Jane",
		"URL:https://example.com/event",
		"ATTACH;FMTTYPE=text/plain:https://example.com/notes.txt",
		"ATTACH;ENCODING=BASE64;VALUE=BINARY:aGVsbG8=",
		"X-MICROSOFT-CDO-BUSYSTATUS:BUSY",
		"RESOURCES:Projector",
	)

	assert.Equal(t, "1@example.com", ev.UID)
	require.NotNil(t, ev.Timestamp)
	assert.True(t, ev.Timestamp.Time.UTC)
	assert.Equal(t, Date{2023, 12, 2}, ev.LastModified.Date)

	require.NotNil(t, ev.Start)
	assert.Equal(t, TZID{ID: "Europe/Berlin"}, ev.Start.TZID)
	assert.Equal(t, Time{Hour: 9}, ev.Start.Value.Time)
	require.NotNil(t, ev.End)
	require.NotNil(t, ev.End.Time)
	assert.Nil(t, ev.End.Duration)
	assert.False(t, ev.AllDay())

	assert.Equal(t, "Stand-up, daily", ev.Summary.Text)
	assert.Equal(t, "en", ev.Summary.Language.String())
	assert.Equal(t, "Line one\nLine two", ev.Description.Text)
	assert.Equal(t, URI("https://example.com/desc"), ev.Description.AltRep)
	assert.Equal(t, "Room 1", ev.Location.Text)

	assert.Equal(t, ClassPrivate, ev.Class)
	assert.Equal(t, StatusConfirmed, ev.Status)
	assert.Equal(t, Priority(3), ev.Priority)
	assert.Equal(t, 2, ev.Sequence)
	assert.Equal(t, Transparent, ev.Transparency)
	assert.InDelta(t, 13.405, ev.Geo.Longitude, 1e-9)

	assert.Equal(t, "Boss, The", ev.Organizer.CommonName)
	assert.Equal(t, CalAddress("mailto:pa@example.com"), ev.Organizer.SentBy)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, RoleChair, ev.Attendees[0].Role)
	assert.Equal(t, PartStatAccepted, ev.Attendees[0].PartStat)
	assert.True(t, ev.Attendees[0].RSVP)
	assert.Equal(t, CUTypeRoom, ev.Attendees[1].CUType)
	assert.Equal(t, RoleRequired, ev.Attendees[1].Role)
	assert.Equal(t, PartStatNeedsAction, ev.Attendees[1].PartStat)

	require.NotNil(t, ev.RRule)
	assert.Equal(t, Weekly, ev.RRule.Freq)
	assert.Equal(t, 20, ev.RRule.Count)
	require.Len(t, ev.ExDates, 2)
	assert.Equal(t, "Europe/Berlin", ev.ExDates[1].TZID.ID)
	require.Len(t, ev.RDates, 2)
	assert.False(t, ev.RDates[0].Value.HasTime)
	require.NotNil(t, ev.RDates[1].Period)
	assert.Equal(t, Duration{Hours: 1}, ev.RDates[1].Period.Duration)

	assert.Equal(t, []string{"Work", "Meetings", "Daily"}, ev.Categories)
	require.Len(t, ev.CategoryLanguages, 3)
	assert.Equal(t, "en-GB", ev.CategoryLanguages[1].String())
	assert.Equal(t, language.Und, ev.CategoryLanguages[2])
	require.Len(t, ev.Comments, 2)
	assert.Equal(t, "de", ev.Comments[1].Language.String())
	assert.Equal(t, "Jane", ev.Contacts[0].Text)
	assert.Equal(t, URI("https://example.com/event"), ev.URL)

	require.Len(t, ev.Attachments, 2)
	assert.Equal(t, "text/plain", ev.Attachments[0].FormatType)
	assert.Equal(t, Binary("hello"), ev.Attachments[1].Data)
}

func TestParseEventDefaults(t *testing.T) {
	ev := parseEvent(t, DefaultOptions(), "DTSTART;VALUE=DATE:20240101", "DURATION:P1D")
	assert.Equal(t, ClassPublic, ev.Class)
	assert.Equal(t, Opaque, ev.Transparency)
	assert.Equal(t, Priority(0), ev.Priority)
	assert.True(t, ev.AllDay())
	require.NotNil(t, ev.End)
	assert.Equal(t, &Duration{Days: 1}, ev.End.Duration)
	assert.Nil(t, ev.RRule)
}

func TestParseEventSkipsAlarms(t *testing.T) {
	ev := parseEvent(t, DefaultOptions(),
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"TRIGGER:-PT15M",
		"SUMMARY:not the event summary",
		"END:VALARM",
		"SUMMARY:Event",
	)
	assert.Equal(t, "Event", ev.Summary.Text)
}

func TestParseEventErrors(t *testing.T) {
	tests := []struct {
		name  string
		props []string
		want  error
		check func(t *testing.T, err error)
	}{
		{"duplicate summary", []string{"SUMMARY:a", "SUMMARY:b"}, ErrCardinality, func(t *testing.T, err error) {
			var cerr *CardinalityError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, Duplicate, cerr.Problem)
			assert.Equal(t, "SUMMARY", cerr.Property)
		}},
		{"end and duration", []string{"DTSTART:20240101T100000Z", "DTEND:20240101T110000Z", "DURATION:PT1H"}, ErrCardinality, func(t *testing.T, err error) {
			var cerr *CardinalityError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, Exclusive, cerr.Problem)
			assert.Equal(t, "DURATION", cerr.Other)
		}},
		{"tzid on utc", []string{"DTSTART;TZID=Europe/Berlin:20240101T100000Z"}, ErrInvalidParam, nil},
		{"value date with time", []string{"DTSTART;VALUE=DATE:20240101T100000"}, ErrInvalidValue, nil},
		{"value date-time without time", []string{"DTSTART;VALUE=DATE-TIME:20240101"}, ErrInvalidValue, nil},
		{"period on dtstart", []string{"DTSTART;VALUE=PERIOD:20240101T100000Z/PT1H"}, ErrInvalidParam, nil},
		{"text value on exdate", []string{"DTSTART:20240101T100000Z", "EXDATE;VALUE=TEXT:tomorrow"}, ErrInvalidParam, nil},
		{"priority above nine", []string{"PRIORITY:10"}, ErrInvalidValue, nil},
		{"negative duration", []string{"DURATION:-PT1H"}, ErrInvalidValue, nil},
		{"local created", []string{"CREATED:20240101T100000"}, ErrInvalidValue, nil},
		{"bad status", []string{"STATUS:DONE"}, ErrInvalidValue, nil},
		{"bad rrule", []string{"RRULE:COUNT=2"}, ErrInvalidValue, nil},
		{"bad url", []string{"URL:no scheme"}, ErrInvalidValue, nil},
		{"negative sequence", []string{"SEQUENCE:-1"}, ErrInvalidValue, nil},
		{"half binary attach", []string{"ATTACH;ENCODING=BASE64:aGVsbG8="}, ErrInvalidParam, nil},
		{"unescaped semicolon", []string{"SUMMARY:a;b"}, ErrInvalidValue, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(eventDoc(tt.props...))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestParseEventMissingUID(t *testing.T) {
	_, err := Parse(calendarDoc("BEGIN:VEVENT", "SUMMARY:x", "END:VEVENT"))
	var cerr *CardinalityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "VEVENT", cerr.Component)
	assert.Equal(t, "UID", cerr.Property)
	assert.Equal(t, Missing, cerr.Problem)
}

func TestParseLenientEvent(t *testing.T) {
	opts := Options{Strict: false}
	ev := parseEvent(t, opts,
		"PRIORITY:12",
		"DURATION:-PT1H",
		"CREATED:20240101T100000",
		"DTSTART:990101",
		"ATTACH;ENCODING=BASE64:aGVsbG8=",
	)
	assert.Equal(t, Priority(9), ev.Priority)
	assert.True(t, ev.End.Duration.Negative)
	assert.False(t, ev.Created.Time.UTC)
	assert.Equal(t, Date{99, 1, 1}, ev.Start.Value.Date)
	assert.Equal(t, Binary("hello"), ev.Attachments[0].Data)
}

func TestParseErrorLineCountsFolds(t *testing.T) {
	in := "BEGIN:VCALENDAR\r\nPRODID:-//a\r\n  long//\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:x\r\nDTSTART:2024\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse(in)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 7, perr.Line)
	assert.Equal(t, "DTSTART", perr.Property)
}

// TestParseAgreesWithGoICal decodes the same document with an independent
// decoder and compares what both see.
func TestParseAgreesWithGoICal(t *testing.T) {
	in := calendarDoc(
		"BEGIN:VEVENT",
		"UID:oracle-1",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240105T120000Z",
		"SUMMARY:Lunch",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:oracle-2",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;VALUE=DATE:20240106",
		"SUMMARY:Holiday",
		"END:VEVENT",
	)

	cals, err := Parse(in)
	require.NoError(t, err)
	require.Len(t, cals, 1)

	other, err := ical.NewDecoder(strings.NewReader(in)).Decode()
	require.NoError(t, err)
	assert.Equal(t, other.Props.Get(ical.PropProductID).Value, cals[0].ProdID)

	var uids []string
	var starts []time.Time
	for _, comp := range other.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		uids = append(uids, comp.Props.Get(ical.PropUID).Value)
		start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
		require.NoError(t, err)
		starts = append(starts, start)
	}

	require.Len(t, cals[0].Events, len(uids))
	for i, ev := range cals[0].Events {
		assert.Equal(t, uids[i], ev.UID)
		assert.True(t, starts[i].Equal(ev.Start.Value.In(time.UTC)), "start of %s", ev.UID)
	}
}
