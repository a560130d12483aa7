package ics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-uk1/plannr/internal/icalendar"
)

const exportInput = "BEGIN:VCALENDAR\r\n" +
	"PRODID:-//plannr//test//EN\r\n" +
	"VERSION:2.0\r\n" +
	"METHOD:PUBLISH\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@example.com\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;TZID=Europe/Berlin:20240108T093000\r\n" +
	"DURATION:PT15M\r\n" +
	"SUMMARY;LANGUAGE=en:Stand-up\\, daily\\; short\r\n" +
	"DESCRIPTION:line one\\nline two\r\n" +
	"CATEGORIES;LANGUAGE=en:WORK,TEAM\\, CORE\r\n" +
	"STATUS:CONFIRMED\r\n" +
	"PRIORITY:3\r\n" +
	"ORGANIZER;CN=Lead:mailto:lead@example.com\r\n" +
	"ATTENDEE;CN=Ann;ROLE=REQ-PARTICIPANT;PARTSTAT=ACCEPTED:mailto:ann@example.com\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=10;BYDAY=MO,WE,FR\r\n" +
	"EXDATE;TZID=Europe/Berlin:20240110T093000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday@example.com\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240101\r\n" +
	"DTEND;VALUE=DATE:20240102\r\n" +
	"TRANSP:TRANSPARENT\r\n" +
	"SUMMARY:New year\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestExportReparses(t *testing.T) {
	cals, err := icalendar.Parse(exportInput)
	require.NoError(t, err)

	out := ExportString(cals)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))

	again, err := icalendar.Parse(out)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "-//plannr//test//EN", again[0].ProdID)
	assert.Equal(t, "PUBLISH", again[0].Method)
	require.Len(t, again[0].Events, 2)

	ev := again[0].Events[0]
	assert.Equal(t, "standup@example.com", ev.UID)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, "Stand-up, daily; short", ev.Summary.Text)
	assert.Equal(t, "en", ev.Summary.Language.String())
	require.NotNil(t, ev.Description)
	assert.Equal(t, "line one\nline two", ev.Description.Text)
	assert.Equal(t, []string{"WORK", "TEAM, CORE"}, ev.Categories)
	require.Len(t, ev.CategoryLanguages, 2)
	assert.Equal(t, "en", ev.CategoryLanguages[1].String())

	require.NotNil(t, ev.Start)
	assert.Equal(t, "Europe/Berlin", ev.Start.TZID.ID)
	assert.Equal(t, "20240108T093000", ev.Start.Value.String())
	require.NotNil(t, ev.End)
	require.NotNil(t, ev.End.Duration)
	assert.Equal(t, "PT15M", ev.End.Duration.String())

	require.NotNil(t, ev.RRule)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=10;BYDAY=MO,WE,FR", ev.RRule.String())
	require.Len(t, ev.ExDates, 1)
	assert.Equal(t, "20240110T093000", ev.ExDates[0].Value.String())

	assert.Equal(t, icalendar.StatusConfirmed, ev.Status)
	assert.Equal(t, icalendar.Priority(3), ev.Priority)
	require.NotNil(t, ev.Organizer)
	assert.Equal(t, "Lead", ev.Organizer.CommonName)
	require.Len(t, ev.Attendees, 1)
	assert.Equal(t, icalendar.CalAddress("mailto:ann@example.com"), ev.Attendees[0].Address)
	assert.Equal(t, "Ann", ev.Attendees[0].CommonName)

	holiday := again[0].Events[1]
	assert.True(t, holiday.AllDay())
	require.NotNil(t, holiday.End)
	require.NotNil(t, holiday.End.Time)
	assert.Equal(t, "20240102", holiday.End.Time.Value.String())
	assert.Equal(t, icalendar.Transparent, holiday.Transparency)
}

func TestExportSeveralCalendars(t *testing.T) {
	cals, err := icalendar.Parse(exportInput + exportInput)
	require.NoError(t, err)

	out := ExportString(cals)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VCALENDAR"))
}

func TestExportLinesEndWithCRLF(t *testing.T) {
	cals, err := icalendar.Parse(exportInput)
	require.NoError(t, err)

	out := ExportString(cals)
	require.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestExportCommonNameWithSpecials(t *testing.T) {
	input := strings.Replace(exportInput,
		"ORGANIZER;CN=Lead:mailto:lead@example.com\r\n",
		"ORGANIZER;CN=\"Doe, J\":mailto:lead@example.com\r\n", 1)
	input = strings.Replace(input, "ATTENDEE;CN=Ann;", "ATTENDEE;CN=\"O'Brien\";", 1)
	cals, err := icalendar.Parse(input)
	require.NoError(t, err)
	require.Equal(t, "Doe, J", cals[0].Events[0].Organizer.CommonName)

	again, err := icalendar.Parse(ExportString(cals))
	require.NoError(t, err)
	ev := again[0].Events[0]
	require.NotNil(t, ev.Organizer)
	assert.Equal(t, icalendar.CalAddress("mailto:lead@example.com"), ev.Organizer.Address)
	assert.Empty(t, ev.Organizer.CommonName)
	require.Len(t, ev.Attendees, 1)
	assert.Empty(t, ev.Attendees[0].CommonName)
	assert.Equal(t, icalendar.PartStatAccepted, ev.Attendees[0].PartStat)
}
