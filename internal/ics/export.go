package ics

import (
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/text/language"

	"github.com/richard-uk1/plannr/internal/icalendar"
)

// Export rebuilds a parsed calendar as a golang-ical document. Properties
// the parser does not model (extensions, VALARMs, VTIMEZONEs) are not
// carried over. Text values are handed over unescaped; golang-ical escapes
// TEXT properties when it serializes.
func Export(cal icalendar.Calendar) *ical.Calendar {
	out := ical.NewCalendar()
	out.SetProductId(cal.ProdID)
	out.SetVersion(cal.Version)
	if cal.CalScale != "" {
		out.SetCalscale(string(cal.CalScale))
	}
	if cal.Method != "" {
		out.SetMethod(ical.Method(cal.Method))
	}
	for _, ev := range cal.Events {
		exportEvent(out.AddEvent(ev.UID), ev)
	}
	return out
}

// ExportString serializes calendars one after another with CRLF line
// endings, whatever the host platform.
func ExportString(cals []icalendar.Calendar) string {
	var b strings.Builder
	for _, cal := range cals {
		b.WriteString(Export(cal).Serialize(ical.WithNewLineWindows))
	}
	return b.String()
}

func exportEvent(e *ical.VEvent, ev icalendar.Event) {
	set := func(p ical.ComponentProperty, v string, params ...ical.PropertyParameter) {
		e.SetProperty(p, v, params...)
	}

	if ev.Timestamp != nil {
		set(ical.ComponentPropertyDtstamp, ev.Timestamp.String())
	}
	if ev.Created != nil {
		set(ical.ComponentPropertyCreated, ev.Created.String())
	}
	if ev.LastModified != nil {
		set(ical.ComponentPropertyLastModified, ev.LastModified.String())
	}
	if ev.Start != nil {
		set(ical.ComponentPropertyDtStart, ev.Start.Value.String(), timeParams(*ev.Start)...)
	}
	if ev.End != nil {
		switch {
		case ev.End.Time != nil:
			set(ical.ComponentPropertyDtEnd, ev.End.Time.Value.String(), timeParams(*ev.End.Time)...)
		case ev.End.Duration != nil:
			set(ical.ComponentPropertyDuration, ev.End.Duration.String())
		}
	}
	if ev.Class != "" && ev.Class != icalendar.ClassPublic {
		set(ical.ComponentPropertyClass, string(ev.Class))
	}
	if ev.Status != "" {
		set(ical.ComponentPropertyStatus, string(ev.Status))
	}
	if ev.Priority != 0 {
		set(ical.ComponentPropertyPriority, ev.Priority.String())
	}
	if ev.Sequence != 0 {
		set(ical.ComponentPropertySequence, strconv.Itoa(ev.Sequence))
	}
	if ev.Transparency == icalendar.Transparent {
		set(ical.ComponentPropertyTransp, string(ev.Transparency))
	}
	for _, f := range []struct {
		prop ical.ComponentProperty
		text *icalendar.AnnotatedText
	}{
		{ical.ComponentPropertySummary, ev.Summary},
		{ical.ComponentPropertyDescription, ev.Description},
		{ical.ComponentPropertyLocation, ev.Location},
	} {
		if f.text != nil {
			set(f.prop, f.text.Text, textParams(*f.text)...)
		}
	}
	if ev.Geo != nil {
		set(ical.ComponentPropertyGeo, ev.Geo.String())
	}
	if o := ev.Organizer; o != nil {
		var params []ical.PropertyParameter
		if cnSafe(o.CommonName) {
			params = append(params, ical.WithCN(o.CommonName))
		}
		// SENT-BY is dropped: golang-ical backslash-escapes unquoted
		// parameter values, which breaks the ':' of a mailto URI.
		set(ical.ComponentPropertyOrganizer, string(o.Address), params...)
	}
	if rid := ev.RecurrenceID; rid != nil {
		params := timeParams(rid.Time)
		if rid.Range != "" {
			params = append(params, param("RANGE", string(rid.Range)))
		}
		set(ical.ComponentPropertyRecurrenceId, rid.Time.Value.String(), params...)
	}
	if ev.RRule != nil {
		e.AddRrule(ev.RRule.String())
	}
	if ev.URL != "" {
		set(ical.ComponentPropertyUrl, string(ev.URL))
	}

	for _, a := range ev.Attendees {
		params := []ical.PropertyParameter{
			param("ROLE", string(a.Role)),
			param("PARTSTAT", string(a.PartStat)),
		}
		if a.CUType != "" && a.CUType != icalendar.CUTypeIndividual {
			params = append(params, param("CUTYPE", string(a.CUType)))
		}
		if a.RSVP {
			params = append(params, param("RSVP", "TRUE"))
		}
		if cnSafe(a.CommonName) {
			params = append(params, ical.WithCN(a.CommonName))
		}
		e.AddProperty(ical.ComponentPropertyAttendee, string(a.Address), params...)
	}
	for _, a := range ev.Attachments {
		if a.Data != nil {
			e.AddProperty(ical.ComponentPropertyAttach, a.Data.String(),
				param("ENCODING", "BASE64"), param("VALUE", "BINARY"))
			continue
		}
		var params []ical.PropertyParameter
		if a.FormatType != "" {
			params = append(params, param("FMTTYPE", a.FormatType))
		}
		e.AddProperty(ical.ComponentPropertyAttach, string(a.URI), params...)
	}
	// One CATEGORIES line per value, since a joined list would have its
	// separators escaped.
	for i, c := range ev.Categories {
		var params []ical.PropertyParameter
		if i < len(ev.CategoryLanguages) && ev.CategoryLanguages[i] != language.Und {
			params = append(params, param("LANGUAGE", ev.CategoryLanguages[i].String()))
		}
		e.AddProperty(ical.ComponentPropertyCategories, c, params...)
	}
	for _, c := range ev.Comments {
		e.AddProperty(ical.ComponentPropertyComment, c.Text, textParams(c)...)
	}
	for _, c := range ev.Contacts {
		e.AddProperty(ical.ComponentPropertyContact, c.Text, textParams(c)...)
	}
	for _, ex := range ev.ExDates {
		e.AddProperty(ical.ComponentPropertyExdate, ex.Value.String(), timeParams(ex)...)
	}
	for _, rd := range ev.RDates {
		if rd.Period != nil {
			params := []ical.PropertyParameter{param("VALUE", "PERIOD")}
			if !rd.TZID.IsZero() {
				params = append(params, param("TZID", rd.TZID.String()))
			}
			e.AddProperty(ical.ComponentPropertyRdate, rd.Period.String(), params...)
			continue
		}
		e.AddProperty(ical.ComponentPropertyRdate, rd.Value.String(),
			timeParams(icalendar.EventTime{Value: rd.Value, TZID: rd.TZID})...)
	}
}

// cnSafe reports whether name survives golang-ical's parameter writer,
// which backslash-escapes these characters instead of quoting the value.
// Names that would not are left out.
func cnSafe(name string) bool {
	return name != "" && !strings.ContainsAny(name, ",\";:\\'")
}

func param(key, value string) ical.PropertyParameter {
	return &ical.KeyValues{Key: key, Value: []string{value}}
}

func timeParams(t icalendar.EventTime) []ical.PropertyParameter {
	var params []ical.PropertyParameter
	if !t.Value.HasTime {
		params = append(params, param("VALUE", "DATE"))
	}
	if !t.TZID.IsZero() {
		params = append(params, param("TZID", t.TZID.String()))
	}
	return params
}

func textParams(t icalendar.AnnotatedText) []ical.PropertyParameter {
	var params []ical.PropertyParameter
	if t.Language != language.Und {
		params = append(params, param("LANGUAGE", t.Language.String()))
	}
	if t.AltRep != "" {
		params = append(params, param("ALTREP", string(t.AltRep)))
	}
	return params
}
