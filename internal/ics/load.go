package ics

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richard-uk1/plannr/internal/icalendar"
	appLog "github.com/richard-uk1/plannr/internal/log"
	"github.com/richard-uk1/plannr/internal/model"
)

// ParsedEvent is the normalized representation of a VEVENT. Recurrence
// expansion operates on this type.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Cancelled   bool

	Start   time.Time
	End     time.Time
	AllDay  bool
	StartTZ string
	EndTZ   string

	RRule      *icalendar.Recur
	ExDates    []time.Time
	RDates     []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT is an override for a recurring instance
}

// Interval returns the event's own span.
func (ev ParsedEvent) Interval() model.EventInterval {
	return model.EventInterval{Start: ev.Start, End: ev.End, AllDay: ev.AllDay}
}

// Event drops the recurrence data.
func (ev ParsedEvent) Event() model.Event {
	return model.Event{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Interval:    ev.Interval(),
	}
}

// Document is one parsed payload: the calendars as the parser produced
// them plus the events flattened for expansion.
type Document struct {
	Source    Source
	Calendars []icalendar.Calendar
	Events    []ParsedEvent
}

// LoadOptions controls parsing and time resolution.
type LoadOptions struct {
	Parse icalendar.Options
	// Location resolves floating times and unknown TZIDs. Nil means UTC.
	Location *time.Location
}

// Load parses body and derives ParsedEvents from its VEVENTs. A parse
// error fails the whole payload. Events whose times cannot be placed are
// logged and skipped.
func Load(src Source, body []byte, opts LoadOptions) (Document, error) {
	if len(body) == 0 {
		return Document{}, errors.New("empty ICS body")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	cals, err := icalendar.ParseWithOptions(icalendar.NormalizeLineEndings(string(body)), opts.Parse)
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL), "path", src.Path)
		return Document{}, fmt.Errorf("%s: %w", src.ID, err)
	}

	doc := Document{Source: src, Calendars: cals}
	zones := newZoneResolver(opts.Location)
	for _, cal := range cals {
		for _, ev := range cal.Events {
			pe, err := toParsedEvent(src, ev, zones)
			if err != nil {
				appLog.Warn("ics vevent skipped", "id", src.ID, "uid", ev.UID, "reason", err.Error())
				continue
			}
			doc.Events = append(doc.Events, pe)
		}
	}

	appLog.Info("ics parse completed", "id", src.ID, "calendars", len(cals), "event_count", len(doc.Events))
	return doc, nil
}

func toParsedEvent(src Source, ev icalendar.Event, zones *zoneResolver) (ParsedEvent, error) {
	if ev.Start == nil {
		return ParsedEvent{}, errors.New("no DTSTART")
	}

	out := ParsedEvent{
		Source:      src,
		UID:         ev.UID,
		Seq:         ev.Sequence,
		Summary:     textOf(ev.Summary),
		Description: textOf(ev.Description),
		Location:    textOf(ev.Location),
		Cancelled:   ev.Status == icalendar.StatusCancelled,
		AllDay:      ev.AllDay(),
		StartTZ:     ev.Start.TZID.ID,
		RRule:       ev.RRule,
	}
	out.Start = zones.resolve(*ev.Start)

	switch {
	case ev.End != nil && ev.End.Time != nil:
		out.End = zones.resolve(*ev.End.Time)
		out.EndTZ = ev.End.Time.TZID.ID
	case ev.End != nil && ev.End.Duration != nil:
		out.End = ev.End.Duration.AddTo(out.Start)
	case out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		out.End = out.Start
	}
	iv, err := model.NewInterval(out.Start, out.End, out.AllDay)
	if err != nil {
		return ParsedEvent{}, err
	}
	out.Start, out.End = iv.Start, iv.End

	for _, ex := range ev.ExDates {
		out.ExDates = append(out.ExDates, zones.resolve(ex))
	}
	for _, rd := range ev.RDates {
		if rd.Period != nil {
			out.RDates = append(out.RDates, zones.resolveDateTime(rd.Period.Start, rd.TZID))
			continue
		}
		out.RDates = append(out.RDates, zones.resolve(icalendar.EventTime{Value: rd.Value, TZID: rd.TZID}))
	}
	if ev.RecurrenceID != nil {
		rid := zones.resolve(ev.RecurrenceID.Time)
		out.Recurrence = &rid
		out.IsOverride = true
	}
	return out, nil
}

func textOf(t *icalendar.AnnotatedText) string {
	if t == nil {
		return ""
	}
	return t.Text
}

// zoneResolver maps TZIDs to locations through the system zone database.
// Unknown zones fall back to the default location and are reported once.
type zoneResolver struct {
	def *time.Location

	mu    sync.Mutex
	cache map[string]*time.Location
}

func newZoneResolver(def *time.Location) *zoneResolver {
	return &zoneResolver{def: def, cache: make(map[string]*time.Location)}
}

func (z *zoneResolver) location(tz icalendar.TZID) *time.Location {
	if tz.IsZero() {
		return z.def
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if loc, ok := z.cache[tz.ID]; ok {
		return loc
	}
	id := tz.ID
	if tz.Global {
		// Globally unique ids are often an Olson name behind a vendor
		// prefix; try each shorter suffix.
		for rest := id; ; {
			i := strings.Index(rest, "/")
			if i < 0 {
				break
			}
			rest = rest[i+1:]
			if _, err := time.LoadLocation(rest); err == nil {
				id = rest
				break
			}
		}
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		appLog.Warn("unknown TZID; using default zone", "tzid", tz.String(), "default", z.def.String())
		loc = z.def
	}
	z.cache[tz.ID] = loc
	return loc
}

func (z *zoneResolver) resolve(et icalendar.EventTime) time.Time {
	if !et.Value.HasTime {
		return et.Value.Date.In(z.location(et.TZID))
	}
	return z.resolveDateTime(icalendar.DateTime{Date: et.Value.Date, Time: et.Value.Time}, et.TZID)
}

func (z *zoneResolver) resolveDateTime(dt icalendar.DateTime, tz icalendar.TZID) time.Time {
	if dt.Time.UTC {
		return dt.In(time.UTC)
	}
	return dt.In(z.location(tz))
}
