package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/richard-uk1/plannr/internal/icalendar"
	appLog "github.com/richard-uk1/plannr/internal/log"
	"github.com/richard-uk1/plannr/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// WeekStart is used for rules without WKST. The zero value is Sunday,
	// so callers normally pass the configured week start.
	WeekStart time.Weekday

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	// Occurrences are sorted by start, then UID.
	Occurrences []model.Occurrence
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences takes a list of ParsedEvent (typically for one or more ICS
// sources) and expands them into concrete occurrences within the given time
// range. It handles:
//
//   - Single non-recurring events
//   - RRULE and RDATE recurrence
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides, including cancelled instances
//   - All-day semantics
//
// All resulting occurrences are converted into the configured display
// timezone (ExpandConfig.DisplayLocation).
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by source and UID.
	type key struct{ source, uid string }
	var order []key
	baseByUID := make(map[key][]ParsedEvent)
	overridesByUID := make(map[key][]ParsedEvent)

	for _, ev := range events {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[k] = append(overridesByUID[k], ev)
			continue
		}
		if _, seen := baseByUID[k]; !seen {
			order = append(order, k)
		}
		baseByUID[k] = append(baseByUID[k], ev)
	}

	allOccurrences := make([]model.Occurrence, 0)

	for _, k := range order {
		ov := overridesByUID[k]
		truncated := false

		for _, ev := range baseByUID[k] {
			occ, hitCap, err := expandEvent(ev, ov, cfg)
			if err != nil {
				appLog.Error("expand: skipping event", err, "uid", ev.UID, "source", ev.Source.ID)
				continue
			}
			if hitCap {
				truncated = true
			}
			allOccurrences = append(allOccurrences, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Warn("expand: truncated occurrences for UID due to cap",
				"uid", k.uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(allOccurrences, func(i, j int) bool {
		a, b := allOccurrences[i], allOccurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	result.Occurrences = allOccurrences
	return result, nil
}

// expandEvent expands a single base event with its possible overrides,
// returning occurrences and whether the cap was hit.
func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	if ev.RRule == nil && len(ev.RDates) == 0 {
		return expandSingleEvent(ev, overrides, cfg), false, nil
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Occurrence {
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		ev = o
	}
	if ev.Cancelled || !ev.Interval().Overlaps(cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(ev.Event(), ev.Start, ev.End, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	loc := ev.Start.Location()

	var set rrule.Set
	if ev.RRule != nil {
		opt, err := ruleOptions(*ev.RRule, ev.Start, cfg.WeekStart)
		if err != nil {
			return nil, false, err
		}
		r, err := rrule.NewRRule(opt)
		if err != nil {
			return nil, false, fmt.Errorf("rrule %s: %w", ev.RRule, err)
		}
		set.RRule(r)
	}
	// DTSTART is always the first instance, even when the rule pattern
	// does not match it. The set drops the duplicate when it does.
	set.RDate(ev.Start)
	for _, rd := range ev.RDates {
		set.RDate(rd.In(loc))
	}
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(loc))
	}

	// Widen the lower bound by the event length so that instances which
	// started before the window but are still running are kept.
	length := ev.End.Sub(ev.Start)
	rangeStart := cfg.RangeStart.Add(-length).In(loc)
	rangeEnd := cfg.RangeEnd.In(loc)

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	days := calendarDays(ev.Start, ev.End)
	out := make([]model.Occurrence, 0, len(occTimes))
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: keep the span in calendar days in the event's zone.
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, loc)
			occEnd = occStart.AddDate(0, 0, days)
		} else {
			occEnd = occStart.Add(length)
		}

		baseEv := ev
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			baseEv = o
			occStart, occEnd = o.Start, o.End
		}
		if baseEv.Cancelled {
			continue
		}

		out = append(out, makeOccurrence(baseEv.Event(), occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap, nil
}

var rruleFreq = map[icalendar.Frequency]rrule.Frequency{
	icalendar.Yearly:   rrule.YEARLY,
	icalendar.Monthly:  rrule.MONTHLY,
	icalendar.Weekly:   rrule.WEEKLY,
	icalendar.Daily:    rrule.DAILY,
	icalendar.Hourly:   rrule.HOURLY,
	icalendar.Minutely: rrule.MINUTELY,
	icalendar.Secondly: rrule.SECONDLY,
}

// rruleDays is indexed by time.Weekday.
var rruleDays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ruleOptions translates a parsed rule into rrule-go options anchored at
// dtstart.
func ruleOptions(r icalendar.Recur, dtstart time.Time, weekStart time.Weekday) (rrule.ROption, error) {
	freq, ok := rruleFreq[r.Freq]
	if !ok {
		return rrule.ROption{}, fmt.Errorf("unsupported frequency %q", r.Freq)
	}

	opt := rrule.ROption{
		Freq:       freq,
		Dtstart:    dtstart,
		Interval:   r.EffectiveInterval(),
		Count:      r.Count,
		Bysecond:   r.BySecond,
		Byminute:   r.ByMinute,
		Byhour:     r.ByHour,
		Bymonthday: r.ByMonthDay,
		Byyearday:  r.ByYearDay,
		Byweekno:   r.ByWeekNo,
		Bymonth:    r.ByMonth,
		Bysetpos:   r.BySetPos,
	}

	wkst := weekStart
	if r.WeekStart != nil {
		wkst = *r.WeekStart
	}
	opt.Wkst = rruleDays[wkst]

	for _, wd := range r.ByDay {
		d := rruleDays[wd.Day]
		if wd.Ordinal != 0 {
			d = d.Nth(wd.Ordinal)
		}
		opt.Byweekday = append(opt.Byweekday, d)
	}

	if r.Until != nil {
		opt.Until = untilTime(*r.Until, dtstart.Location())
	}
	return opt, nil
}

// untilTime places UNTIL in time. A date bound includes the whole day and
// a floating bound is read in the event's zone.
func untilTime(v icalendar.DateOrDateTime, loc *time.Location) time.Time {
	if !v.HasTime {
		return v.Date.In(loc).AddDate(0, 0, 1).Add(-time.Second)
	}
	return v.In(loc)
}

// calendarDays counts the calendar days between two midnights, at least one.
func calendarDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// findOverrideForStart finds an override whose RECURRENCE-ID is the same
// instant as start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeOccurrence converts a (possibly overridden) event + specific
// start/end time into a model.Occurrence normalized into displayLoc.
func makeOccurrence(ev model.Event, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	occ := model.Occurrence{
		SourceID:    ev.SourceID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.Interval.AllDay,
		Start:       start.In(displayLoc),
		End:         end.In(displayLoc),
	}
	// InstanceKey: UID plus the UTC start, stable across display zones.
	occ.InstanceKey = ev.UID + "@" + start.UTC().Format(time.RFC3339)
	return occ
}
