package icalendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const maxDurationDigits = 9

// Duration is a nominal duration. The week form is exclusive: a parsed
// duration has either Weeks or the day and time components.
type Duration struct {
	Negative bool
	Weeks    int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
}

// ParseDuration parses [+|-]P(nW | [nD][T[nH][nM][nS]]).
func ParseDuration(s string) (Duration, error) {
	d, rest, err := parseDuration(s)
	if err != nil {
		return Duration{}, err
	}
	if rest != "" {
		return Duration{}, errTrailing("duration", rest)
	}
	return d, nil
}

func parseDuration(s string) (Duration, string, error) {
	var d Duration
	rest, neg, _ := cutSign(s)
	d.Negative = neg
	if rest == "" || rest[0] != 'P' {
		return Duration{}, s, &LiteralError{Expected: "P", Input: clip(rest)}
	}
	rest = rest[1:]

	hasDays := false
	if rest != "" && isDigit(rest[0]) {
		n, after, err := parseDigits(rest, "duration", 1, maxDurationDigits, 0, 999999999)
		if err != nil {
			return Duration{}, s, err
		}
		switch {
		case strings.HasPrefix(after, "W"):
			d.Weeks = n
			return d, after[1:], nil
		case strings.HasPrefix(after, "D"):
			d.Days = n
			hasDays = true
			rest = after[1:]
		default:
			return Duration{}, s, &LiteralError{Expected: "W or D", Input: clip(after)}
		}
	}

	if rest == "" || rest[0] != 'T' {
		if !hasDays {
			return Duration{}, s, &LiteralError{Expected: "T", Input: clip(rest)}
		}
		return d, rest, nil
	}
	rest = rest[1:]

	units := "HMS"
	targets := []*int{&d.Hours, &d.Minutes, &d.Seconds}
	seen := false
	for rest != "" && isDigit(rest[0]) {
		n, after, err := parseDigits(rest, "duration", 1, maxDurationDigits, 0, 999999999)
		if err != nil {
			return Duration{}, s, err
		}
		k := -1
		if after != "" {
			k = strings.IndexByte(units, after[0])
		}
		if k < 0 {
			return Duration{}, s, &LiteralError{Expected: "one of " + units, Input: clip(after)}
		}
		*targets[k] = n
		units, targets = units[k+1:], targets[k+1:]
		rest = after[1:]
		seen = true
	}
	if !seen {
		return Duration{}, s, &LiteralError{Expected: "H, M or S component", Input: clip(rest)}
	}
	return d, rest, nil
}

// String formats d canonically: zero components are left out and the zero
// duration is PT0S. It does not keep the written shape, so P1DT0H formats
// as P1D; parsing either gives an equal Duration.
func (d Duration) String() string {
	var b strings.Builder
	if d.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	if d.Weeks != 0 && d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0 {
		b.WriteString(strconv.Itoa(d.Weeks))
		b.WriteByte('W')
		return b.String()
	}
	days := d.Days + 7*d.Weeks
	if days != 0 {
		b.WriteString(strconv.Itoa(days))
		b.WriteByte('D')
	}
	if d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0 {
		if days == 0 {
			b.WriteString("T0S")
		}
		return b.String()
	}
	b.WriteByte('T')
	if d.Hours != 0 {
		fmt.Fprintf(&b, "%dH", d.Hours)
	}
	if d.Minutes != 0 {
		fmt.Fprintf(&b, "%dM", d.Minutes)
	}
	if d.Seconds != 0 {
		fmt.Fprintf(&b, "%dS", d.Seconds)
	}
	return b.String()
}

// Std converts d using 24 hour days.
func (d Duration) Std() time.Duration {
	days := time.Duration(d.Weeks*7 + d.Days)
	v := days*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second
	if d.Negative {
		return -v
	}
	return v
}

// AddTo adds d to t, stepping days and weeks on the calendar so that a day
// stays a day across daylight saving changes.
func (d Duration) AddTo(t time.Time) time.Time {
	sign := 1
	if d.Negative {
		sign = -1
	}
	t = t.AddDate(0, 0, sign*(d.Weeks*7+d.Days))
	clock := time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second
	return t.Add(time.Duration(sign) * clock)
}

// Period is a span of time: an explicit start and end, or a start and a
// duration when HasDuration is set.
type Period struct {
	Start       DateTime
	End         DateTime
	Duration    Duration
	HasDuration bool
}

// ParsePeriod parses start/end or start/duration.
func ParsePeriod(s string) (Period, error) {
	start, rest, err := parseDateTime(s, true)
	if err != nil {
		return Period{}, err
	}
	if rest == "" || rest[0] != '/' {
		return Period{}, &LiteralError{Expected: "/", Input: clip(rest)}
	}
	rest = rest[1:]

	p := Period{Start: start}
	if r, _, _ := cutSign(rest); strings.HasPrefix(r, "P") {
		if p.Duration, rest, err = parseDuration(rest); err != nil {
			return Period{}, err
		}
		p.HasDuration = true
	} else if p.End, rest, err = parseDateTime(rest, true); err != nil {
		return Period{}, err
	}
	if rest != "" {
		return Period{}, errTrailing("period", rest)
	}
	return p, nil
}

func (p Period) String() string {
	if p.HasDuration {
		return p.Start.String() + "/" + p.Duration.String()
	}
	return p.Start.String() + "/" + p.End.String()
}
