package icalendar

import (
	"cmp"
	"fmt"
	"time"
)

// Date is a calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate parses YYYYMMDD.
func ParseDate(s string) (Date, error) {
	d, rest, err := parseDate(s, true)
	if err != nil {
		return Date{}, err
	}
	if rest != "" {
		return Date{}, errTrailing("date", rest)
	}
	return d, nil
}

// parseDate reads a date from the front of s. Lenient mode accepts a year of
// one to four digits, sized by the length of the leading digit run.
func parseDate(s string, strict bool) (Date, string, error) {
	yearDigits := 4
	if !strict {
		run := 0
		for run < len(s) && isDigit(s[run]) {
			run++
		}
		if run > 4 && run < 8 {
			yearDigits = run - 4
		}
	}
	year, rest, err := parseDigits(s, "year", yearDigits, yearDigits, 0, 9999)
	if err != nil {
		return Date{}, s, err
	}
	month, rest, err := parseDigits(rest, "month", 2, 2, 1, 12)
	if err != nil {
		return Date{}, s, err
	}
	day, rest, err := parseDigits(rest, "day", 2, 2, 1, daysIn(month, year))
	if err != nil {
		return Date{}, s, err
	}
	return Date{Year: year, Month: month, Day: day}, rest, nil
}

func daysIn(month, year int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// isLeap follows the four year rule only.
func isLeap(year int) bool { return year%4 == 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Compare(o Date) int {
	if c := cmp.Compare(d.Year, o.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.Month, o.Month); c != 0 {
		return c
	}
	return cmp.Compare(d.Day, o.Day)
}

// Time is a time of day. Second may be 60 to hold a leap second.
type Time struct {
	Hour   int
	Minute int
	Second int
	UTC    bool
}

// ParseTime parses HHMMSS with an optional trailing Z.
func ParseTime(s string) (Time, error) {
	t, rest, err := parseTime(s)
	if err != nil {
		return Time{}, err
	}
	if rest != "" {
		return Time{}, errTrailing("time", rest)
	}
	return t, nil
}

func parseTime(s string) (Time, string, error) {
	hour, rest, err := parseDigits(s, "hour", 2, 2, 0, 23)
	if err != nil {
		return Time{}, s, err
	}
	minute, rest, err := parseDigits(rest, "minute", 2, 2, 0, 59)
	if err != nil {
		return Time{}, s, err
	}
	second, rest, err := parseDigits(rest, "second", 2, 2, 0, 60)
	if err != nil {
		return Time{}, s, err
	}
	t := Time{Hour: hour, Minute: minute, Second: second}
	if len(rest) > 0 && rest[0] == 'Z' {
		t.UTC = true
		rest = rest[1:]
	}
	return t, rest, nil
}

func (t Time) String() string {
	s := fmt.Sprintf("%02d%02d%02d", t.Hour, t.Minute, t.Second)
	if t.UTC {
		s += "Z"
	}
	return s
}

func (t Time) Compare(o Time) int {
	if c := cmp.Compare(t.Hour, o.Hour); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Minute, o.Minute); c != 0 {
		return c
	}
	if c := cmp.Compare(t.Second, o.Second); c != 0 {
		return c
	}
	return compareBool(t.UTC, o.UTC)
}

// DateTime is a date and a time of day.
type DateTime struct {
	Date Date
	Time Time
}

// ParseDateTime parses YYYYMMDDTHHMMSS[Z].
func ParseDateTime(s string) (DateTime, error) {
	dt, rest, err := parseDateTime(s, true)
	if err != nil {
		return DateTime{}, err
	}
	if rest != "" {
		return DateTime{}, errTrailing("date-time", rest)
	}
	return dt, nil
}

func parseDateTime(s string, strict bool) (DateTime, string, error) {
	d, rest, err := parseDate(s, strict)
	if err != nil {
		return DateTime{}, s, err
	}
	if rest == "" || rest[0] != 'T' {
		return DateTime{}, s, &LiteralError{Expected: "T", Input: clip(rest)}
	}
	t, rest, err := parseTime(rest[1:])
	if err != nil {
		return DateTime{}, s, err
	}
	return DateTime{Date: d, Time: t}, rest, nil
}

func (dt DateTime) String() string { return dt.Date.String() + "T" + dt.Time.String() }

// In returns dt as an instant. UTC values ignore loc. A leap second is
// normalized by the time package into the next minute.
func (dt DateTime) In(loc *time.Location) time.Time {
	if dt.Time.UTC {
		loc = time.UTC
	}
	return time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, 0, loc)
}

func (dt DateTime) Compare(o DateTime) int {
	if c := dt.Date.Compare(o.Date); c != 0 {
		return c
	}
	return dt.Time.Compare(o.Time)
}

// DateOrDateTime holds either a date or a date-time. Time is meaningful
// only when HasTime is set.
type DateOrDateTime struct {
	Date    Date
	Time    Time
	HasTime bool
}

// DateValue wraps a date.
func DateValue(d Date) DateOrDateTime { return DateOrDateTime{Date: d} }

// DateTimeValue wraps a date-time.
func DateTimeValue(dt DateTime) DateOrDateTime {
	return DateOrDateTime{Date: dt.Date, Time: dt.Time, HasTime: true}
}

// ParseDateOrDateTime parses a date optionally followed by T and a time.
func ParseDateOrDateTime(s string) (DateOrDateTime, error) {
	v, rest, err := parseDateOrDateTime(s, true)
	if err != nil {
		return DateOrDateTime{}, err
	}
	if rest != "" {
		return DateOrDateTime{}, errTrailing("date", rest)
	}
	return v, nil
}

func parseDateOrDateTime(s string, strict bool) (DateOrDateTime, string, error) {
	d, rest, err := parseDate(s, strict)
	if err != nil {
		return DateOrDateTime{}, s, err
	}
	if rest == "" || rest[0] != 'T' {
		return DateOrDateTime{Date: d}, rest, nil
	}
	t, rest, err := parseTime(rest[1:])
	if err != nil {
		return DateOrDateTime{}, s, err
	}
	return DateOrDateTime{Date: d, Time: t, HasTime: true}, rest, nil
}

// DateTime returns the date-time variant; ok is false for a plain date.
func (v DateOrDateTime) DateTime() (DateTime, bool) {
	return DateTime{Date: v.Date, Time: v.Time}, v.HasTime
}

func (v DateOrDateTime) String() string {
	if v.HasTime {
		return v.Date.String() + "T" + v.Time.String()
	}
	return v.Date.String()
}

// In returns the start of v in loc. A date maps to midnight.
func (v DateOrDateTime) In(loc *time.Location) time.Time {
	if dt, ok := v.DateTime(); ok {
		return dt.In(loc)
	}
	return v.Date.In(loc)
}

// Compare orders every date before every date-time, then compares fields.
// The order is not chronological across the two variants: a date has no
// fixed instant.
func (v DateOrDateTime) Compare(o DateOrDateTime) int {
	if c := compareBool(v.HasTime, o.HasTime); c != 0 {
		return c
	}
	if c := v.Date.Compare(o.Date); c != 0 {
		return c
	}
	if !v.HasTime {
		return 0
	}
	return v.Time.Compare(o.Time)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// UTCOffset is a signed offset from UTC.
type UTCOffset struct {
	Negative bool
	Hours    int
	Minutes  int
	Seconds  int
}

// ParseUTCOffset parses (+|-)HHMM[SS]. "-0000" is not allowed.
func ParseUTCOffset(s string) (UTCOffset, error) {
	rest, neg, signed := cutSign(s)
	if !signed {
		return UTCOffset{}, &LiteralError{Expected: "+ or -", Input: clip(s)}
	}
	o := UTCOffset{Negative: neg}
	var err error
	if o.Hours, rest, err = parseDigits(rest, "offset hour", 2, 2, 0, 23); err != nil {
		return UTCOffset{}, err
	}
	if o.Minutes, rest, err = parseDigits(rest, "offset minute", 2, 2, 0, 59); err != nil {
		return UTCOffset{}, err
	}
	if rest != "" {
		if o.Seconds, rest, err = parseDigits(rest, "offset second", 2, 2, 0, 59); err != nil {
			return UTCOffset{}, err
		}
	}
	if rest != "" {
		return UTCOffset{}, errTrailing("utc offset", rest)
	}
	if neg && o.Hours == 0 && o.Minutes == 0 && o.Seconds == 0 {
		return UTCOffset{}, fmt.Errorf("%w: negative zero utc offset", ErrInvalidValue)
	}
	return o, nil
}

func (o UTCOffset) String() string {
	sign := '+'
	if o.Negative {
		sign = '-'
	}
	s := fmt.Sprintf("%c%02d%02d", sign, o.Hours, o.Minutes)
	if o.Seconds != 0 {
		s += fmt.Sprintf("%02d", o.Seconds)
	}
	return s
}

// Duration returns the signed offset.
func (o UTCOffset) Duration() time.Duration {
	d := time.Duration(o.Hours)*time.Hour + time.Duration(o.Minutes)*time.Minute + time.Duration(o.Seconds)*time.Second
	if o.Negative {
		return -d
	}
	return d
}
