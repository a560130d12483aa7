package icalendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	Secondly Frequency = "SECONDLY"
	Minutely Frequency = "MINUTELY"
	Hourly   Frequency = "HOURLY"
	Daily    Frequency = "DAILY"
	Weekly   Frequency = "WEEKLY"
	Monthly  Frequency = "MONTHLY"
	Yearly   Frequency = "YEARLY"
)

var frequencies = []Frequency{Secondly, Minutely, Hourly, Daily, Weekly, Monthly, Yearly}

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayNum is a BYDAY element. Ordinal is zero when absent.
type WeekdayNum struct {
	Ordinal int
	Day     time.Weekday
}

func (w WeekdayNum) String() string {
	if w.Ordinal == 0 {
		return weekdayCodes[w.Day]
	}
	return strconv.Itoa(w.Ordinal) + weekdayCodes[w.Day]
}

// Recur is a parsed recurrence rule. Until and Count are exclusive; both
// unset means the rule repeats forever. Interval and Count are zero when not
// given. Interval 0 is read as 1.
type Recur struct {
	Freq       Frequency
	Until      *DateOrDateTime
	Count      int
	Interval   int
	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []WeekdayNum
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int
	WeekStart  *time.Weekday
}

// EffectiveInterval returns Interval, or 1 when unset.
func (r Recur) EffectiveInterval() int {
	if r.Interval == 0 {
		return 1
	}
	return r.Interval
}

// intList describes one BY-list: its magnitude range and whether elements
// may carry a sign.
type intList struct {
	what      string
	maxDigits int
	lo, hi    int
	signed    bool
	dst       func(*Recur) *[]int
}

var intLists = map[string]intList{
	"BYSECOND":   {"BYSECOND", 2, 0, 60, false, func(r *Recur) *[]int { return &r.BySecond }},
	"BYMINUTE":   {"BYMINUTE", 2, 0, 59, false, func(r *Recur) *[]int { return &r.ByMinute }},
	"BYHOUR":     {"BYHOUR", 2, 0, 23, false, func(r *Recur) *[]int { return &r.ByHour }},
	"BYMONTHDAY": {"BYMONTHDAY", 2, 1, 31, true, func(r *Recur) *[]int { return &r.ByMonthDay }},
	"BYYEARDAY":  {"BYYEARDAY", 3, 1, 366, true, func(r *Recur) *[]int { return &r.ByYearDay }},
	"BYWEEKNO":   {"BYWEEKNO", 2, 1, 53, true, func(r *Recur) *[]int { return &r.ByWeekNo }},
	"BYMONTH":    {"BYMONTH", 2, 1, 12, false, func(r *Recur) *[]int { return &r.ByMonth }},
	"BYSETPOS":   {"BYSETPOS", 3, 1, 366, true, func(r *Recur) *[]int { return &r.BySetPos }},
}

// ParseRecur parses a RECUR value. It must start with FREQ; every other
// part may appear at most once and unknown parts are rejected. A single
// trailing ';' is accepted.
func ParseRecur(s string) (Recur, error) {
	if len(s) < 5 || !strings.EqualFold(s[:5], "FREQ=") {
		return Recur{}, &LiteralError{Expected: "FREQ=", Input: clip(s)}
	}
	s = strings.TrimSuffix(s, ";")

	var r Recur
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return Recur{}, &LiteralError{Expected: "=", Input: clip(part)}
		}
		key = strings.ToUpper(key)
		if seen[key] {
			return Recur{}, fmt.Errorf("%w: recurrence rule part %s given more than once", ErrInvalidValue, key)
		}
		seen[key] = true

		if err := r.setPart(key, val); err != nil {
			return Recur{}, err
		}
	}
	if r.Until != nil && r.Count != 0 {
		return Recur{}, fmt.Errorf("%w: UNTIL and COUNT are mutually exclusive", ErrInvalidValue)
	}
	return r, nil
}

func (r *Recur) setPart(key, val string) error {
	if l, ok := intLists[key]; ok {
		list, err := parseIntList(l, val)
		if err != nil {
			return err
		}
		*l.dst(r) = list
		return nil
	}

	switch key {
	case "FREQ":
		for _, f := range frequencies {
			if strings.EqualFold(val, string(f)) {
				r.Freq = f
				return nil
			}
		}
		return &TokenError{What: "frequency", Input: val}
	case "UNTIL":
		until, err := ParseDateOrDateTime(val)
		if err != nil {
			return fmt.Errorf("UNTIL: %w", err)
		}
		r.Until = &until
	case "COUNT":
		n, err := parseSigned(val, "COUNT", 9, 1, 999999999)
		if err != nil {
			return err
		}
		if n < 0 {
			return &RangeError{What: "COUNT", Min: 1, Max: 999999999, Value: n}
		}
		r.Count = n
	case "INTERVAL":
		n, err := parseSigned(val, "INTERVAL", 9, 1, 999999999)
		if err != nil {
			return err
		}
		if n < 0 {
			return &RangeError{What: "INTERVAL", Min: 1, Max: 999999999, Value: n}
		}
		r.Interval = n
	case "BYDAY":
		for _, item := range strings.Split(val, ",") {
			w, err := parseWeekdayNum(item)
			if err != nil {
				return err
			}
			r.ByDay = append(r.ByDay, w)
		}
	case "WKST":
		day, err := parseWeekday(val)
		if err != nil {
			return err
		}
		r.WeekStart = &day
	default:
		return &TokenError{What: "recurrence rule part", Input: key}
	}
	return nil
}

func parseIntList(l intList, val string) ([]int, error) {
	items := strings.Split(val, ",")
	out := make([]int, 0, len(items))
	for _, item := range items {
		if !l.signed && item != "" && (item[0] == '+' || item[0] == '-') {
			return nil, fmt.Errorf("%w: %s does not take a sign: %q", ErrInvalidValue, l.what, item)
		}
		n, err := parseSigned(item, l.what, l.maxDigits, l.lo, l.hi)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseWeekdayNum(s string) (WeekdayNum, error) {
	rest, neg, signed := cutSign(s)
	var w WeekdayNum
	if rest != "" && isDigit(rest[0]) {
		n, after, err := parseDigits(rest, "BYDAY ordinal", 1, 2, 1, 53)
		if err != nil {
			return WeekdayNum{}, err
		}
		if neg {
			n = -n
		}
		w.Ordinal = n
		rest = after
	} else if signed {
		return WeekdayNum{}, &DigitsError{What: "BYDAY ordinal", Min: 1, Max: 2, Input: clip(rest)}
	}
	day, err := parseWeekday(rest)
	if err != nil {
		return WeekdayNum{}, err
	}
	w.Day = day
	return w, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for i, code := range weekdayCodes {
		if strings.EqualFold(s, code) {
			return time.Weekday(i), nil
		}
	}
	return 0, &TokenError{What: "weekday", Input: s}
}

// String formats r with parts in a fixed order.
func (r Recur) String() string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(string(r.Freq))
	if r.Until != nil {
		b.WriteString(";UNTIL=")
		b.WriteString(r.Until.String())
	}
	if r.Count != 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	}
	if r.Interval != 0 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	writeInts(&b, "BYSECOND", r.BySecond)
	writeInts(&b, "BYMINUTE", r.ByMinute)
	writeInts(&b, "BYHOUR", r.ByHour)
	if len(r.ByDay) > 0 {
		b.WriteString(";BYDAY=")
		for i, w := range r.ByDay {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(w.String())
		}
	}
	writeInts(&b, "BYMONTHDAY", r.ByMonthDay)
	writeInts(&b, "BYYEARDAY", r.ByYearDay)
	writeInts(&b, "BYWEEKNO", r.ByWeekNo)
	writeInts(&b, "BYMONTH", r.ByMonth)
	writeInts(&b, "BYSETPOS", r.BySetPos)
	if r.WeekStart != nil {
		b.WriteString(";WKST=")
		b.WriteString(weekdayCodes[*r.WeekStart])
	}
	return b.String()
}

func writeInts(b *strings.Builder, key string, list []int) {
	if len(list) == 0 {
		return
	}
	b.WriteByte(';')
	b.WriteString(key)
	b.WriteByte('=')
	for i, n := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(n))
	}
}
