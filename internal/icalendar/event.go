package icalendar

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

type Class string

const (
	ClassPublic       Class = "PUBLIC"
	ClassPrivate      Class = "PRIVATE"
	ClassConfidential Class = "CONFIDENTIAL"
)

type EventStatus string

const (
	StatusTentative EventStatus = "TENTATIVE"
	StatusConfirmed EventStatus = "CONFIRMED"
	StatusCancelled EventStatus = "CANCELLED"
)

type Transparency string

const (
	Opaque      Transparency = "OPAQUE"
	Transparent Transparency = "TRANSPARENT"
)

// AnnotatedText is a TEXT value with its LANGUAGE and ALTREP parameters.
type AnnotatedText struct {
	Text     string
	Language language.Tag
	AltRep   URI
}

type Organizer struct {
	Address    CalAddress
	CommonName string
	Dir        URI
	SentBy     CalAddress
	Language   language.Tag
}

type Attendee struct {
	Address       CalAddress
	CUType        CalendarUserType
	Member        []CalAddress
	Role          Role
	PartStat      ParticipationStatus
	RSVP          bool
	DelegatedTo   []CalAddress
	DelegatedFrom []CalAddress
	SentBy        CalAddress
	CommonName    string
	Dir           URI
	Language      language.Tag
}

// Attachment is either a URI or inline Data.
type Attachment struct {
	URI        URI
	Data       Binary
	FormatType string
}

// EventTime is a date or date-time with its time zone, if any.
type EventTime struct {
	Value DateOrDateTime
	TZID  TZID
}

// EventEnd holds exactly one of Time (DTEND) and Duration (DURATION).
type EventEnd struct {
	Time     *EventTime
	Duration *Duration
}

type RecurrenceID struct {
	Time  EventTime
	Range Range
}

// RDate is a recurrence date. Period is set for VALUE=PERIOD, Value otherwise.
type RDate struct {
	Value  DateOrDateTime
	Period *Period
	TZID   TZID
}

// Event is one VEVENT.
type Event struct {
	UID          string
	Timestamp    *DateTime
	Created      *DateTime
	LastModified *DateTime
	Start        *EventTime
	End          *EventEnd
	Class        Class
	Status       EventStatus
	Priority     Priority
	Sequence     int
	Transparency Transparency
	Summary      *AnnotatedText
	Description  *AnnotatedText
	Location     *AnnotatedText
	Geo          *GeoLocation
	Organizer    *Organizer
	RecurrenceID *RecurrenceID
	RRule        *Recur
	URL          URI
	Attachments  []Attachment
	Attendees    []Attendee
	Categories   []string
	Comments     []AnnotatedText
	Contacts     []AnnotatedText
	ExDates      []EventTime
	RDates       []RDate

	// CategoryLanguages holds the LANGUAGE of each entry in Categories,
	// language.Und where the line had none.
	CategoryLanguages []language.Tag
}

// AllDay reports whether the event starts on a plain date.
func (e Event) AllDay() bool { return e.Start != nil && !e.Start.Value.HasTime }

const compEvent = "VEVENT"

type eventBuilder struct {
	uid          *string
	dtstamp      *DateTime
	created      *DateTime
	lastModified *DateTime
	start        *EventTime
	end          *EventTime
	duration     *Duration
	class        *Class
	status       *EventStatus
	priority     *Priority
	sequence     *int
	transp       *Transparency
	summary      *AnnotatedText
	description  *AnnotatedText
	location     *AnnotatedText
	geo          *GeoLocation
	organizer    *Organizer
	recurrenceID *RecurrenceID
	rrule        *Recur
	url          *URI

	attachments []Attachment
	attendees   []Attendee
	categories  []string
	catLangs    []language.Tag
	comments    []AnnotatedText
	contacts    []AnnotatedText
	exDates     []EventTime
	rDates      []RDate
}

type eventHandler func(b *eventBuilder, l *Line, opts Options) error

var eventProperties = map[string]eventHandler{
	"UID": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := ParseText(l.Value)
		if err != nil {
			return err
		}
		return setOnce(&b.uid, v, compEvent, "UID")
	},
	"DTSTAMP": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := utcStamp(l.Value, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.dtstamp, v, compEvent, "DTSTAMP")
	},
	"CREATED": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := utcStamp(l.Value, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.created, v, compEvent, "CREATED")
	},
	"LAST-MODIFIED": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := utcStamp(l.Value, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.lastModified, v, compEvent, "LAST-MODIFIED")
	},
	"DTSTART": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := eventTime(l, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.start, v, compEvent, "DTSTART")
	},
	"DTEND": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := eventTime(l, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.end, v, compEvent, "DTEND")
	},
	"DURATION": func(b *eventBuilder, l *Line, opts Options) error {
		d, err := ParseDuration(l.Value)
		if err != nil {
			return err
		}
		if opts.Strict && d.Negative {
			return fmt.Errorf("%w: negative event duration %s", ErrInvalidValue, l.Value)
		}
		return setOnce(&b.duration, d, compEvent, "DURATION")
	},
	"CLASS": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := enumValue(l.Value, "CLASS", true, ClassPublic, ClassPrivate, ClassConfidential)
		if err != nil {
			return err
		}
		return setOnce(&b.class, v, compEvent, "CLASS")
	},
	"STATUS": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := enumValue(l.Value, "STATUS", false, StatusTentative, StatusConfirmed, StatusCancelled)
		if err != nil {
			return err
		}
		return setOnce(&b.status, v, compEvent, "STATUS")
	},
	"PRIORITY": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := ParsePriority(l.Value, opts.Strict)
		if err != nil {
			return err
		}
		return setOnce(&b.priority, v, compEvent, "PRIORITY")
	},
	"SEQUENCE": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := ParseInteger(l.Value)
		if err != nil {
			return err
		}
		if v < 0 {
			return &RangeError{What: "SEQUENCE", Min: 0, Max: 1<<31 - 1, Value: v}
		}
		return setOnce(&b.sequence, v, compEvent, "SEQUENCE")
	},
	"TRANSP": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := enumValue(l.Value, "TRANSP", false, Opaque, Transparent)
		if err != nil {
			return err
		}
		return setOnce(&b.transp, v, compEvent, "TRANSP")
	},
	"SUMMARY": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := annotatedText(l)
		if err != nil {
			return err
		}
		return setOnce(&b.summary, v, compEvent, "SUMMARY")
	},
	"DESCRIPTION": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := annotatedText(l)
		if err != nil {
			return err
		}
		return setOnce(&b.description, v, compEvent, "DESCRIPTION")
	},
	"LOCATION": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := annotatedText(l)
		if err != nil {
			return err
		}
		return setOnce(&b.location, v, compEvent, "LOCATION")
	},
	"GEO": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := ParseGeo(l.Value)
		if err != nil {
			return err
		}
		return setOnce(&b.geo, v, compEvent, "GEO")
	},
	"ORGANIZER": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := organizer(l)
		if err != nil {
			return err
		}
		return setOnce(&b.organizer, v, compEvent, "ORGANIZER")
	},
	"RECURRENCE-ID": func(b *eventBuilder, l *Line, opts Options) error {
		rng, _, err := TakeParam(&l.Params, ParamRange)
		if err != nil {
			return err
		}
		t, err := eventTime(l, opts)
		if err != nil {
			return err
		}
		return setOnce(&b.recurrenceID, RecurrenceID{Time: t, Range: rng}, compEvent, "RECURRENCE-ID")
	},
	"RRULE": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := ParseRecur(l.Value)
		if err != nil {
			return err
		}
		return setOnce(&b.rrule, v, compEvent, "RRULE")
	},
	"URL": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := ParseURI(l.Value)
		if err != nil {
			return err
		}
		return setOnce(&b.url, v, compEvent, "URL")
	},
	"ATTACH": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := attachment(l, opts)
		if err != nil {
			return err
		}
		b.attachments = append(b.attachments, v)
		return nil
	},
	"ATTENDEE": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := attendee(l)
		if err != nil {
			return err
		}
		b.attendees = append(b.attendees, v)
		return nil
	},
	"CATEGORIES": func(b *eventBuilder, l *Line, _ Options) error {
		lang, _, err := TakeParam(&l.Params, ParamLanguage)
		if err != nil {
			return err
		}
		v, err := ParseTextList(l.Value)
		if err != nil {
			return err
		}
		b.categories = append(b.categories, v...)
		for range v {
			b.catLangs = append(b.catLangs, lang)
		}
		return nil
	},
	"COMMENT": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := annotatedText(l)
		if err != nil {
			return err
		}
		b.comments = append(b.comments, v)
		return nil
	},
	"CONTACT": func(b *eventBuilder, l *Line, _ Options) error {
		v, err := annotatedText(l)
		if err != nil {
			return err
		}
		b.contacts = append(b.contacts, v)
		return nil
	},
	"EXDATE": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := exDates(l, opts)
		if err != nil {
			return err
		}
		b.exDates = append(b.exDates, v...)
		return nil
	},
	"RDATE": func(b *eventBuilder, l *Line, opts Options) error {
		v, err := rDates(l, opts)
		if err != nil {
			return err
		}
		b.rDates = append(b.rDates, v...)
		return nil
	},
}

func (b *eventBuilder) property(l *Line, opts Options) error {
	if l.Name.Extension {
		return nil
	}
	h, ok := eventProperties[strings.ToUpper(l.Name.Value)]
	if !ok {
		return nil
	}
	return h(b, l, opts)
}

func (b *eventBuilder) build(Options) (Event, error) {
	if b.uid == nil {
		return Event{}, &CardinalityError{Component: compEvent, Property: "UID", Problem: Missing}
	}
	if b.end != nil && b.duration != nil {
		return Event{}, &CardinalityError{Component: compEvent, Property: "DTEND", Other: "DURATION", Problem: Exclusive}
	}

	ev := Event{
		UID:          *b.uid,
		Timestamp:    b.dtstamp,
		Created:      b.created,
		LastModified: b.lastModified,
		Start:        b.start,
		Class:        valueOr(b.class, ClassPublic),
		Status:       valueOr(b.status, ""),
		Priority:     valueOr(b.priority, 0),
		Sequence:     valueOr(b.sequence, 0),
		Transparency: valueOr(b.transp, Opaque),
		Summary:      b.summary,
		Description:  b.description,
		Location:     b.location,
		Geo:          b.geo,
		Organizer:    b.organizer,
		RecurrenceID: b.recurrenceID,
		RRule:        b.rrule,
		URL:          valueOr(b.url, ""),
		Attachments:  b.attachments,
		Attendees:    b.attendees,
		Categories:   b.categories,
		Comments:     b.comments,
		Contacts:     b.contacts,
		ExDates:      b.exDates,
		RDates:       b.rDates,

		CategoryLanguages: b.catLangs,
	}
	switch {
	case b.end != nil:
		ev.End = &EventEnd{Time: b.end}
	case b.duration != nil:
		ev.End = &EventEnd{Duration: b.duration}
	}
	return ev, nil
}

// paramReader takes several parameters from one map and keeps the first error.
type paramReader struct {
	m   *ParamMap
	err error
}

func take[T any](r *paramReader, p ParamType[T]) T {
	if r.err != nil {
		return p.Default
	}
	v, err := TakeParamOrDefault(r.m, p)
	if err != nil {
		r.err = err
	}
	return v
}

func annotatedText(l *Line) (AnnotatedText, error) {
	r := &paramReader{m: &l.Params}
	t := AnnotatedText{
		Language: take(r, ParamLanguage),
		AltRep:   take(r, ParamAltRep),
	}
	if r.err != nil {
		return AnnotatedText{}, r.err
	}
	text, err := ParseText(l.Value)
	if err != nil {
		return AnnotatedText{}, err
	}
	t.Text = text
	return t, nil
}

func organizer(l *Line) (Organizer, error) {
	addr, err := ParseCalAddress(l.Value)
	if err != nil {
		return Organizer{}, err
	}
	r := &paramReader{m: &l.Params}
	o := Organizer{
		Address:    addr,
		CommonName: take(r, ParamCommonName),
		Dir:        take(r, ParamDir),
		SentBy:     take(r, ParamSentBy),
		Language:   take(r, ParamLanguage),
	}
	return o, r.err
}

func attendee(l *Line) (Attendee, error) {
	addr, err := ParseCalAddress(l.Value)
	if err != nil {
		return Attendee{}, err
	}
	r := &paramReader{m: &l.Params}
	a := Attendee{
		Address:       addr,
		CUType:        take(r, ParamCalendarUserType),
		Member:        take(r, ParamMember),
		Role:          take(r, ParamRole),
		PartStat:      take(r, ParamParticipationStatus),
		RSVP:          take(r, ParamRSVP),
		DelegatedTo:   take(r, ParamDelegatedTo),
		DelegatedFrom: take(r, ParamDelegatedFrom),
		SentBy:        take(r, ParamSentBy),
		CommonName:    take(r, ParamCommonName),
		Dir:           take(r, ParamDir),
		Language:      take(r, ParamLanguage),
	}
	return a, r.err
}

func attachment(l *Line, opts Options) (Attachment, error) {
	r := &paramReader{m: &l.Params}
	enc := take(r, ParamEncoding)
	vt := take(r, ParamValue)
	a := Attachment{FormatType: take(r, ParamFormatType)}
	if r.err != nil {
		return Attachment{}, r.err
	}

	binary := enc == EncodingBase64 || vt == ValueBinary
	if binary && opts.Strict && (enc != EncodingBase64 || vt != ValueBinary) {
		return Attachment{}, fmt.Errorf("%w: inline attachments need ENCODING=BASE64 and VALUE=BINARY", ErrInvalidParam)
	}
	if binary {
		data, err := ParseBinary(l.Value)
		if err != nil {
			return Attachment{}, err
		}
		a.Data = data
		return a, nil
	}
	if vt != "" && vt != ValueURI {
		return Attachment{}, fmt.Errorf("%w: VALUE=%s not allowed on ATTACH", ErrInvalidParam, vt)
	}
	u, err := ParseURI(l.Value)
	if err != nil {
		return Attachment{}, err
	}
	a.URI = u
	return a, nil
}

// eventTime parses a DATE or DATE-TIME property honouring VALUE and TZID.
func eventTime(l *Line, opts Options) (EventTime, error) {
	vt, tz, err := timeParams(l)
	if err != nil {
		return EventTime{}, err
	}
	v, err := dateOrDateTimeValue(l.Value, vt, opts)
	if err != nil {
		return EventTime{}, err
	}
	if err := checkTZID(v, tz); err != nil {
		return EventTime{}, err
	}
	return EventTime{Value: v, TZID: tz}, nil
}

func exDates(l *Line, opts Options) ([]EventTime, error) {
	vt, tz, err := timeParams(l)
	if err != nil {
		return nil, err
	}
	items := strings.Split(l.Value, ",")
	out := make([]EventTime, 0, len(items))
	for _, item := range items {
		v, err := dateOrDateTimeValue(item, vt, opts)
		if err != nil {
			return nil, err
		}
		if err := checkTZID(v, tz); err != nil {
			return nil, err
		}
		out = append(out, EventTime{Value: v, TZID: tz})
	}
	return out, nil
}

func rDates(l *Line, opts Options) ([]RDate, error) {
	vt, tz, err := timeParams(l)
	if err != nil {
		return nil, err
	}
	items := strings.Split(l.Value, ",")
	out := make([]RDate, 0, len(items))
	for _, item := range items {
		if vt == ValuePeriod {
			p, err := ParsePeriod(item)
			if err != nil {
				return nil, err
			}
			if !tz.IsZero() && p.Start.Time.UTC {
				return nil, fmt.Errorf("%w: TZID on a UTC time", ErrInvalidParam)
			}
			out = append(out, RDate{Period: &p, TZID: tz})
			continue
		}
		v, err := dateOrDateTimeValue(item, vt, opts)
		if err != nil {
			return nil, err
		}
		if err := checkTZID(v, tz); err != nil {
			return nil, err
		}
		out = append(out, RDate{Value: v, TZID: tz})
	}
	return out, nil
}

func timeParams(l *Line) (ValueType, TZID, error) {
	r := &paramReader{m: &l.Params}
	vt := take(r, ParamValue)
	tz := take(r, ParamTZID)
	return vt, tz, r.err
}

func dateOrDateTimeValue(s string, vt ValueType, opts Options) (DateOrDateTime, error) {
	switch vt {
	case "", ValueDate, ValueDateTime:
	default:
		return DateOrDateTime{}, fmt.Errorf("%w: VALUE=%s not allowed here", ErrInvalidParam, vt)
	}
	v, rest, err := parseDateOrDateTime(s, opts.Strict)
	if err != nil {
		return DateOrDateTime{}, err
	}
	if rest != "" {
		return DateOrDateTime{}, errTrailing("date", rest)
	}
	switch {
	case vt == ValueDate && v.HasTime:
		return DateOrDateTime{}, errTrailing("VALUE=DATE date", "T"+v.Time.String())
	case vt == ValueDateTime && !v.HasTime:
		return DateOrDateTime{}, &LiteralError{Expected: "T", Input: ""}
	}
	return v, nil
}

func checkTZID(v DateOrDateTime, tz TZID) error {
	if !tz.IsZero() && v.HasTime && v.Time.UTC {
		return fmt.Errorf("%w: TZID on a UTC time", ErrInvalidParam)
	}
	return nil
}

// utcStamp parses DTSTAMP-like values, which must be UTC in strict mode.
func utcStamp(s string, opts Options) (DateTime, error) {
	dt, rest, err := parseDateTime(s, opts.Strict)
	if err != nil {
		return DateTime{}, err
	}
	if rest != "" {
		return DateTime{}, errTrailing("date-time", rest)
	}
	if opts.Strict && !dt.Time.UTC {
		return DateTime{}, &LiteralError{Expected: "Z", Input: s}
	}
	return dt, nil
}

// enumValue matches s against known tokens; other valid names are kept as
// written when open is set.
func enumValue[T ~string](s, what string, open bool, known ...T) (T, error) {
	for _, k := range known {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	if open && isToken(s) {
		return T(s), nil
	}
	return "", &TokenError{What: what, Input: s}
}
