package icalendar

import (
	"errors"
	"strings"
)

// Options tunes how forgiving a parse is.
type Options struct {
	// Strict rejects a mismatched END line, a year of fewer than four
	// digits, a PRIORITY above 9, a non-UTC DTSTAMP, CREATED or
	// LAST-MODIFIED, and a negative event DURATION. Lenient parsing
	// ignores the END line, clamps the priority and keeps the others as
	// written. A component whose own END is misspelled therefore never
	// closes in lenient mode, and the parse ends with an unexpected end
	// of input.
	Strict bool
}

// DefaultOptions returns strict options.
func DefaultOptions() Options { return Options{Strict: true} }

// Parse parses every VCALENDAR in input with DefaultOptions. An empty or
// whitespace-only input yields no calendars and no error.
func Parse(input string) ([]Calendar, error) {
	return ParseWithOptions(input, DefaultOptions())
}

// ParseWithOptions is Parse with explicit options. The first error aborts
// the parse; it is always a *ParseError.
func ParseWithOptions(input string, opts Options) ([]Calendar, error) {
	p := &parser{lex: newLexer(input), opts: opts}
	var cals []Calendar
	for !p.lex.empty() {
		cal, err := p.calendar()
		if err != nil {
			return nil, err
		}
		cals = append(cals, cal)
	}
	return cals, nil
}

type parser struct {
	lex  *lexer
	opts Options
}

// fail attaches the position of the last consumed line to err.
func (p *parser) fail(property string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Line: p.lex.num, Property: property, Err: err}
}

// body consumes the lines of a component whose BEGIN was just read, up to
// and including its END. Properties go to prop and nested BEGIN lines to
// child, which must consume the nested component.
func (p *parser) body(comp string, prop func(*Line) error, child func(name string) error) error {
	for {
		line, ok, err := p.lex.next()
		if err != nil {
			return err
		}
		if !ok {
			return p.fail(comp, ErrUnexpectedEOF)
		}
		switch {
		case line.Name.Is("END"):
			if strings.EqualFold(line.Value, comp) {
				return nil
			}
			if p.opts.Strict {
				return p.fail("END", structuref("END:%s inside %s", clip(line.Value), comp))
			}
		case line.Name.Is("BEGIN"):
			if err := child(line.Value); err != nil {
				return err
			}
		default:
			if err := prop(&line); err != nil {
				return p.fail(line.Name.String(), err)
			}
		}
	}
}

func (p *parser) calendar() (Calendar, error) {
	line, _, err := p.lex.next()
	if err != nil {
		return Calendar{}, err
	}
	if !line.Name.Is("BEGIN") || !strings.EqualFold(line.Value, "VCALENDAR") {
		return Calendar{}, p.fail(line.Name.String(), structuref("expected BEGIN:VCALENDAR"))
	}

	var b calendarBuilder
	err = p.body("VCALENDAR",
		func(l *Line) error { return b.property(l, p.opts) },
		func(name string) error {
			if !strings.EqualFold(name, "VEVENT") {
				return p.lex.skipComponent()
			}
			ev, err := p.event()
			if err != nil {
				return err
			}
			b.events = append(b.events, ev)
			return nil
		})
	if err != nil {
		return Calendar{}, err
	}

	cal, err := b.build()
	if err != nil {
		return Calendar{}, p.fail("END", err)
	}
	return cal, nil
}

func (p *parser) event() (Event, error) {
	var b eventBuilder
	err := p.body("VEVENT",
		func(l *Line) error { return b.property(l, p.opts) },
		func(string) error { return p.lex.skipComponent() })
	if err != nil {
		return Event{}, err
	}

	ev, err := b.build(p.opts)
	if err != nil {
		return Event{}, p.fail("END", err)
	}
	return ev, nil
}

// setOnce stores v in *dst unless a value is already there.
func setOnce[T any](dst **T, v T, comp, prop string) error {
	if *dst != nil {
		return &CardinalityError{Component: comp, Property: prop, Problem: Duplicate}
	}
	*dst = &v
	return nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
