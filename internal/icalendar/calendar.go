package icalendar

import (
	"fmt"
	"strings"
)

type CalScale string

const Gregorian CalScale = "GREGORIAN"

// Calendar is one VCALENDAR.
type Calendar struct {
	ProdID   string
	Version  string
	CalScale CalScale
	Method   string
	Events   []Event
}

type calendarBuilder struct {
	prodID   *string
	version  *string
	calScale *CalScale
	method   *string
	events   []Event
}

const compCalendar = "VCALENDAR"

func (b *calendarBuilder) property(l *Line, _ Options) error {
	if l.Name.Extension {
		return nil
	}
	switch strings.ToUpper(l.Name.Value) {
	case "PRODID":
		if err := l.Params.CheckNoRegistered(); err != nil {
			return err
		}
		v, err := ParseText(l.Value)
		if err != nil {
			return err
		}
		return setOnce(&b.prodID, v, compCalendar, "PRODID")
	case "VERSION":
		if err := l.Params.CheckNoRegistered(); err != nil {
			return err
		}
		if l.Value != "2.0" {
			return &TokenError{What: "VERSION", Input: l.Value}
		}
		return setOnce(&b.version, l.Value, compCalendar, "VERSION")
	case "CALSCALE":
		if err := l.Params.CheckNoRegistered(); err != nil {
			return err
		}
		scale := CalScale(l.Value)
		if strings.EqualFold(l.Value, string(Gregorian)) {
			scale = Gregorian
		} else if !isToken(l.Value) {
			return &TokenError{What: "CALSCALE", Input: l.Value}
		}
		return setOnce(&b.calScale, scale, compCalendar, "CALSCALE")
	case "METHOD":
		if err := l.Params.CheckNoRegistered(); err != nil {
			return err
		}
		if !isToken(l.Value) {
			return fmt.Errorf("%w: METHOD %q", ErrInvalidValue, clip(l.Value))
		}
		return setOnce(&b.method, l.Value, compCalendar, "METHOD")
	}
	return nil
}

func (b *calendarBuilder) build() (Calendar, error) {
	if b.prodID == nil {
		return Calendar{}, &CardinalityError{Component: compCalendar, Property: "PRODID", Problem: Missing}
	}
	if b.version == nil {
		return Calendar{}, &CardinalityError{Component: compCalendar, Property: "VERSION", Problem: Missing}
	}
	return Calendar{
		ProdID:   *b.prodID,
		Version:  *b.version,
		CalScale: valueOr(b.calScale, Gregorian),
		Method:   valueOr(b.method, ""),
		Events:   b.events,
	}, nil
}
