package icalendar

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these through errors.Is.
var (
	ErrMalformedLine = errors.New("malformed content line")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidParam  = errors.New("invalid parameter value")
	ErrInvalidValue  = errors.New("invalid value")
	ErrCardinality   = errors.New("cardinality violation")
	ErrStructure     = errors.New("structural error")

	// ErrUnexpectedEOF is a structural error raised when input ends inside a
	// component.
	ErrUnexpectedEOF = fmt.Errorf("%w: unexpected end of input", ErrStructure)
)

// RangeError reports a number outside its inclusive range.
type RangeError struct {
	What  string
	Min   int
	Max   int
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

func (e *RangeError) Is(target error) bool { return target == ErrInvalidValue }

// DigitsError reports a numeric field with the wrong number of digits.
type DigitsError struct {
	What  string
	Min   int
	Max   int
	Input string
}

func (e *DigitsError) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("%s: expected %d digits at %q", e.What, e.Min, e.Input)
	}
	return fmt.Sprintf("%s: expected %d to %d digits at %q", e.What, e.Min, e.Max, e.Input)
}

func (e *DigitsError) Is(target error) bool { return target == ErrInvalidValue }

// LiteralError reports a required literal that was not found.
type LiteralError struct {
	Expected string
	Input    string
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("expected %q at %q", e.Expected, e.Input)
}

func (e *LiteralError) Is(target error) bool { return target == ErrInvalidValue }

// TokenError reports an unknown enumerated token.
type TokenError struct {
	What  string
	Input string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.What, e.Input)
}

func (e *TokenError) Is(target error) bool { return target == ErrInvalidValue }

// Problem classifies a cardinality violation.
type Problem int

const (
	Missing Problem = iota + 1
	Duplicate
	Exclusive
)

func (p Problem) String() string {
	switch p {
	case Missing:
		return "missing"
	case Duplicate:
		return "duplicate"
	case Exclusive:
		return "mutually exclusive"
	default:
		return "unknown"
	}
}

// CardinalityError names the component and property that broke an
// occurrence rule. For Exclusive, Other holds the conflicting property.
type CardinalityError struct {
	Component string
	Property  string
	Other     string
	Problem   Problem
}

func (e *CardinalityError) Error() string {
	switch e.Problem {
	case Missing:
		return fmt.Sprintf("%s: required property %s is missing", e.Component, e.Property)
	case Duplicate:
		return fmt.Sprintf("%s: property %s may appear at most once", e.Component, e.Property)
	case Exclusive:
		return fmt.Sprintf("%s: properties %s and %s are mutually exclusive", e.Component, e.Property, e.Other)
	default:
		return fmt.Sprintf("%s: property %s: %s", e.Component, e.Property, e.Problem)
	}
}

func (e *CardinalityError) Is(target error) bool { return target == ErrCardinality }

// ParseError locates the first failure of a document parse.
type ParseError struct {
	// Line is the 1-based physical line on which the offending logical line starts.
	Line     int
	Property string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Property, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func structuref(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructure, fmt.Sprintf(format, args...))
}

func errTrailing(what, rest string) error {
	return fmt.Errorf("%w: unexpected %q after %s", ErrInvalidValue, rest, what)
}

// clip shortens input echoed back in error messages.
func clip(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
