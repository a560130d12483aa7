package icalendar

import (
	"fmt"
	"strings"
)

// Line is one parsed content line.
type Line struct {
	Name   Name
	Params ParamMap
	Value  string
}

// ParseLine splits a logical line into name, parameters and raw value.
// Delimiters inside double-quoted parameter values are not split points.
func ParseLine(input string) (Line, error) {
	i := indexOutsideQuotes(input, ':')
	if i < 0 {
		return Line{}, fmt.Errorf("%w: no ':' in %q", ErrMalformedLine, clip(input))
	}
	prefix, value := input[:i], input[i+1:]

	rawName, section, hasParams := strings.Cut(prefix, ";")
	name, err := ParseName(rawName)
	if err != nil {
		return Line{}, err
	}

	l := Line{Name: name, Value: value}
	if !hasParams {
		return l, nil
	}
	for _, raw := range splitOutsideQuotes(section, ';') {
		pname, values, err := parseParam(raw)
		if err != nil {
			return Line{}, err
		}
		l.Params.Add(pname, values[0], values[1:]...)
	}
	return l, nil
}

// parseParam parses "name=value[,value...]".
func parseParam(raw string) (Name, []string, error) {
	rawName, rawValues, ok := strings.Cut(raw, "=")
	if !ok {
		return Name{}, nil, fmt.Errorf("%w: no '=' in parameter %q", ErrMalformedLine, clip(raw))
	}
	name, err := ParseName(rawName)
	if err != nil {
		return Name{}, nil, err
	}
	parts := splitOutsideQuotes(rawValues, ',')
	values := make([]string, len(parts))
	for i, p := range parts {
		if values[i], err = paramValue(p); err != nil {
			return Name{}, nil, fmt.Errorf("parameter %s: %w", name, err)
		}
	}
	return name, values, nil
}

// paramValue validates one quoted-string or paramtext value and strips the
// quotes of the former.
func paramValue(s string) (string, error) {
	if strings.HasPrefix(s, `"`) {
		if len(s) < 2 || !strings.HasSuffix(s, `"`) {
			return "", fmt.Errorf("%w: unterminated quoted string %q", ErrInvalidParam, clip(s))
		}
		inner := s[1 : len(s)-1]
		for _, r := range inner {
			if isControl(r) || r == '"' {
				return "", fmt.Errorf("%w: character %q not allowed in quoted string", ErrInvalidParam, r)
			}
		}
		return inner, nil
	}
	for _, r := range s {
		if isControl(r) || strings.ContainsRune(`";:,`, r) {
			return "", fmt.Errorf("%w: character %q must be quoted", ErrInvalidParam, r)
		}
	}
	return s, nil
}

// splitOutsideQuotes splits s on sep, ignoring separators between double
// quotes.
func splitOutsideQuotes(s string, sep byte) []string {
	var out []string
	for {
		i := indexOutsideQuotes(s, sep)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i+1:]
	}
}

func indexOutsideQuotes(s string, sep byte) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				return i
			}
		}
	}
	return -1
}

// isControl matches CONTROL from RFC 5545: all C0 controls except HTAB, and DEL.
func isControl(r rune) bool {
	return r < 0x20 && r != '\t' || r == 0x7f
}
