package icalendar

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Binary is a BINARY value, base64 on the wire.
type Binary []byte

func ParseBinary(s string) (Binary, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidValue, err)
	}
	return Binary(b), nil
}

func (b Binary) String() string { return base64.StdEncoding.EncodeToString(b) }

// URI is an absolute URI.
type URI string

func ParseURI(s string) (URI, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: uri %q: %v", ErrInvalidValue, clip(s), err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: uri %q has no scheme", ErrInvalidValue, clip(s))
	}
	return URI(s), nil
}

func (u URI) String() string { return string(u) }

// CalAddress is a calendar user address, usually a mailto: URI.
type CalAddress string

func ParseCalAddress(s string) (CalAddress, error) {
	u, err := ParseURI(s)
	if err != nil {
		return "", err
	}
	return CalAddress(u), nil
}

func (a CalAddress) String() string { return string(a) }

// Email returns the address of a mailto: URI.
func (a CalAddress) Email() (string, bool) {
	s := string(a)
	if len(s) < 7 || !strings.EqualFold(s[:7], "mailto:") {
		return "", false
	}
	return s[7:], true
}

func ParseBoolean(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "TRUE"):
		return true, nil
	case strings.EqualFold(s, "FALSE"):
		return false, nil
	}
	return false, &TokenError{What: "boolean", Input: s}
}

func FormatBoolean(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// ParseInteger parses a signed 32-bit INTEGER.
func ParseInteger(s string) (int, error) {
	rest, _, _ := cutSign(s)
	if rest == "" || strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, fmt.Errorf("%w: integer %q", ErrInvalidValue, clip(s))
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: integer %q out of range", ErrInvalidValue, clip(s))
	}
	return int(n), nil
}

// ParseFloat parses [+|-]digits[.digits].
func ParseFloat(s string) (float64, error) {
	rest, _, _ := cutSign(s)
	whole, frac, hasFrac := strings.Cut(rest, ".")
	if whole == "" || !allDigits(whole) || hasFrac && (frac == "" || !allDigits(frac)) {
		return 0, fmt.Errorf("%w: float %q", ErrInvalidValue, clip(s))
	}
	return strconv.ParseFloat(s, 64)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// Priority is 0 (undefined) or 1 (highest) to 9 (lowest).
type Priority int

// ParsePriority parses a PRIORITY value. In lenient mode values above 9
// are clamped to 9.
func ParsePriority(s string, strict bool) (Priority, error) {
	n, err := ParseInteger(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || strict && n > 9 {
		return 0, &RangeError{What: "priority", Min: 0, Max: 9, Value: n}
	}
	if n > 9 {
		n = 9
	}
	return Priority(n), nil
}

func (p Priority) String() string { return strconv.Itoa(int(p)) }

// GeoLocation is a GEO value in degrees.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
}

func ParseGeo(s string) (GeoLocation, error) {
	lat, lon, ok := strings.Cut(s, ";")
	if !ok {
		return GeoLocation{}, &LiteralError{Expected: ";", Input: clip(s)}
	}
	var g GeoLocation
	var err error
	if g.Latitude, err = ParseFloat(lat); err != nil {
		return GeoLocation{}, err
	}
	if g.Longitude, err = ParseFloat(lon); err != nil {
		return GeoLocation{}, err
	}
	if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 {
		return GeoLocation{}, fmt.Errorf("%w: geo %q out of range", ErrInvalidValue, s)
	}
	return g, nil
}

func (g GeoLocation) String() string {
	return strconv.FormatFloat(g.Latitude, 'f', -1, 64) + ";" + strconv.FormatFloat(g.Longitude, 'f', -1, 64)
}
