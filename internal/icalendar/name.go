package icalendar

import (
	"fmt"
	"strings"
)

// Name is a property, parameter or component name. Registered names have
// Extension unset; extension names were written with an "X-" marker and may
// carry a three character vendor id.
//
// The original case is kept. Comparisons must go through Is or EqualFold,
// names are case-insensitive.
type Name struct {
	Extension bool
	Vendor    string
	Value     string
}

// ParseName classifies s as a registered or extension name.
func ParseName(s string) (Name, error) {
	if len(s) >= 2 && (s[0] == 'X' || s[0] == 'x') && s[1] == '-' {
		rest := s[2:]
		n := Name{Extension: true}
		if len(rest) >= 4 && isAlnum(rest[0]) && isAlnum(rest[1]) && isAlnum(rest[2]) && rest[3] == '-' {
			n.Vendor = rest[:3]
			rest = rest[4:]
		}
		if !isToken(rest) {
			return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, clip(s))
		}
		n.Value = rest
		return n, nil
	}
	if !isToken(s) {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, clip(s))
	}
	return Name{Value: s}, nil
}

// MustName is ParseName for names known to be valid.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	switch {
	case !n.Extension:
		return n.Value
	case n.Vendor != "":
		return "X-" + n.Vendor + "-" + n.Value
	default:
		return "X-" + n.Value
	}
}

// Is reports whether n spells s, ignoring case.
func (n Name) Is(s string) bool {
	if !n.Extension {
		return strings.EqualFold(n.Value, s)
	}
	return strings.EqualFold(n.String(), s)
}

// EqualFold reports whether n and o name the same thing.
func (n Name) EqualFold(o Name) bool {
	return n.Extension == o.Extension &&
		strings.EqualFold(n.Vendor, o.Vendor) &&
		strings.EqualFold(n.Value, o.Value)
}

// key is the map key of n: upper case, vendor included.
func (n Name) key() string {
	if n.Vendor == "" {
		return strings.ToUpper(n.Value)
	}
	return strings.ToUpper(n.Vendor) + "-" + strings.ToUpper(n.Value)
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) && s[i] != '-' {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
