package icalendar

import (
	"fmt"
	"strings"
)

// ParseText decodes a single TEXT value. An unescaped comma is kept.
func ParseText(s string) (string, error) {
	out, err := unescapeText(s, false)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// ParseTextList decodes a comma separated list of TEXT values.
func ParseTextList(s string) ([]string, error) {
	return unescapeText(s, true)
}

func unescapeText(s string, list bool) ([]string, error) {
	special := `\;`
	if list {
		special += ","
	}
	if !strings.ContainsAny(s, special) {
		return []string{s}, nil
	}

	var out []string
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 == len(s) {
				return nil, fmt.Errorf("%w: trailing backslash in text", ErrInvalidValue)
			}
			i++
			switch s[i] {
			case '\\', ',', ';':
				b.WriteByte(s[i])
			case 'n', 'N':
				b.WriteByte('\n')
			default:
				return nil, fmt.Errorf("%w: unknown escape \\%c in text", ErrInvalidValue, s[i])
			}
		case ';':
			return nil, fmt.Errorf("%w: unescaped ';' in text", ErrInvalidValue)
		case ',':
			if list {
				out = append(out, b.String())
				b.Reset()
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return append(out, b.String()), nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, "\n", `\n`)

// EscapeText encodes s as a TEXT value.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// FormatTextList encodes a list of TEXT values.
func FormatTextList(list []string) string {
	escaped := make([]string, len(list))
	for i, s := range list {
		escaped[i] = EscapeText(s)
	}
	return strings.Join(escaped, ",")
}
