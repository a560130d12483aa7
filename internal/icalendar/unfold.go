package icalendar

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unfolder turns a document into logical lines. Physical lines are
// terminated by CRLF; a physical line starting with a single space
// continues the previous one.
type Unfolder struct {
	rest string
	num  int
}

// NewUnfolder returns an Unfolder positioned at the start of input.
func NewUnfolder(input string) *Unfolder {
	return &Unfolder{rest: input, num: 1}
}

// Next returns the next logical line and the physical line number it starts
// on. ok is false once only whitespace remains.
func (u *Unfolder) Next() (line string, num int, ok bool) {
	if strings.IndexFunc(u.rest, isNotSpace) < 0 {
		u.rest = ""
		return "", 0, false
	}

	num = u.num
	line, rest := cutCRLF(u.rest)
	u.num++
	if !strings.HasPrefix(rest, " ") {
		u.rest = rest
		return line, num, true
	}

	var b strings.Builder
	b.WriteString(line)
	for strings.HasPrefix(rest, " ") {
		var cont string
		cont, rest = cutCRLF(rest[1:])
		b.WriteString(cont)
		u.num++
	}
	u.rest = rest
	return b.String(), num, true
}

// Unfold collects every logical line of input.
func Unfold(input string) []string {
	u := NewUnfolder(input)
	var out []string
	for {
		line, _, ok := u.Next()
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

// Fold splits line into physical lines of at most width octets joined by
// CRLF and a continuation space. UTF-8 sequences are never split. A width
// below 2 disables folding.
func Fold(line string, width int) string {
	if width < 2 || len(line) <= width {
		return line
	}

	var b strings.Builder
	limit := width
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(line)
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry the leading space
		limit = width - 1
	}
	b.WriteString(line)
	return b.String()
}

// NormalizeLineEndings rewrites bare LF terminators as CRLF.
func NormalizeLineEndings(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + strings.Count(s, "\n"))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func cutCRLF(s string) (line, rest string) {
	if i := strings.Index(s, "\r\n"); i >= 0 {
		return s[:i], s[i+2:]
	}
	return s, ""
}

func isNotSpace(r rune) bool { return !unicode.IsSpace(r) }
