package icalendar

import "strings"

// lexer gives one line of lookahead over the unfolder. A peeked line is
// parsed once and kept until it is taken or stepped over.
type lexer struct {
	u *Unfolder

	raw    string
	rawNum int
	held   bool

	parsed    Line
	parseErr  error
	hasParsed bool

	// num is the line number of the last line handed out.
	num int
}

func newLexer(input string) *lexer {
	return &lexer{u: NewUnfolder(input)}
}

// fill loads the next non-empty raw line. It reports false at end of input.
func (l *lexer) fill() bool {
	if l.held {
		return true
	}
	for {
		raw, num, ok := l.u.Next()
		if !ok {
			return false
		}
		if raw == "" {
			continue
		}
		l.raw, l.rawNum, l.held = raw, num, true
		l.hasParsed = false
		return true
	}
}

// empty reports whether no lines are left.
func (l *lexer) empty() bool { return !l.fill() }

// peek parses the next line without consuming it.
func (l *lexer) peek() (Line, bool, error) {
	if !l.fill() {
		return Line{}, false, nil
	}
	if !l.hasParsed {
		l.parsed, l.parseErr = ParseLine(l.raw)
		l.hasParsed = true
	}
	if l.parseErr != nil {
		return Line{}, true, &ParseError{Line: l.rawNum, Err: l.parseErr}
	}
	return l.parsed, true, nil
}

// next consumes and returns the next line.
func (l *lexer) next() (Line, bool, error) {
	line, ok, err := l.peek()
	if ok {
		l.step()
	}
	return line, ok, err
}

// step drops the held line, or one raw line if none is held, without
// parsing it.
func (l *lexer) step() {
	if !l.fill() {
		return
	}
	l.num = l.rawNum
	l.held = false
	l.hasParsed = false
}

// skipComponent discards lines up to and including the END matching a BEGIN
// that was just consumed. Lines inside are not parsed.
func (l *lexer) skipComponent() error {
	depth := 1
	for depth > 0 {
		if !l.fill() {
			return &ParseError{Line: l.num, Err: ErrUnexpectedEOF}
		}
		switch rawName(l.raw) {
		case "BEGIN":
			depth++
		case "END":
			depth--
		}
		l.step()
	}
	return nil
}

// rawName returns the upper-cased name of a raw line, or "" if the line
// does not look like BEGIN or END.
func rawName(raw string) string {
	i := strings.IndexAny(raw, ";:")
	if i < 0 {
		return ""
	}
	name := raw[:i]
	switch {
	case strings.EqualFold(name, "BEGIN"):
		return "BEGIN"
	case strings.EqualFold(name, "END"):
		return "END"
	}
	return ""
}
