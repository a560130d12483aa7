package icalendar

// parseDigits reads between minDigits and maxDigits decimal digits from the
// front of s and checks the result against [lo, hi].
func parseDigits(s, what string, minDigits, maxDigits, lo, hi int) (int, string, error) {
	n, v := 0, 0
	for n < len(s) && n < maxDigits && isDigit(s[n]) {
		v = v*10 + int(s[n]-'0')
		n++
	}
	if n < minDigits {
		return 0, s, &DigitsError{What: what, Min: minDigits, Max: maxDigits, Input: clip(s)}
	}
	if v < lo || v > hi {
		return 0, s, &RangeError{What: what, Min: lo, Max: hi, Value: v}
	}
	return v, s[n:], nil
}

// cutSign strips a leading '+' or '-'.
func cutSign(s string) (rest string, negative, signed bool) {
	if s == "" {
		return s, false, false
	}
	switch s[0] {
	case '-':
		return s[1:], true, true
	case '+':
		return s[1:], false, true
	}
	return s, false, false
}

// parseSigned parses a whole optionally signed integer whose magnitude lies
// in [lo, hi].
func parseSigned(s, what string, maxDigits, lo, hi int) (int, error) {
	rest, neg, _ := cutSign(s)
	v, rest, err := parseDigits(rest, what, 1, maxDigits, lo, hi)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, errTrailing(what, rest)
	}
	if neg {
		v = -v
	}
	return v, nil
}
