package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinInterval is the fallback interval for unusable frequencies.
const MinInterval = time.Minute

// ErrMalformedFrequency is returned by ParseFrequency.
var ErrMalformedFrequency = errors.New("malformed frequency")

// ParseFrequency converts a settings frequency into an interval.
//
// A frequency ending in "s" counts seconds ("10s" is 10s); anything else
// counts minutes ("5" is 5m). Only the leading integer is read, so "15 min"
// is 15 minutes. Values without a leading integer or not above zero are
// rejected.
func ParseFrequency(freq string) (time.Duration, error) {
	raw := strings.TrimSpace(freq)
	unit := time.Minute
	if strings.HasSuffix(raw, "s") {
		unit = time.Second
		raw = strings.Replace(raw, "s", "", 1)
	}
	n, ok := leadingInt(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedFrequency, freq)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q is not positive", ErrMalformedFrequency, freq)
	}
	// Clamp absurd values instead of overflowing.
	const maxN = int64(365 * 24 * 60 * 60)
	if n > maxN {
		n = maxN
	}
	return time.Duration(n) * unit, nil
}

// ResolveInterval is ParseFrequency with a fallback: unusable frequencies
// resolve to min (MinInterval when min <= 0) and report ok=false.
func ResolveInterval(freq string, min time.Duration) (d time.Duration, ok bool) {
	if min <= 0 {
		min = MinInterval
	}
	d, err := ParseFrequency(freq)
	if err != nil {
		return min, false
	}
	return d, true
}

// leadingInt reads an optionally signed run of digits after leading spaces.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 1<<53 {
			n = n*10 + int64(r-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
