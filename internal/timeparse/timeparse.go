// Package timeparse parses the human-entered durations the lock tool
// accepts: suffix-qualified wait timeouts ("90s", "5m", "2h", "1d") and
// poll intervals given in fractional milliseconds ("50.0").
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// reTimeout matches a decimal number with an optional unit suffix.
var reTimeout = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*([a-z]*)$`)

// timeoutUnits maps accepted suffixes to their base duration. Days are
// included because lock waits in backup jobs are routinely that long;
// time.ParseDuration has no day unit, hence this parser.
var timeoutUnits = map[string]time.Duration{
	"":        time.Second,
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"d":       24 * time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// ParseTimeout parses a wait deadline duration. The value is a decimal
// number with an optional unit suffix (seconds, minutes, hours, or days in
// long or short form); a bare number means seconds. The result must be
// positive.
func ParseTimeout(s string) (time.Duration, error) {
	m := reTimeout.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	unit, ok := timeoutUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, m[2])
	}

	d := time.Duration(value * float64(unit))
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// ParseIntervalMS parses a poll interval given in milliseconds, with
// fractional-millisecond precision ("50.0", "0.5"). The result must be
// positive.
func ParseIntervalMS(s string) (time.Duration, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("'%s' is an invalid interval: %w", s, err)
	}

	d := time.Duration(value * float64(time.Millisecond))
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be positive", s)
	}
	return d, nil
}
