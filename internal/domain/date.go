package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD journey date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: journey date %q is not YYYY-MM-DD", ErrInvalidRequest, s)
	}
	return t, nil
}

// DateOf drops the clock part, keeping the calendar day of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
