package utils

import (
	"strings"
	"time"
)

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04:05"
)

// ParseDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, strings.TrimSpace(s))
}

// TruncateToDate drops the time-of-day portion, keeping a UTC midnight date.
func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeOfDayString formats the clock portion of t for lexicographic ordering.
func TimeOfDayString(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// HasTimeOfDay reports whether t carries a clock portion beyond midnight.
func HasTimeOfDay(t time.Time) bool {
	t = t.UTC()
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

// IsFutureDate reports whether d falls on a later calendar day than now (UTC).
// Same-day timestamps are not future dates.
func IsFutureDate(d time.Time, now time.Time) bool {
	return TruncateToDate(d).After(TruncateToDate(now))
}
