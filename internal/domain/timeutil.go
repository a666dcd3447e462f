package domain

import (
	"strings"
	"time"
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayName returns the three-letter weekday used as CV key.
func WeekdayName(t time.Time) string {
	return weekdayNames[t.Weekday()]
}

// IsWeekdayName reports whether s is one of Mon..Sun.
func IsWeekdayName(s string) bool {
	for _, name := range weekdayNames {
		if name == s {
			return true
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTimestamp accepts ISO-8601 timestamps with or without offset; naive
// values are read as UTC. The offset carried by the value is preserved.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate reads the leading YYYY-MM-DD of s.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ExecutionContext carries the business date a detection run is judged against.
type ExecutionContext struct {
	Date time.Time
}

// NewExecutionContext pins the run to the calendar day of day.
func NewExecutionContext(day time.Time) ExecutionContext {
	y, m, d := day.Date()
	return ExecutionContext{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Weekday is the execution day's weekday, used when a record carries no date.
func (e ExecutionContext) Weekday() string {
	return WeekdayName(e.Date)
}

// DateString formats the execution day as YYYY-MM-DD.
func (e ExecutionContext) DateString() string {
	return e.Date.Format(time.DateOnly)
}

// OnExecDay reports whether t falls on the execution day in UTC.
func (e ExecutionContext) OnExecDay(t time.Time) bool {
	y, m, d := t.UTC().Date()
	ey, em, ed := e.Date.Date()
	return y == ey && m == em && d == ed
}
