package timex

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire and storage form of a punch timestamp (seconds precision).
const Layout = "2006-01-02 15:04:05"

// layoutFrac keeps sub-second digits when present and omits them otherwise.
const layoutFrac = "2006-01-02 15:04:05.999999999"

// DateLayout is used for report date filters.
const DateLayout = "2006-01-02"

// Naive drops the location of t, keeping its wall clock in UTC. Punch
// timestamps are stored without offset, so every value that reaches a store
// goes through Naive first.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Format renders a naive time, keeping fractional seconds only when present.
func Format(t time.Time) string {
	return t.Format(layoutFrac)
}

// FormatSeconds renders a naive time truncated to whole seconds.
func FormatSeconds(t time.Time) string {
	return t.Truncate(time.Second).Format(Layout)
}

var parseLayouts = []string{
	layoutFrac,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	DateLayout,
}

// Parse reads a stored timestamp in any of the forms the two backends produce.
// Values carrying an offset keep their wall clock, not their instant.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range parseLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MonthBounds returns [first day of the month of now, first day of next month)
// as naive times.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
