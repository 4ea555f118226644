package core

import (
	"fmt"
	"strconv"
	"time"
)

// Month identifies a calendar month. Arithmetic happens purely in
// (year, month) space; concrete instants are only produced for interval
// boundaries, always at day 1 UTC, so shifting can never overflow into an
// unexpected month through day clamping.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing the given instant.
func MonthOf(t time.Time) Month {
	y, m, _ := t.UTC().Date()
	return Month{Year: y, Month: m}
}

// Bounds returns the half-open interval [start, end) covering the month.
// Filtering with occurredOn >= start && occurredOn < end never double-counts
// boundary dates and handles 28-31 day months without special cases.
func (m Month) Bounds() (start, end time.Time) {
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	next := m.Shift(1)
	end = time.Date(next.Year, next.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Shift returns the month delta months away. Negative deltas move backwards.
func (m Month) Shift(delta int) Month {
	idx := m.Year*12 + int(m.Month) - 1 + delta
	y := idx / 12
	mo := idx % 12
	if mo < 0 {
		mo += 12
		y--
	}
	return Month{Year: y, Month: time.Month(mo + 1)}
}

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.Shift(-1) }

// Next returns the following month.
func (m Month) Next() Month { return m.Shift(1) }

// Contains reports whether the instant falls within the month's bounds.
func (m Month) Contains(t time.Time) bool {
	start, end := m.Bounds()
	return !t.Before(start) && t.Before(end)
}

// Valid reports whether the month number is in range. The zero Month is
// invalid, which keeps "no month given" distinguishable from January year 0.
func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December
}

// Label returns a human-readable "Month Year" string, e.g. "January 2026".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month.String(), m.Year)
}

// YearBounds returns the half-open interval [Jan 1 year, Jan 1 year+1).
func YearBounds(year int) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// YearLabel returns the display label for a year.
func YearLabel(year int) string {
	return strconv.Itoa(year)
}
