package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil calendar day (no clock, no zone)
// =============================================================================

// DateLayout is the ISO date format used for every persisted date key.
const DateLayout = "2006-01-02"

// Date is a calendar day as the user sees it on their wall clock. It carries
// no time of day and no location, so two dates compare equal exactly when
// they name the same local day. Date is comparable and safe as a map key.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate normalizes overflowing components (Jan 32 -> Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate panics on malformed input. Intended for tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Midnight returns local midnight of the day in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

// utc is used for arithmetic so DST transitions never shift the day.
func (d Date) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.utc().Before(other.utc()) }
func (d Date) After(other Date) bool         { return d.utc().After(other.utc()) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.utc().AddDate(0, 0, n)) }

// Properties
func (d Date) Year() int              { return d.year }
func (d Date) Month() time.Month      { return d.month }
func (d Date) Day() int               { return d.day }
func (d Date) Weekday() time.Weekday  { return d.utc().Weekday() }
func (d Date) IsWeekend() bool        { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) IsWeekday() bool        { return !d.IsWeekend() }
func (d Date) IsZero() bool           { return d == Date{} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.utc().Format(DateLayout)
}

// MarshalText makes Date usable as a JSON value and as a JSON object key.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the signed number of days from -> to.
func DaysBetween(from, to Date) int {
	return int(to.utc().Sub(from.utc()).Hours() / 24)
}

// =============================================================================
// CLOCK - Source of "today"
// =============================================================================

// Clock supplies the current instant. Every guard that compares against
// "today" reads it exactly once per operation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the process's local zone.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used by tests and scenarios.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FixedClockOn returns a clock pinned to noon of the given day.
func FixedClockOn(d Date) FixedClock {
	return FixedClock{At: d.Midnight(time.Local).Add(12 * time.Hour)}
}

// Today returns the local calendar day of the clock.
func Today(c Clock) Date {
	if c == nil {
		c = SystemClock{}
	}
	return DateOf(c.Now().In(time.Local))
}
