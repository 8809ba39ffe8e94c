package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME POINT - A calendar day
// =============================================================================

// DayLayout is the calendar-day key used by timesheet records.
const DayLayout = "2006-01-02"

// TimePoint is a calendar day. Timesheet dates are day keys, not instants,
// so there is no time zone conversion anywhere in the engine.
type TimePoint struct {
	Time time.Time
}

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a "YYYY-MM-DD" day key. A timestamp with a "T" suffix is
// accepted and truncated to its date part as written.
func ParseDay(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DayLayout) && s[len(DayLayout)] == 'T' {
		s = s[:len(DayLayout)]
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return TimePoint{Time: t}, nil
}

func MustParseDay(s string) TimePoint {
	tp, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsSaturday() bool      { return tp.Weekday() == time.Saturday }
func (tp TimePoint) IsSunday() bool        { return tp.Weekday() == time.Sunday }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(DayLayout) }

// ISOWeekLabel returns a label like "2025-W09".
func (tp TimePoint) ISOWeekLabel() string {
	year, week := tp.Time.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthLabel returns a label like "2025-03".
func (tp TimePoint) MonthLabel() string { return tp.Time.Format("2006-01") }

// =============================================================================
// CLOCK TIME - Time-in / time-out on a timesheet
// =============================================================================

// ClockTime is a wall-clock reading within a day, in seconds since midnight.
type ClockTime int

const secondsPerDay = 24 * 60 * 60

// ParseClock parses "HH:MM" or "HH:MM:SS" (24-hour clock).
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	limits := []int{23, 59, 59}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) == 0 || len(p) > 2 || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		fields[i] = n
	}
	return ClockTime(fields[0]*3600 + fields[1]*60 + fields[2]), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/3600, (int(c)%3600)/60)
}

// HoursBetween returns the elapsed hours from time-in to time-out. A time-out
// earlier than the time-in is a shift that crossed midnight, so a day is added.
func HoursBetween(timeIn, timeOut ClockTime) Amount {
	secs := int64(timeOut - timeIn)
	if secs < 0 {
		secs += secondsPerDay
	}
	return Amount{
		Value: decimal.NewFromInt(secs).Div(decimal.NewFromInt(3600)),
		Unit:  UnitHours,
	}
}

// =============================================================================
// HOLIDAY CALENDAR - Public holidays are an input, never computed
// =============================================================================

// Holiday is a public holiday supplied by tenant configuration.
type Holiday struct {
	ID       string
	TenantID string
	Date     TimePoint
	Name     string // e.g., "Freedom Day"
}

// HolidayCalendar answers whether a day is a public holiday.
type HolidayCalendar interface {
	IsHoliday(date TimePoint) bool
}

// HolidaySet is a HolidayCalendar over a fixed set of days.
type HolidaySet map[string]string

// NewHolidaySet builds a set from holiday records.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[h.Date.String()] = h.Name
	}
	return set
}

func (s HolidaySet) IsHoliday(date TimePoint) bool {
	_, ok := s[date.String()]
	return ok
}

// Name returns the holiday name for a date, if any.
func (s HolidaySet) Name(date TimePoint) (string, bool) {
	name, ok := s[date.String()]
	return name, ok
}
