package generic

import "fmt"

// =============================================================================
// PERIOD - A reporting date range
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
//
// Examples:
//   - A monthly billing run: Mar 1 - Mar 31
//   - An EPH report for one week: Mon - Sun
type Period struct {
	Start TimePoint
	End   TimePoint
}

// ParsePeriod parses two day keys into a period and validates it.
func ParsePeriod(from, to string) (Period, error) {
	start, err := ParseDay(from)
	if err != nil {
		return Period{}, err
	}
	end, err := ParseDay(to)
	if err != nil {
		return Period{}, err
	}
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate rejects a period whose end is before its start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthOf returns the calendar month containing the day.
func MonthOf(t TimePoint) Period {
	start := NewTimePoint(t.Year(), t.Month(), 1)
	end := NewTimePoint(t.Year(), t.Month()+1, 1).AddDays(-1)
	return Period{Start: start, End: end}
}

// WeekOf returns the Monday-to-Sunday ISO week containing the day.
func WeekOf(t TimePoint) Period {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday closes the ISO week
	}
	monday := t.AddDays(-(wd - 1))
	return Period{Start: monday, End: monday.AddDays(6)}
}
