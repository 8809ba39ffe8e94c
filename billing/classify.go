package billing

import (
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// DAY CLASSIFIER
// =============================================================================

// Classification is the day type of an entry plus the ordinary calendar type
// of its date. Calendar matters when a rain day falls back to the calendar
// policy because rain-day billing is switched off.
type Classification struct {
	DayType  DayType
	Calendar DayType
}

// Classify assigns a day type using a fixed priority, first match wins:
//
//  1. breakdown
//  2. public holiday
//  3. rain day / inclement weather
//  4. Saturday
//  5. Sunday
//  6. weekday
//
// A broken asset earns nothing regardless of weather or calendar, so
// breakdown outranks everything. Strike days do not affect the category.
func Classify(entry EffectiveEntry) (Classification, error) {
	return ClassifyWithCalendar(entry, nil)
}

// ClassifyWithCalendar is Classify with a holiday calendar: a date listed in
// the calendar is treated as if the entry were flagged as a public holiday.
func ClassifyWithCalendar(entry EffectiveEntry, holidays generic.HolidayCalendar) (Classification, error) {
	e := entry.Entry
	day, err := generic.ParseDay(e.Date)
	if err != nil {
		return Classification{}, &InvalidTimeRangeError{
			Key:     e.Key(),
			EntryID: e.ID,
			Field:   "date",
			Value:   e.Date,
			Reason:  "not a calendar day",
			Err:     err,
		}
	}

	holiday := e.IsPublicHoliday || (holidays != nil && holidays.IsHoliday(day))
	calendar := calendarDayType(day, holiday)

	switch {
	case e.IsBreakdown:
		return Classification{DayType: DayBreakdown, Calendar: calendar}, nil
	case holiday:
		return Classification{DayType: DayPublicHoliday, Calendar: calendar}, nil
	case e.IsRainDay || e.IsInclementWeather:
		return Classification{DayType: DayRain, Calendar: calendar}, nil
	default:
		return Classification{DayType: calendar, Calendar: calendar}, nil
	}
}

func calendarDayType(day generic.TimePoint, holiday bool) DayType {
	switch {
	case holiday:
		return DayPublicHoliday
	case day.IsSaturday():
		return DaySaturday
	case day.IsSunday():
		return DaySunday
	default:
		return DayWeekday
	}
}
