package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
)

func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		name string
		edit func(*billing.RawEntry)
		date string
		want billing.DayType
	}{
		{"weekday", func(e *billing.RawEntry) {}, monday, billing.DayWeekday},
		{"saturday", func(e *billing.RawEntry) {}, saturday, billing.DaySaturday},
		{"sunday", func(e *billing.RawEntry) {}, sunday, billing.DaySunday},
		{"public holiday on a weekday", func(e *billing.RawEntry) { e.IsPublicHoliday = true }, monday, billing.DayPublicHoliday},
		{"public holiday on a sunday", func(e *billing.RawEntry) { e.IsPublicHoliday = true }, sunday, billing.DayPublicHoliday},
		{"rain on a saturday", func(e *billing.RawEntry) { e.IsRainDay = true }, saturday, billing.DayRain},
		{"inclement weather", func(e *billing.RawEntry) { e.IsInclementWeather = true }, monday, billing.DayRain},
		{"holiday beats rain", func(e *billing.RawEntry) { e.IsRainDay = true; e.IsPublicHoliday = true }, monday, billing.DayPublicHoliday},
		{"strike day is informational", func(e *billing.RawEntry) { e.IsStrikeDay = true }, monday, billing.DayWeekday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("e", tt.date, "EX-01", billing.RoleOperator, 8)
			tt.edit(&e)

			c, err := billing.Classify(effective(e))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.DayType)
		})
	}
}

func TestClassify_BreakdownAlwaysWins(t *testing.T) {
	// GIVEN: Every combination of the other condition flags on every kind of day
	// WHEN: The breakdown flag is set
	// THEN: The day is a breakdown day

	for _, date := range []string{monday, saturday, sunday} {
		for mask := 0; mask < 16; mask++ {
			e := entry("e", date, "EX-01", billing.RoleOperator, 8)
			e.IsBreakdown = true
			e.IsRainDay = mask&1 != 0
			e.IsInclementWeather = mask&2 != 0
			e.IsPublicHoliday = mask&4 != 0
			e.IsStrikeDay = mask&8 != 0

			c, err := billing.Classify(effective(e))
			require.NoError(t, err)
			assert.Equal(t, billing.DayBreakdown, c.DayType, "date %s mask %d", date, mask)
		}
	}
}

func TestClassify_CalendarTypeKeptForRainDays(t *testing.T) {
	e := entry("e", saturday, "EX-01", billing.RoleOperator, 2)
	e.IsRainDay = true

	c, err := billing.Classify(effective(e))
	require.NoError(t, err)
	assert.Equal(t, billing.DayRain, c.DayType)
	assert.Equal(t, billing.DaySaturday, c.Calendar)
}

func TestClassifyWithCalendar_HolidayFromCalendar(t *testing.T) {
	holidays := generic.NewHolidaySet([]generic.Holiday{
		{Date: generic.MustParseDay(monday), Name: "Human Rights Day"},
	})

	c, err := billing.ClassifyWithCalendar(effective(entry("e", monday, "EX-01", billing.RoleOperator, 8)), holidays)
	require.NoError(t, err)
	assert.Equal(t, billing.DayPublicHoliday, c.DayType)

	c, err = billing.ClassifyWithCalendar(effective(entry("e", tuesday, "EX-01", billing.RoleOperator, 8)), holidays)
	require.NoError(t, err)
	assert.Equal(t, billing.DayWeekday, c.DayType)
}

func TestClassify_InvalidDate(t *testing.T) {
	e := entry("e", "2025-02-30", "EX-01", billing.RoleOperator, 8)

	_, err := billing.Classify(effective(e))
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrInvalidTimeRange)
	assert.ErrorIs(t, err, generic.ErrInvalidDay)

	var trErr *billing.InvalidTimeRangeError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "date", trErr.Field)
}
