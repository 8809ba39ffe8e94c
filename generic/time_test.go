package generic_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// DAY TESTS
// =============================================================================

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-03-10", "2025-03-10", false},
		{" 2025-03-10 ", "2025-03-10", false},
		{"2025-03-10T23:30:00+02:00", "2025-03-10", false},
		{"2025-02-29", "", true},
		{"10/03/2025", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := generic.ParseDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, generic.ErrInvalidDay)
				assert.True(t, generic.IsClientError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTimePoint_Labels(t *testing.T) {
	tests := []struct {
		day         string
		week, month string
	}{
		{"2025-03-10", "2025-W11", "2025-03"},
		{"2025-03-02", "2025-W09", "2025-03"},
		// Dec 29 2025 belongs to ISO week 1 of 2026
		{"2025-12-29", "2026-W01", "2025-12"},
	}
	for _, tt := range tests {
		day := generic.MustParseDay(tt.day)
		assert.Equal(t, tt.week, day.ISOWeekLabel(), tt.day)
		assert.Equal(t, tt.month, day.MonthLabel(), tt.day)
	}
}

func TestTimePoint_Weekend(t *testing.T) {
	assert.True(t, generic.MustParseDay("2025-03-15").IsSaturday())
	assert.True(t, generic.MustParseDay("2025-03-16").IsSunday())
	assert.Equal(t, time.Monday, generic.MustParseDay("2025-03-17").Weekday())
}

// =============================================================================
// CLOCK TESTS
// =============================================================================

func TestParseClock(t *testing.T) {
	valid := map[string]generic.ClockTime{
		"00:00":    0,
		"07:30":    7*3600 + 30*60,
		"7:05":     7*3600 + 5*60,
		"23:59:59": 86399,
	}
	for in, want := range valid {
		got, err := generic.ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "12:60", "12", "12:00:00:00", "ab:cd", "-1:30", "123:00"} {
		_, err := generic.ParseClock(in)
		assert.ErrorIs(t, err, generic.ErrInvalidClock, in)
	}
}

func TestHoursBetween(t *testing.T) {
	clock := func(s string) generic.ClockTime {
		c, err := generic.ParseClock(s)
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		in, out string
		want    string
	}{
		{"07:00", "17:30", "10.5"},
		{"22:00", "06:00", "8"},
		{"23:45", "00:15", "0.5"},
		{"08:00", "08:00", "0"},
	}
	for _, tt := range tests {
		got := generic.HoursBetween(clock(tt.in), clock(tt.out))
		assert.Equal(t, tt.want, got.Value.String(), "%s-%s", tt.in, tt.out)
		assert.Equal(t, generic.UnitHours, got.Unit)
	}
}

// =============================================================================
// AMOUNT TESTS
// =============================================================================

func TestHoursFromFloat(t *testing.T) {
	h, err := generic.HoursFromFloat(7.25)
	require.NoError(t, err)
	assert.Equal(t, "7.25", h.Value.String())

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := generic.HoursFromFloat(f)
		assert.ErrorIs(t, err, generic.ErrNotANumber)
	}
}

func TestAmount_DisplayPrecision(t *testing.T) {
	// GIVEN: Unrounded amounts
	// THEN: Hours read out at 1 place and currency at 2, half away from zero

	assert.Equal(t, "7.3", generic.Hours(7.25).Display())
	assert.Equal(t, "0.0", generic.ZeroHours().Display())

	cost := generic.Hours(1).In(generic.UnitCurrency, generic.MustParseDecimal("10.005"))
	assert.Equal(t, generic.UnitCurrency, cost.Unit)
	assert.Equal(t, "10.01", cost.Display())
	assert.Equal(t, "10.005", cost.Value.String(), "conversion does not round")
}

func TestAmount_Max(t *testing.T) {
	assert.True(t, generic.Hours(8).Equal(generic.Hours(3).Max(generic.Hours(8))))
	assert.True(t, generic.Hours(9).Equal(generic.Hours(9).Max(generic.Hours(8))))
}

// =============================================================================
// HOLIDAY TESTS
// =============================================================================

func TestHolidaySet(t *testing.T) {
	set := generic.NewHolidaySet([]generic.Holiday{
		{Date: generic.MustParseDay("2025-04-27"), Name: "Freedom Day"},
	})

	assert.True(t, set.IsHoliday(generic.MustParseDay("2025-04-27")))
	assert.False(t, set.IsHoliday(generic.MustParseDay("2025-04-28")))

	name, ok := set.Name(generic.MustParseDay("2025-04-27"))
	assert.True(t, ok)
	assert.Equal(t, "Freedom Day", name)

	var calendar generic.HolidayCalendar = set
	assert.NotNil(t, calendar)
}

func TestMustParse_PanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { generic.MustParseDecimal("ten") })
	assert.Panics(t, func() { generic.MustParseDay("2025-02-30") })
	assert.NotPanics(t, func() { generic.MustParseDecimal("395.50") })
}
