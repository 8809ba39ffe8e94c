package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
)

func result(date, asset, operator string, dt billing.DayType, actual, billable float64) billing.Result {
	e := billing.RawEntry{Date: date, AssetID: asset, Operator: operator}
	return billing.Result{
		Key:           e.Key(),
		Entry:         effective(e),
		DayType:       dt,
		ActualHours:   generic.Hours(actual),
		BillableHours: generic.Hours(billable),
	}
}

func TestAggregate_BucketsAndTotals(t *testing.T) {
	results := []billing.Result{
		result(monday, "EX-01", "sipho", billing.DayWeekday, 9, 9),
		result(tuesday, "EX-01", "sipho", billing.DayWeekday, 7.5, 7.5),
		result(saturday, "EX-01", "sipho", billing.DaySaturday, 3, 12),
		result(sunday, "EX-01", "sipho", billing.DayRain, 0.5, 4.5),
	}

	totals := billing.Aggregate(results, nil)
	require.Len(t, totals, 1)

	total := totals[billing.UngroupedKey]
	assert.Equal(t, 4, total.Entries)
	assertHours(t, 20, total.ActualHours)
	assertHours(t, 33, total.BillableHours)

	weekday := total.Bucket(billing.DayWeekday)
	assert.Equal(t, 2, weekday.Entries)
	assertHours(t, 16.5, weekday.ActualHours)
	assertHours(t, 12, total.Bucket(billing.DaySaturday).BillableHours)
	assertHours(t, 4.5, total.Bucket(billing.DayRain).BillableHours)
	assertHours(t, 0, total.Bucket(billing.DayBreakdown).BillableHours)
	assert.False(t, total.HasCost)
}

func TestAggregate_ReferenceOnlyNeverSummed(t *testing.T) {
	sub := result(monday, "EX-01", "contractor", billing.DayWeekday, 10, 10)
	sub.ReferenceOnly = true

	totals := billing.Aggregate([]billing.Result{sub, result(tuesday, "EX-01", "sipho", billing.DayWeekday, 8, 8)}, billing.Ungrouped)

	total := totals[billing.UngroupedKey]
	assert.Equal(t, 1, total.Entries)
	assert.Equal(t, 1, total.ExcludedEntries)
	assertHours(t, 8, total.BillableHours)
}

func TestAggregate_GroupBy(t *testing.T) {
	results := []billing.Result{
		result("2025-03-10", "EX-01", "sipho", billing.DayWeekday, 8, 8),
		result("2025-03-17", "EX-02", "sipho", billing.DayWeekday, 6, 6),
		result("2025-04-01", "EX-02", "thandi", billing.DayWeekday, 5, 5),
	}

	byAsset := billing.Aggregate(results, billing.ByAsset)
	assert.Equal(t, []string{"EX-01", "EX-02"}, billing.SortedKeys(byAsset))
	assertHours(t, 11, byAsset["EX-02"].BillableHours)

	byOperator := billing.Aggregate(results, billing.ByOperator)
	assertHours(t, 14, byOperator["sipho"].BillableHours)

	byWeek := billing.Aggregate(results, billing.ByISOWeek)
	assert.Equal(t, []string{"2025-W11", "2025-W12", "2025-W14"}, billing.SortedKeys(byWeek))

	byMonth := billing.Aggregate(results, billing.ByMonth)
	assert.Equal(t, []string{"2025-03", "2025-04"}, billing.SortedKeys(byMonth))
}

func TestKeyFuncFor(t *testing.T) {
	for _, name := range []string{"", "none", "total", "asset", "operator", "day", "week", "month"} {
		fn, err := billing.KeyFuncFor(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn, name)
	}

	_, err := billing.KeyFuncFor("site")
	assert.ErrorIs(t, err, billing.ErrConfiguration)
}

func TestTotals_Merge(t *testing.T) {
	a := billing.Aggregate([]billing.Result{result(monday, "EX-01", "", billing.DayWeekday, 8, 8)}, nil)[billing.UngroupedKey]
	b := billing.Aggregate([]billing.Result{result(saturday, "EX-02", "", billing.DaySaturday, 3, 12)}, nil)[billing.UngroupedKey]

	fleet := billing.NewTotals("fleet")
	fleet.Merge(a)
	fleet.Merge(b)
	fleet.Merge(nil)

	assert.Equal(t, 2, fleet.Entries)
	assertHours(t, 20, fleet.BillableHours)
	assertHours(t, 12, fleet.Bucket(billing.DaySaturday).BillableHours)
}

func TestTotals_RoundedOnlyAtReadOut(t *testing.T) {
	// GIVEN: Three 20-minute entries (1/3 hour each, unrounded)
	// WHEN: Reading out totals
	// THEN: The sum is rounded once (1.0), not per entry (0.3 * 3 = 0.9)

	rate := decPtr(100)
	var results []billing.Result
	for _, date := range []string{monday, tuesday, "2025-03-12"} {
		e := billing.RawEntry{Date: date, SubjectKey: "EX-01", StartTime: "08:00", EndTime: "08:20"}
		r, err := billing.Calculate(effective(e), perHourPolicy(1), rate)
		require.NoError(t, err)
		results = append(results, r)
	}

	rounded := billing.Aggregate(results, nil)[billing.UngroupedKey].Rounded()
	assert.Equal(t, "1", rounded.BillableHours.String())
	require.NotNil(t, rounded.Cost)
	assert.Equal(t, "100", rounded.Cost.String())
	require.Len(t, rounded.Buckets, len(billing.AllDayTypes()))
	assert.Equal(t, billing.DayWeekday, rounded.Buckets[0].DayType)
}
