package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// BILLABLE HOURS CALCULATOR
// =============================================================================

// Result is the billing outcome of one effective entry. Figures are exact;
// rounding happens only when Totals are read out.
type Result struct {
	Key            EntryKey
	Entry          EffectiveEntry
	DayType        DayType
	Policy         ResolvedPolicy
	ActualHours    generic.Amount
	BillableHours  generic.Amount
	RateMultiplier decimal.Decimal
	Cost           *generic.Amount // nil when no rate was supplied

	// ReferenceOnly results are for display and never enter totals.
	ReferenceOnly bool
}

// ActualHours derives the hours worked: from the time-in/time-out pair when
// present (a close before the open crossed midnight), otherwise from the
// precomputed total. Nothing is clamped: unusable input is an error.
func ActualHours(e RawEntry) (generic.Amount, error) {
	start := strings.TrimSpace(e.StartTime)
	end := strings.TrimSpace(e.EndTime)

	invalid := func(field, value, reason string, err error) error {
		return &InvalidTimeRangeError{
			Key:     e.Key(),
			EntryID: e.ID,
			Field:   field,
			Value:   value,
			Reason:  reason,
			Err:     err,
		}
	}

	switch {
	case start != "" && end != "":
		timeIn, err := generic.ParseClock(start)
		if err != nil {
			return generic.Amount{}, invalid("start_time", start, "unparseable clock time", err)
		}
		timeOut, err := generic.ParseClock(end)
		if err != nil {
			return generic.Amount{}, invalid("end_time", end, "unparseable clock time", err)
		}
		return generic.HoursBetween(timeIn, timeOut), nil

	case start != "":
		return generic.Amount{}, invalid("end_time", end, "start time without end time", nil)

	case end != "":
		return generic.Amount{}, invalid("start_time", start, "end time without start time", nil)

	case e.TotalHours != nil:
		hours, err := generic.HoursFromFloat(*e.TotalHours)
		if err != nil {
			return generic.Amount{}, invalid("total_hours", strconv.FormatFloat(*e.TotalHours, 'g', -1, 64), "not a finite number", err)
		}
		if hours.IsNegative() {
			return generic.Amount{}, invalid("total_hours", hours.Value.String(), "negative hours", nil)
		}
		return hours, nil
	}
	return generic.Amount{}, invalid("", "", "entry has neither start/end times nor total hours", nil)
}

// Calculate applies a resolved policy to an effective entry. Cost is set
// when a per-hour rate is supplied; the rate's currency is the caller's.
func Calculate(entry EffectiveEntry, policy ResolvedPolicy, rate *decimal.Decimal) (Result, error) {
	actual, err := ActualHours(entry.Entry)
	if err != nil {
		return Result{}, err
	}
	if rate != nil && rate.IsNegative() {
		return Result{}, &ConfigurationError{Field: "rate", Reason: "must not be negative"}
	}

	billable := billableHours(actual, policy)

	r := Result{
		Key:            entry.Key(),
		Entry:          entry,
		DayType:        policy.DayType,
		Policy:         policy,
		ActualHours:    actual,
		BillableHours:  billable,
		RateMultiplier: policy.RateMultiplier,
		ReferenceOnly:  entry.ReferenceOnly,
	}
	if rate != nil {
		cost := billable.In(generic.UnitCurrency, *rate)
		r.Cost = &cost
	}
	return r, nil
}

func billableHours(actual generic.Amount, p ResolvedPolicy) generic.Amount {
	switch p.Method {
	case MethodZero:
		return actual.Zero()

	case MethodMinimumBilling:
		floor := generic.NewAmountFromDecimal(p.MinHours, generic.UnitHours)
		return actual.Max(floor).Mul(p.RateMultiplier)

	case MethodRainMinimum:
		// Step at the threshold: a day too short to be productive pays the
		// flat minimum, anything else pays actual hours.
		if actual.Value.LessThan(p.ThresholdHours) {
			return generic.NewAmountFromDecimal(p.MinHours, generic.UnitHours)
		}
		return actual

	default:
		return actual.Mul(p.RateMultiplier)
	}
}
