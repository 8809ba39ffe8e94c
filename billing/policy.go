/*
policy.go - Tenant billing configuration and policy resolution

PURPOSE:
  A tenant decides, per day type, whether time is billed strictly per hour
  or with a minimum, and at which rate multiplier. Rain days and breakdowns
  have their own dedicated rules. This file holds that configuration and
  turns (classification, config) into the one policy to bill an entry under.

BILLING METHODS:
  per_hour:
    - billable = actual * multiplier
  minimum_billing (ordinary day types):
    - billable = max(actual, min_hours) * multiplier
    - The minimum is a floor, never a ceiling
  rain_minimum (rain days, when enabled):
    - actual <  threshold: billable = min_hours (flat)
    - actual >= threshold: billable = actual
  zero (breakdown, when breakdown billing is disabled):
    - billable = 0

RESOLUTION:
  breakdown      -> breakdown.enabled ? per_hour at 1.0 : zero
  rain day       -> rain_days.enabled ? rain_minimum : the calendar day's policy
  weekday, Saturday, Sunday, public holiday
                 -> that day type's config; a disabled config bills
                    actual hours at 1.0 (hours are never discarded)

EXAMPLE:
  min := decimal.NewFromInt(8)
  cfg := billing.StandardConfig()
  cfg.Saturday = &billing.DayTypeConfig{
      Enabled:        true,
      BillingMethod:  billing.MinimumBilling,
      MinHours:       &min,
      RateMultiplier: decimal.NewFromFloat(1.5),
  }

SEE ALSO:
  - factory/config.go: YAML/JSON to BillingConfig
  - calculate.go: Applies a ResolvedPolicy to an entry
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// BILLING CONFIG - Read-only input to a calculation run
// =============================================================================

type BillingMethod string

const (
	PerHour        BillingMethod = "per_hour"
	MinimumBilling BillingMethod = "minimum_billing"
)

// DayTypeConfig configures one ordinary day type.
type DayTypeConfig struct {
	Enabled        bool
	BillingMethod  BillingMethod
	MinHours       *decimal.Decimal // required for MinimumBilling
	RateMultiplier decimal.Decimal
}

// RainDayConfig configures rain-day minimum billing.
type RainDayConfig struct {
	Enabled        bool
	MinHours       decimal.Decimal
	ThresholdHours decimal.Decimal
}

// BreakdownConfig decides whether breakdown days are billed at all.
type BreakdownConfig struct {
	Enabled bool
}

// BillingConfig is a tenant's complete billing policy. Every ordinary day
// type must be present; use a disabled DayTypeConfig to switch one off.
type BillingConfig struct {
	Weekday       *DayTypeConfig
	Saturday      *DayTypeConfig
	Sunday        *DayTypeConfig
	PublicHoliday *DayTypeConfig
	RainDays      RainDayConfig
	Breakdown     BreakdownConfig
}

// DayType returns the config of an ordinary day type, nil if absent.
func (c BillingConfig) DayType(d DayType) *DayTypeConfig {
	switch d {
	case DayWeekday:
		return c.Weekday
	case DaySaturday:
		return c.Saturday
	case DaySunday:
		return c.Sunday
	case DayPublicHoliday:
		return c.PublicHoliday
	}
	return nil
}

// Clone returns a deep copy, so concurrent runs never share pointers.
func (c BillingConfig) Clone() BillingConfig {
	out := c
	out.Weekday = c.Weekday.clone()
	out.Saturday = c.Saturday.clone()
	out.Sunday = c.Sunday.clone()
	out.PublicHoliday = c.PublicHoliday.clone()
	return out
}

func (d *DayTypeConfig) clone() *DayTypeConfig {
	if d == nil {
		return nil
	}
	out := *d
	if d.MinHours != nil {
		min := *d.MinHours
		out.MinHours = &min
	}
	return &out
}

// Validate reports the first problem that would make a run fail.
func (c BillingConfig) Validate() error {
	for _, dt := range OrdinaryDayTypes() {
		dc := c.DayType(dt)
		if dc == nil {
			return &ConfigurationError{DayType: dt, Reason: "day type config is missing"}
		}
		if err := dc.validate(dt); err != nil {
			return err
		}
	}
	if c.RainDays.Enabled {
		if c.RainDays.MinHours.IsNegative() {
			return &ConfigurationError{DayType: DayRain, Field: "min_hours", Reason: "must not be negative"}
		}
		if c.RainDays.ThresholdHours.IsNegative() {
			return &ConfigurationError{DayType: DayRain, Field: "threshold_hours", Reason: "must not be negative"}
		}
	}
	return nil
}

func (d *DayTypeConfig) validate(dt DayType) error {
	if !d.Enabled {
		return nil
	}
	switch d.BillingMethod {
	case PerHour:
	case MinimumBilling:
		if d.MinHours == nil {
			return &ConfigurationError{DayType: dt, Field: "min_hours", Reason: "required for minimum billing"}
		}
		if d.MinHours.IsNegative() {
			return &ConfigurationError{DayType: dt, Field: "min_hours", Reason: "must not be negative"}
		}
	default:
		return &ConfigurationError{DayType: dt, Field: "billing_method", Reason: "unknown method " + string(d.BillingMethod)}
	}
	if d.RateMultiplier.IsNegative() {
		return &ConfigurationError{DayType: dt, Field: "rate_multiplier", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// POLICY RESOLVER
// =============================================================================

// Method is the billing rule applied to one entry.
type Method string

const (
	MethodPerHour        Method = "per_hour"
	MethodMinimumBilling Method = "minimum_billing"
	MethodRainMinimum    Method = "rain_minimum"
	MethodZero           Method = "zero"
)

// ResolvedPolicy is the policy one entry is billed under.
type ResolvedPolicy struct {
	DayType DayType // classification of the entry
	Source  DayType // config section that supplied the rule

	// Enabled is false when the governing config is switched off.
	Enabled        bool
	Method         Method
	MinHours       decimal.Decimal
	ThresholdHours decimal.Decimal
	RateMultiplier decimal.Decimal
}

var one = decimal.NewFromInt(1)

// ResolvePolicy returns the billing policy for a classified entry.
func ResolvePolicy(c Classification, cfg BillingConfig) (ResolvedPolicy, error) {
	switch c.DayType {
	case DayBreakdown:
		if !cfg.Breakdown.Enabled {
			return ResolvedPolicy{
				DayType:        DayBreakdown,
				Source:         DayBreakdown,
				Method:         MethodZero,
				RateMultiplier: decimal.Zero,
			}, nil
		}
		// Cost recovery: actual hours, no minimum, no premium.
		return ResolvedPolicy{
			DayType:        DayBreakdown,
			Source:         DayBreakdown,
			Enabled:        true,
			Method:         MethodPerHour,
			RateMultiplier: one,
		}, nil

	case DayRain:
		if cfg.RainDays.Enabled {
			return ResolvedPolicy{
				DayType:        DayRain,
				Source:         DayRain,
				Enabled:        true,
				Method:         MethodRainMinimum,
				MinHours:       cfg.RainDays.MinHours,
				ThresholdHours: cfg.RainDays.ThresholdHours,
				RateMultiplier: one,
			}, nil
		}
		p, err := resolveOrdinary(c.Calendar, cfg)
		if err != nil {
			return ResolvedPolicy{}, err
		}
		p.DayType = DayRain
		return p, nil

	case DayWeekday, DaySaturday, DaySunday, DayPublicHoliday:
		return resolveOrdinary(c.DayType, cfg)
	}
	return ResolvedPolicy{}, &ConfigurationError{DayType: c.DayType, Reason: "unknown day type"}
}

func resolveOrdinary(dt DayType, cfg BillingConfig) (ResolvedPolicy, error) {
	if !dt.IsOrdinary() {
		return ResolvedPolicy{}, &ConfigurationError{DayType: dt, Reason: "not an ordinary day type"}
	}
	dc := cfg.DayType(dt)
	if dc == nil {
		return ResolvedPolicy{}, &ConfigurationError{DayType: dt, Reason: "day type config is missing"}
	}
	if !dc.Enabled {
		return ResolvedPolicy{
			DayType:        dt,
			Source:         dt,
			Method:         MethodPerHour,
			RateMultiplier: one,
		}, nil
	}
	if err := dc.validate(dt); err != nil {
		return ResolvedPolicy{}, err
	}

	p := ResolvedPolicy{
		DayType:        dt,
		Source:         dt,
		Enabled:        true,
		RateMultiplier: dc.RateMultiplier,
	}
	switch dc.BillingMethod {
	case MinimumBilling:
		p.Method = MethodMinimumBilling
		p.MinHours = *dc.MinHours
	default:
		p.Method = MethodPerHour
	}
	return p, nil
}
