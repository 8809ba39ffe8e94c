/*
presets.go - Ready-made billing configurations

PURPOSE:
  Starting points for tenants and tests. StandardConfig bills every day
  strictly per hour; PlantHireConfig is the typical plant-hire contract with
  weekend and holiday premiums, minimum billing and rain-day cover.

CUSTOMIZATION:
  Presets return fresh values; change fields freely:

    cfg := billing.PlantHireConfig()
    cfg.Breakdown.Enabled = true

SEE ALSO:
  - factory/presets.go: The same presets as JSON documents
*/
package billing

import "github.com/shopspring/decimal"

// StandardConfig bills every day type per hour at 1.0, with rain-day and
// breakdown billing switched off.
func StandardConfig() BillingConfig {
	perHour := func() *DayTypeConfig {
		return &DayTypeConfig{Enabled: true, BillingMethod: PerHour, RateMultiplier: one}
	}
	return BillingConfig{
		Weekday:       perHour(),
		Saturday:      perHour(),
		Sunday:        perHour(),
		PublicHoliday: perHour(),
	}
}

// PlantHireConfig is a typical hire contract: weekdays per hour, weekends and
// public holidays with an 8 hour minimum at 1.5x / 2.0x / 2.0x, rain days with
// a 4.5 hour minimum below a 1 hour threshold, and breakdowns unbilled.
func PlantHireConfig() BillingConfig {
	minimum := func(minHours, multiplier float64) *DayTypeConfig {
		min := decimal.NewFromFloat(minHours)
		return &DayTypeConfig{
			Enabled:        true,
			BillingMethod:  MinimumBilling,
			MinHours:       &min,
			RateMultiplier: decimal.NewFromFloat(multiplier),
		}
	}
	return BillingConfig{
		Weekday:       &DayTypeConfig{Enabled: true, BillingMethod: PerHour, RateMultiplier: one},
		Saturday:      minimum(8, 1.5),
		Sunday:        minimum(8, 2.0),
		PublicHoliday: minimum(8, 2.0),
		RainDays: RainDayConfig{
			Enabled:        true,
			MinHours:       decimal.NewFromFloat(4.5),
			ThresholdHours: decimal.NewFromInt(1),
		},
	}
}
