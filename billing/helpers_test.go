package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// 2025-03-10 is a Monday.
const (
	monday   = "2025-03-10"
	tuesday  = "2025-03-11"
	saturday = "2025-03-15"
	sunday   = "2025-03-16"
)

func hoursPtr(h float64) *float64 { return &h }

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := dec(f)
	return &d
}

func entry(id, date, subject string, role billing.Role, total float64) billing.RawEntry {
	return billing.RawEntry{
		ID:         id,
		Date:       date,
		SubjectKey: subject,
		AssetID:    subject,
		AuthorRole: role,
		TotalHours: hoursPtr(total),
	}
}

func effective(e billing.RawEntry) billing.EffectiveEntry {
	return billing.EffectiveEntry{Entry: e}
}

func minimumConfig(minHours, multiplier float64) *billing.DayTypeConfig {
	return &billing.DayTypeConfig{
		Enabled:        true,
		BillingMethod:  billing.MinimumBilling,
		MinHours:       decPtr(minHours),
		RateMultiplier: dec(multiplier),
	}
}

func assertHours(t *testing.T, want float64, got generic.Amount) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got.Value), "expected %v hours, got %v", want, got.Value)
}
