/*
Package generic provides the domain-agnostic primitives the billing engine is
built on.

PURPOSE:
  Billing is money. Every hour figure and every cost figure flows through the
  types in this package so that arithmetic is exact and rounding happens in
  exactly one place: when totals are read out for display.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 7.5 hours, 1250.00 currency)
  - Display precision: hours read out at 1 decimal, currency at 2

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. No hidden rounding: Amount arithmetic never rounds
  3. Floats only at the edges: HoursFromFloat guards NaN/Inf inputs

USAGE:
  worked := generic.NewAmount(7.5, generic.UnitHours)
  billed := worked.Mul(decimal.NewFromFloat(1.5))
  fmt.Println(billed.Display()) // 11.3

SEE ALSO:
  - time.go: Calendar days and clock times
  - period.go: Reporting date ranges
  - errors.go: Sentinel errors
*/
package generic

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours    Unit = "hours"
	UnitCurrency Unit = "currency" // the engine is agnostic to which currency
)

// DisplayPlaces is the number of decimal places a unit is read out with.
func (u Unit) DisplayPlaces() int32 {
	if u == UnitCurrency {
		return 2
	}
	return 1
}

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func Hours(value float64) Amount    { return NewAmount(value, UnitHours) }
func ZeroHours() Amount             { return Amount{Value: decimal.Zero, Unit: UnitHours} }
func ZeroCurrency() Amount          { return Amount{Value: decimal.Zero, Unit: UnitCurrency} }

// HoursFromFloat converts an externally supplied float to hours.
// NaN and infinities cannot be represented and are rejected.
func HoursFromFloat(value float64) (Amount, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Amount{}, ErrNotANumber
	}
	return Hours(value), nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

func (a Amount) Max(b Amount) Amount {
	if a.LessThan(b) {
		return b
	}
	return a
}

// In converts the amount to another unit by multiplying with a per-unit rate,
// e.g. hours * rate = currency.
func (a Amount) In(unit Unit, rate decimal.Decimal) Amount {
	return Amount{Value: a.Value.Mul(rate), Unit: unit}
}

// Rounded returns the amount rounded half away from zero to its display precision.
func (a Amount) Rounded() Amount {
	return Amount{Value: a.Value.Round(a.Unit.DisplayPlaces()), Unit: a.Unit}
}

// Display formats the amount at its display precision.
func (a Amount) Display() string {
	return a.Value.StringFixed(a.Unit.DisplayPlaces())
}
