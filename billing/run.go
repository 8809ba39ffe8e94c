package billing

import (
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// RUN - The whole pipeline over one tenant's records for one period
// =============================================================================

// Options tune a calculation run. The zero value is valid: no cost, no
// holiday calendar, one ungrouped total.
type Options struct {
	// Rate is the per-hour rate used for cost. Nil skips cost.
	Rate *decimal.Decimal

	// Holidays marks additional dates as public holidays.
	Holidays generic.HolidayCalendar

	// GroupBy picks the reporting dimension of Calculation.Totals.
	GroupBy KeyFunc
}

// Calculation is the outcome of a run.
type Calculation struct {
	Effective []EffectiveEntry
	Results   []Result // one per effective entry, same order
	Totals    map[string]*Totals
}

// Total returns the grand total across all groups.
func (c *Calculation) Total() *Totals {
	total := NewTotals(UngroupedKey)
	for _, r := range c.Results {
		total.Add(r)
	}
	return total
}

// Run normalizes, classifies, resolves, calculates and aggregates. The
// config is validated up front; any error fails the whole run.
func Run(raw []RawEntry, cfg BillingConfig, opts Options) (*Calculation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Rate != nil && opts.Rate.IsNegative() {
		return nil, &ConfigurationError{Field: "rate", Reason: "must not be negative"}
	}

	effective, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(effective))
	for _, entry := range effective {
		class, err := ClassifyWithCalendar(entry, opts.Holidays)
		if err != nil {
			return nil, err
		}
		policy, err := ResolvePolicy(class, cfg)
		if err != nil {
			return nil, err
		}
		result, err := Calculate(entry, policy, opts.Rate)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return &Calculation{
		Effective: effective,
		Results:   results,
		Totals:    Aggregate(results, opts.GroupBy),
	}, nil
}
