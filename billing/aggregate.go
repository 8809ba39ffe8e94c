package billing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// AGGREGATOR - Totals per day-type bucket
// =============================================================================

// Bucket accumulates one day type.
type Bucket struct {
	Entries       int
	ActualHours   generic.Amount
	BillableHours generic.Amount
	Cost          generic.Amount
}

func newBucket() *Bucket {
	return &Bucket{
		ActualHours:   generic.ZeroHours(),
		BillableHours: generic.ZeroHours(),
		Cost:          generic.ZeroCurrency(),
	}
}

// Totals is the fold of Results under one grouping key. Accumulation is
// exact decimal addition, so the fold is independent of input order.
type Totals struct {
	Key     string
	Buckets map[DayType]*Bucket

	Entries         int
	ExcludedEntries int // reference-only results seen but not summed

	ActualHours   generic.Amount
	BillableHours generic.Amount
	Cost          generic.Amount
	HasCost       bool
}

func NewTotals(key string) *Totals {
	t := &Totals{
		Key:           key,
		Buckets:       make(map[DayType]*Bucket, len(AllDayTypes())),
		ActualHours:   generic.ZeroHours(),
		BillableHours: generic.ZeroHours(),
		Cost:          generic.ZeroCurrency(),
	}
	for _, dt := range AllDayTypes() {
		t.Buckets[dt] = newBucket()
	}
	return t
}

// Add folds one result into the totals.
func (t *Totals) Add(r Result) {
	if r.ReferenceOnly {
		t.ExcludedEntries++
		return
	}
	b := t.bucket(r.DayType)
	b.Entries++
	b.ActualHours = b.ActualHours.Add(r.ActualHours)
	b.BillableHours = b.BillableHours.Add(r.BillableHours)

	t.Entries++
	t.ActualHours = t.ActualHours.Add(r.ActualHours)
	t.BillableHours = t.BillableHours.Add(r.BillableHours)
	if r.Cost != nil {
		b.Cost = b.Cost.Add(*r.Cost)
		t.Cost = t.Cost.Add(*r.Cost)
		t.HasCost = true
	}
}

// Merge folds another Totals into this one, e.g. per-asset into fleet.
func (t *Totals) Merge(o *Totals) {
	if o == nil {
		return
	}
	for dt, ob := range o.Buckets {
		b := t.bucket(dt)
		b.Entries += ob.Entries
		b.ActualHours = b.ActualHours.Add(ob.ActualHours)
		b.BillableHours = b.BillableHours.Add(ob.BillableHours)
		b.Cost = b.Cost.Add(ob.Cost)
	}
	t.Entries += o.Entries
	t.ExcludedEntries += o.ExcludedEntries
	t.ActualHours = t.ActualHours.Add(o.ActualHours)
	t.BillableHours = t.BillableHours.Add(o.BillableHours)
	t.Cost = t.Cost.Add(o.Cost)
	t.HasCost = t.HasCost || o.HasCost
}

// Bucket returns a copy of one day type's accumulator.
func (t *Totals) Bucket(dt DayType) Bucket {
	if b, ok := t.Buckets[dt]; ok {
		return *b
	}
	return *newBucket()
}

func (t *Totals) bucket(dt DayType) *Bucket {
	b, ok := t.Buckets[dt]
	if !ok {
		b = newBucket()
		t.Buckets[dt] = b
	}
	return b
}

// =============================================================================
// READ-OUT - The only place rounding happens
// =============================================================================

// RoundedBucket is a bucket at display precision.
type RoundedBucket struct {
	DayType       DayType
	Entries       int
	ActualHours   decimal.Decimal
	BillableHours decimal.Decimal
	Cost          decimal.Decimal
}

// RoundedTotals is a Totals at display precision: hours to one decimal,
// currency to two.
type RoundedTotals struct {
	Key             string
	Buckets         []RoundedBucket // in AllDayTypes order
	Entries         int
	ExcludedEntries int
	ActualHours     decimal.Decimal
	BillableHours   decimal.Decimal
	Cost            *decimal.Decimal
}

func (t *Totals) Rounded() RoundedTotals {
	out := RoundedTotals{
		Key:             t.Key,
		Entries:         t.Entries,
		ExcludedEntries: t.ExcludedEntries,
		ActualHours:     t.ActualHours.Rounded().Value,
		BillableHours:   t.BillableHours.Rounded().Value,
	}
	for _, dt := range AllDayTypes() {
		b := t.Bucket(dt)
		out.Buckets = append(out.Buckets, RoundedBucket{
			DayType:       dt,
			Entries:       b.Entries,
			ActualHours:   b.ActualHours.Rounded().Value,
			BillableHours: b.BillableHours.Rounded().Value,
			Cost:          b.Cost.Rounded().Value,
		})
	}
	if t.HasCost {
		cost := t.Cost.Rounded().Value
		out.Cost = &cost
	}
	return out
}

// =============================================================================
// GROUPING
// =============================================================================

// KeyFunc maps a result to its reporting group.
type KeyFunc func(Result) string

// UngroupedKey is the key of the grand total.
const UngroupedKey = "total"

func Ungrouped(Result) string { return UngroupedKey }

func ByAsset(r Result) string {
	if r.Entry.Entry.AssetID != "" {
		return r.Entry.Entry.AssetID
	}
	return r.Key.Subject
}

func ByOperator(r Result) string {
	if r.Entry.Entry.Operator != "" {
		return r.Entry.Entry.Operator
	}
	return r.Key.Subject
}

func ByDay(r Result) string { return r.Key.Date }

func ByISOWeek(r Result) string { return dayLabel(r, generic.TimePoint.ISOWeekLabel) }

func ByMonth(r Result) string { return dayLabel(r, generic.TimePoint.MonthLabel) }

func dayLabel(r Result, label func(generic.TimePoint) string) string {
	day, err := generic.ParseDay(r.Key.Date)
	if err != nil {
		return r.Key.Date
	}
	return label(day)
}

// KeyFuncFor resolves a grouping name as used by the API and CLI.
func KeyFuncFor(name string) (KeyFunc, error) {
	switch name {
	case "", "none", "total":
		return Ungrouped, nil
	case "asset":
		return ByAsset, nil
	case "operator":
		return ByOperator, nil
	case "day":
		return ByDay, nil
	case "week":
		return ByISOWeek, nil
	case "month":
		return ByMonth, nil
	}
	return nil, &ConfigurationError{Field: "group_by", Reason: "unknown grouping " + name}
}

// Aggregate folds results into one Totals per group key.
func Aggregate(results []Result, key KeyFunc) map[string]*Totals {
	if key == nil {
		key = Ungrouped
	}
	out := make(map[string]*Totals)
	for _, r := range results {
		k := key(r)
		t, ok := out[k]
		if !ok {
			t = NewTotals(k)
			out[k] = t
		}
		t.Add(r)
	}
	return out
}

// SortedKeys returns the group keys of an aggregation in ascending order.
func SortedKeys(totals map[string]*Totals) []string {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
