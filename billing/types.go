/*
Package billing turns raw timesheet submissions into billable hours and cost.

PURPOSE:
  Several people may submit or amend a timesheet record for the same asset
  or operator on the same day. This package picks exactly one authoritative
  record per (date, subject), classifies the day, resolves the tenant's
  billing policy for that day type and computes billable hours and cost.

PIPELINE:
  RawEntry[] --Normalize--> EffectiveEntry[] --Classify--> Classification
             --ResolvePolicy--> ResolvedPolicy --Calculate--> Result
             --Aggregate--> Totals

  Run() executes the whole pipeline. Every stage is a pure function over
  in-memory values: no I/O, no clocks, no shared state. A run either
  resolves every entry or fails as a whole.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: Who authored a submission (operator, plant manager, admin, subcontractor)
  - RawEntry: One immutable submission
  - EntryKey: The (date, subject) dedup key
  - EffectiveEntry: The single submission selected for a key
  - DayType: The closed set of billing day categories

SEE ALSO:
  - normalize.go: Author precedence
  - classify.go: Day-type priority
  - policy.go: Billing configuration and policy resolution
  - calculate.go: Actual and billable hours
  - aggregate.go: Totals per day-type bucket
*/
package billing

import (
	"time"

	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// ROLE - Author of a submission
// =============================================================================

type Role string

const (
	RoleOperator      Role = "operator"
	RolePlantManager  Role = "plant_manager"
	RoleAdmin         Role = "admin"
	RoleSubcontractor Role = "subcontractor"
)

// Valid reports whether the role is one of the known roles. An empty role
// is valid and treated as an operator submission (legacy records).
func (r Role) Valid() bool {
	switch r {
	case "", RoleOperator, RolePlantManager, RoleAdmin, RoleSubcontractor:
		return true
	}
	return false
}

// rank orders roles for precedence. Subcontractors rank lowest and are only
// ever selected when nobody else submitted for the key. Unknown roles rank
// below everything; Normalize rejects them before ranking.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RolePlantManager:
		return 2
	case RoleOperator, "":
		return 1
	case RoleSubcontractor:
		return 0
	}
	return -1
}

// =============================================================================
// RAW ENTRY - One submission, never mutated
// =============================================================================

// RawEntry is one submitted timesheet record. A correction is a new RawEntry
// for the same (date, subject), never an edit of an earlier one.
type RawEntry struct {
	ID         string `json:"id,omitempty"`
	Date       string `json:"date"`
	SubjectKey string `json:"subject_key,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
	Operator   string `json:"operator,omitempty"`

	AuthorRole Role   `json:"author_role,omitempty"`
	AuthorName string `json:"author_name,omitempty"`

	// Either a time-in/time-out pair or a precomputed total.
	StartTime  string   `json:"start_time,omitempty"`
	EndTime    string   `json:"end_time,omitempty"`
	TotalHours *float64 `json:"total_hours,omitempty"`

	// Condition flags
	IsBreakdown        bool `json:"is_breakdown,omitempty"`
	IsRainDay          bool `json:"is_rain_day,omitempty"`
	IsInclementWeather bool `json:"is_inclement_weather,omitempty"`
	IsStrikeDay        bool `json:"is_strike_day,omitempty"` // informational only
	IsPublicHoliday    bool `json:"is_public_holiday,omitempty"`

	// Amendment markers
	IsAdjustment     bool   `json:"is_adjustment,omitempty"`
	HasOriginalEntry bool   `json:"has_original_entry,omitempty"`
	AdjustedBy       string `json:"adjusted_by,omitempty"`

	// Audit only, never used for billing
	Notes       string    `json:"notes,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Subject returns the dedup subject: the explicit subject key, else the
// asset, else the operator.
func (e RawEntry) Subject() string {
	switch {
	case e.SubjectKey != "":
		return e.SubjectKey
	case e.AssetID != "":
		return e.AssetID
	default:
		return e.Operator
	}
}

// Key is the (date, subject) the submission is grouped under. The date is
// the canonical YYYY-MM-DD form, so "2025-03-10T00:00:00Z" and "2025-03-10"
// share a key; an unparseable date is kept as submitted.
func (e RawEntry) Key() EntryKey {
	date := e.Date
	if day, err := generic.ParseDay(e.Date); err == nil {
		date = day.String()
	}
	return EntryKey{Date: date, Subject: e.Subject()}
}

// IsAmended reports whether the record is an edit of an earlier submission.
func (e RawEntry) IsAmended() bool {
	return e.HasOriginalEntry || e.IsAdjustment || e.AdjustedBy != ""
}

func (e RawEntry) IsSubcontractor() bool {
	return e.AuthorRole == RoleSubcontractor
}

// sameBillingContent reports whether two submissions would bill identically.
func (e RawEntry) sameBillingContent(o RawEntry) bool {
	if (e.TotalHours == nil) != (o.TotalHours == nil) {
		return false
	}
	if e.TotalHours != nil && *e.TotalHours != *o.TotalHours {
		return false
	}
	return e.StartTime == o.StartTime &&
		e.EndTime == o.EndTime &&
		e.IsBreakdown == o.IsBreakdown &&
		e.IsRainDay == o.IsRainDay &&
		e.IsInclementWeather == o.IsInclementWeather &&
		e.IsPublicHoliday == o.IsPublicHoliday &&
		e.IsStrikeDay == o.IsStrikeDay
}

// EntryKey is the composite (date, subject) grouping key.
type EntryKey struct {
	Date    string
	Subject string
}

func (k EntryKey) String() string { return k.Date + "/" + k.Subject }

// =============================================================================
// EFFECTIVE ENTRY - The one submission that counts
// =============================================================================

// EffectiveEntry is the submission selected to represent a (date, subject).
type EffectiveEntry struct {
	Entry RawEntry

	// Superseded holds the other eligible submissions for the key, kept for audit.
	Superseded []RawEntry

	// References holds subcontractor submissions shown alongside the entry.
	References []RawEntry

	// ReferenceOnly is set when only subcontractors submitted for the key.
	// The entry is calculated for display but never counted in totals.
	ReferenceOnly bool
}

func (e EffectiveEntry) Key() EntryKey { return e.Entry.Key() }

// =============================================================================
// DAY TYPE - Closed set of billing categories
// =============================================================================

type DayType string

const (
	DayWeekday       DayType = "weekday"
	DaySaturday      DayType = "saturday"
	DaySunday        DayType = "sunday"
	DayPublicHoliday DayType = "public_holiday"
	DayRain          DayType = "rain_day"
	DayBreakdown     DayType = "breakdown"
)

// AllDayTypes lists every day type in reporting order.
func AllDayTypes() []DayType {
	return []DayType{DayWeekday, DaySaturday, DaySunday, DayPublicHoliday, DayRain, DayBreakdown}
}

// OrdinaryDayTypes lists the calendar day types that carry a DayTypeConfig.
func OrdinaryDayTypes() []DayType {
	return []DayType{DayWeekday, DaySaturday, DaySunday, DayPublicHoliday}
}

func (d DayType) IsOrdinary() bool {
	switch d {
	case DayWeekday, DaySaturday, DaySunday, DayPublicHoliday:
		return true
	}
	return false
}

func (d DayType) Valid() bool {
	return d.IsOrdinary() || d == DayRain || d == DayBreakdown
}

// Label is the column heading used on reports.
func (d DayType) Label() string {
	switch d {
	case DayWeekday:
		return "Normal"
	case DaySaturday:
		return "Saturday"
	case DaySunday:
		return "Sunday"
	case DayPublicHoliday:
		return "Public Holiday"
	case DayRain:
		return "Rain Day"
	case DayBreakdown:
		return "Breakdown"
	}
	return string(d)
}
