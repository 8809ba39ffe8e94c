/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's exact decimal model from the external API contract: figures
  leave the API rounded to display precision (hours to one decimal place,
  currency to two) and formatted as strings so no float ever touches them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculation:
    CalculationRequest, CalculationResponse, EntryResultDTO

  Totals:
    TotalsDTO, BucketDTO

  Store-backed:
    EntryDTO, ConfigDTO, HolidayDTO, CreateHolidayRequest

  Reports:
    ReportDTO, AssetReportDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON type
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/factory"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/report"
	"github.com/warp/fleet-billing/store"
)

// =============================================================================
// CALCULATION
// =============================================================================

// CalculationRequest is an ad-hoc run over records supplied in the body.
// Config is either a document string (YAML or JSON) or a JSON object; when
// omitted, Preset names one of factory.Presets.
type CalculationRequest struct {
	Entries  []billing.RawEntry     `json:"entries"`
	Config   json.RawMessage        `json:"config,omitempty"`
	Preset   string                 `json:"preset,omitempty"`
	Rate     *float64               `json:"rate,omitempty"`
	GroupBy  string                 `json:"group_by,omitempty"`
	Holidays []CreateHolidayRequest `json:"holidays,omitempty"`
}

// CalculationResponse is the outcome of a run.
type CalculationResponse struct {
	Results []EntryResultDTO `json:"results"`
	Groups  []TotalsDTO      `json:"groups"`
	Total   TotalsDTO        `json:"total"`
}

// EntryResultDTO is one effective entry and how it was billed.
type EntryResultDTO struct {
	Date           string   `json:"date"`
	Subject        string   `json:"subject"`
	EntryID        string   `json:"entry_id"`
	AuthorRole     string   `json:"author_role,omitempty"`
	DayType        string   `json:"day_type"`
	DayTypeLabel   string   `json:"day_type_label"`
	Method         string   `json:"method"`
	Enabled        bool     `json:"enabled"`
	ActualHours    string   `json:"actual_hours"`
	BillableHours  string   `json:"billable_hours"`
	RateMultiplier string   `json:"rate_multiplier"`
	Cost           *string  `json:"cost,omitempty"`
	ReferenceOnly  bool     `json:"reference_only,omitempty"`
	StrikeDay      bool     `json:"strike_day,omitempty"`
	SupersededIDs  []string `json:"superseded_ids,omitempty"`
	ReferenceIDs   []string `json:"reference_ids,omitempty"`
}

// =============================================================================
// TOTALS
// =============================================================================

// BucketDTO is one day-type column of a totals row.
type BucketDTO struct {
	DayType       string `json:"day_type"`
	Label         string `json:"label"`
	Entries       int    `json:"entries"`
	ActualHours   string `json:"actual_hours"`
	BillableHours string `json:"billable_hours"`
	Cost          string `json:"cost,omitempty"`
}

// TotalsDTO is one grouping row.
type TotalsDTO struct {
	Key             string      `json:"key"`
	Entries         int         `json:"entries"`
	ExcludedEntries int         `json:"excluded_entries"`
	ActualHours     string      `json:"actual_hours"`
	BillableHours   string      `json:"billable_hours"`
	Cost            *string     `json:"cost,omitempty"`
	Buckets         []BucketDTO `json:"buckets"`
}

// =============================================================================
// STORE-BACKED RESOURCES
// =============================================================================

// EntryDTO is a stored submission.
type EntryDTO struct {
	billing.RawEntry
	Subject string `json:"subject"`
}

// ConfigDTO is a tenant's stored billing config.
type ConfigDTO struct {
	TenantID  string             `json:"tenant_id"`
	Version   int                `json:"version"`
	UpdatedAt string             `json:"updated_at,omitempty"`
	Config    factory.ConfigJSON `json:"config"`
}

// HolidayDTO is a public holiday.
type HolidayDTO struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Name   string `json:"name"`
	Global bool   `json:"global"`
}

// CreateHolidayRequest adds a holiday. Global holidays apply to every tenant.
type CreateHolidayRequest struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Global bool   `json:"global,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportDTO is a fleet report.
type ReportDTO struct {
	TenantID      string           `json:"tenant_id"`
	From          string           `json:"from"`
	To            string           `json:"to"`
	ConfigVersion int              `json:"config_version"`
	Total         TotalsDTO        `json:"total"`
	Groups        []TotalsDTO      `json:"groups"`
	Assets        []AssetReportDTO `json:"assets"`
	FailedAssets  int              `json:"failed_assets"`
}

// AssetReportDTO is one asset's line in a fleet report.
type AssetReportDTO struct {
	AssetID string     `json:"asset_id"`
	Status  string     `json:"status"` // "ok" or "failed"
	Error   string     `json:"error,omitempty"`
	Total   *TotalsDTO `json:"total,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTotalsDTO(t *billing.Totals) TotalsDTO {
	r := t.Rounded()
	dto := TotalsDTO{
		Key:             r.Key,
		Entries:         r.Entries,
		ExcludedEntries: r.ExcludedEntries,
		ActualHours:     r.ActualHours.StringFixed(generic.UnitHours.DisplayPlaces()),
		BillableHours:   r.BillableHours.StringFixed(generic.UnitHours.DisplayPlaces()),
	}
	if r.Cost != nil {
		cost := r.Cost.StringFixed(generic.UnitCurrency.DisplayPlaces())
		dto.Cost = &cost
	}
	for _, b := range r.Buckets {
		bucket := BucketDTO{
			DayType:       string(b.DayType),
			Label:         b.DayType.Label(),
			Entries:       b.Entries,
			ActualHours:   b.ActualHours.StringFixed(generic.UnitHours.DisplayPlaces()),
			BillableHours: b.BillableHours.StringFixed(generic.UnitHours.DisplayPlaces()),
		}
		if t.HasCost {
			bucket.Cost = b.Cost.StringFixed(generic.UnitCurrency.DisplayPlaces())
		}
		dto.Buckets = append(dto.Buckets, bucket)
	}
	return dto
}

func toGroupDTOs(totals map[string]*billing.Totals) []TotalsDTO {
	out := make([]TotalsDTO, 0, len(totals))
	for _, k := range billing.SortedKeys(totals) {
		out = append(out, toTotalsDTO(totals[k]))
	}
	return out
}

func toEntryResultDTO(r billing.Result) EntryResultDTO {
	dto := EntryResultDTO{
		Date:           r.Key.Date,
		Subject:        r.Key.Subject,
		EntryID:        r.Entry.Entry.ID,
		AuthorRole:     string(r.Entry.Entry.AuthorRole),
		DayType:        string(r.DayType),
		DayTypeLabel:   r.DayType.Label(),
		Method:         string(r.Policy.Method),
		Enabled:        r.Policy.Enabled,
		ActualHours:    r.ActualHours.Display(),
		BillableHours:  r.BillableHours.Display(),
		RateMultiplier: r.RateMultiplier.String(),
		ReferenceOnly:  r.ReferenceOnly,
		StrikeDay:      r.Entry.Entry.IsStrikeDay,
	}
	if r.Cost != nil {
		cost := r.Cost.Display()
		dto.Cost = &cost
	}
	for _, s := range r.Entry.Superseded {
		dto.SupersededIDs = append(dto.SupersededIDs, s.ID)
	}
	for _, s := range r.Entry.References {
		dto.ReferenceIDs = append(dto.ReferenceIDs, s.ID)
	}
	return dto
}

// NewCalculationResponse renders a run for API and CLI output.
func NewCalculationResponse(calc *billing.Calculation) CalculationResponse {
	resp := CalculationResponse{
		Results: make([]EntryResultDTO, 0, len(calc.Results)),
		Groups:  toGroupDTOs(calc.Totals),
		Total:   toTotalsDTO(calc.Total()),
	}
	for _, r := range calc.Results {
		resp.Results = append(resp.Results, toEntryResultDTO(r))
	}
	return resp
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Date: h.Date.String(), Name: h.Name, Global: h.TenantID == ""}
}

func toConfigDTO(rec store.ConfigRecord, cj factory.ConfigJSON) ConfigDTO {
	dto := ConfigDTO{TenantID: rec.TenantID, Version: rec.Version, Config: cj}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toReportDTO(r *report.FleetReport) ReportDTO {
	dto := ReportDTO{
		TenantID:      r.TenantID,
		From:          r.Period.Start.String(),
		To:            r.Period.End.String(),
		ConfigVersion: r.ConfigVersion,
		Total:         toTotalsDTO(r.Total),
		Groups:        toGroupDTOs(r.Groups),
		Assets:        make([]AssetReportDTO, 0, len(r.Assets)),
		FailedAssets:  len(r.FailedAssets()),
	}
	for _, a := range r.Assets {
		line := AssetReportDTO{AssetID: a.AssetID, Status: "ok"}
		if a.Failed() {
			line.Status = "failed"
			line.Error = a.Err.Error()
		} else {
			total := toTotalsDTO(a.Calculation.Total())
			line.Total = &total
		}
		dto.Assets = append(dto.Assets, line)
	}
	return dto
}
