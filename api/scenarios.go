/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with timesheets,
	a billing config and holidays demonstrating one billing rule each. After
	loading, the scenario's period can be passed to GET /api/reports.

AVAILABLE SCENARIOS:

	weekday-per-hour:    A - 9h on a weekday billed as worked
	saturday-minimum:    B - 3h on a Saturday billed as 8h at 1.5x
	rain-threshold:      C - rain days under and over the threshold
	breakdown:           D - breakdown wins over rain, bills zero
	admin-adjustment:    E - admin correction replaces the operator's hours
	fleet-month:         Mixed fleet over a month with a public holiday

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Store the scenario's billing config for the tenant
 3. Store its holidays
 4. Submit its timesheets in order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "saturday-minimum"}

ADDING NEW SCENARIOS:
 1. Add an entry to the 'scenarios' slice
 2. Give it a config document, entries and optional holidays

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report handlers
  - factory/presets.go: Config documents
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/factory"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	config   string
	holidays []generic.Holiday
	entries  []billing.RawEntry
}

func hrs(h float64) *float64 { return &h }

// rainDayConfig is the standard preset with rain-day cover switched on.
const rainDayConfig = `{
  "weekday":        {"enabled": true, "billing_method": "per_hour"},
  "saturday":       {"enabled": true, "billing_method": "per_hour"},
  "sunday":         {"enabled": true, "billing_method": "per_hour"},
  "public_holiday": {"enabled": true, "billing_method": "per_hour"},
  "rain_days":      {"enabled": true, "min_hours": 4.5, "threshold_hours": 1}
}`

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "weekday-per-hour",
			Name:        "Weekday Per Hour",
			Description: "An excavator works 07:00-16:00 on a Monday; billed 9h as worked",
			From:        "2025-03-10", To: "2025-03-10",
		},
		config: factory.StandardConfigJSON,
		entries: []billing.RawEntry{
			{Date: "2025-03-10", AssetID: "EX-01", Operator: "thabo", AuthorRole: billing.RoleOperator, StartTime: "07:00", EndTime: "16:00"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "saturday-minimum",
			Name:        "Saturday Minimum",
			Description: "3h on a Saturday under an 8h minimum at 1.5x; billed 12h",
			From:        "2025-03-15", To: "2025-03-15",
		},
		config: factory.PlantHireConfigJSON,
		entries: []billing.RawEntry{
			{Date: "2025-03-15", AssetID: "EX-01", Operator: "thabo", AuthorRole: billing.RoleOperator, TotalHours: hrs(3)},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rain-threshold",
			Name:        "Rain Day Threshold",
			Description: "Rain days of 0.5h and 2h against a 1h threshold and 4.5h minimum; billed 4.5h and 2h",
			From:        "2025-03-10", To: "2025-03-11",
		},
		config: rainDayConfig,
		entries: []billing.RawEntry{
			{Date: "2025-03-10", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(0.5), IsRainDay: true},
			{Date: "2025-03-11", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(2), IsRainDay: true},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "breakdown",
			Name:        "Breakdown",
			Description: "A breakdown reported on a rain day is a breakdown; breakdown billing is off, billed 0h",
			From:        "2025-03-12", To: "2025-03-12",
		},
		config: factory.PlantHireConfigJSON,
		entries: []billing.RawEntry{
			{Date: "2025-03-12", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(6), IsBreakdown: true, IsRainDay: true},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "admin-adjustment",
			Name:        "Admin Adjustment",
			Description: "An operator logs 10h, an admin adjusts the day to 8h; only the admin record counts",
			From:        "2025-03-10", To: "2025-03-10",
		},
		config: factory.StandardConfigJSON,
		entries: []billing.RawEntry{
			{ID: "sipho-op", Date: "2025-03-10", Operator: "sipho", AuthorRole: billing.RoleOperator, TotalHours: hrs(10)},
			{ID: "sipho-adm", Date: "2025-03-10", Operator: "sipho", AuthorRole: billing.RoleAdmin, AuthorName: "office", TotalHours: hrs(8), AdjustedBy: "office", HasOriginalEntry: true},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fleet-month",
			Name:        "Fleet Month",
			Description: "Three assets over March with a weekend, a rain day, a breakdown, a subcontractor record and Human Rights Day",
			From:        "2025-03-01", To: "2025-03-31",
		},
		config: factory.PlantHireConfigJSON,
		holidays: []generic.Holiday{
			{Date: generic.MustParseDay("2025-03-21"), Name: "Human Rights Day"},
		},
		entries: []billing.RawEntry{
			{Date: "2025-03-10", AssetID: "EX-01", AuthorRole: billing.RoleOperator, StartTime: "06:30", EndTime: "16:00"},
			{Date: "2025-03-10", AssetID: "EX-01", AuthorRole: billing.RolePlantManager, TotalHours: hrs(9), IsAdjustment: true},
			{Date: "2025-03-11", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(0.5), IsRainDay: true},
			{Date: "2025-03-15", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(4)},
			{Date: "2025-03-21", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hrs(5)},
			{Date: "2025-03-12", AssetID: "DZ-07", AuthorRole: billing.RoleOperator, TotalHours: hrs(7), IsBreakdown: true},
			{Date: "2025-03-13", AssetID: "DZ-07", AuthorRole: billing.RoleOperator, StartTime: "22:00", EndTime: "06:00"},
			{Date: "2025-03-16", AssetID: "TLB-3", AuthorRole: billing.RoleSubcontractor, AuthorName: "hire-co", TotalHours: hrs(10)},
			{Date: "2025-03-17", AssetID: "TLB-3", AuthorRole: billing.RoleOperator, TotalHours: hrs(8), IsStrikeDay: true},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": dtos,
		"current":   h.scenario(),
	})
}

// LoadScenario resets the store and loads a scenario into the tenant.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sc, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	tenant := h.tenant(r)
	if err := h.loadScenario(r.Context(), tenant, sc); err != nil {
		writeFailure(w, "Failed to load scenario", err)
		return
	}
	h.setScenario(sc.ID)

	zap.L().Info("scenario loaded", zap.String("scenario", sc.ID), zap.String("tenant", tenant))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scenario": sc.ScenarioDTO,
		"entries":  len(sc.entries),
	})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeFailure(w, "Failed to reset database", err)
		return
	}
	h.setScenario("")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, tenant string, sc scenario) error {
	if err := h.Store.Reset(ctx); err != nil {
		return eris.Wrap(err, "reset store")
	}

	if _, err := h.Factory.ParseConfig(sc.config); err != nil {
		return eris.Wrapf(err, "scenario %s config", sc.ID)
	}
	if _, err := h.Store.SaveConfig(ctx, store.ConfigRecord{TenantID: tenant, ConfigJSON: sc.config}); err != nil {
		return eris.Wrap(err, "save config")
	}

	for _, hol := range sc.holidays {
		hol.TenantID = tenant
		if _, err := h.Store.SaveHoliday(ctx, hol); err != nil {
			return eris.Wrapf(err, "save holiday %s", hol.Date)
		}
	}

	for _, e := range sc.entries {
		if _, err := h.Store.SaveEntry(ctx, tenant, e); err != nil {
			return eris.Wrapf(err, "save entry %s", e.Key())
		}
	}
	return nil
}
