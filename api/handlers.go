/*
handlers.go - HTTP API handlers for the fleet billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine, the store and the report
  builder.

ENDPOINTS:
  Calculation:
    POST   /api/calculations           Ad-hoc run over records in the body

  Entries:
    GET    /api/entries                List submissions (from, to, subject)
    POST   /api/entries                Submit a timesheet record

  Config:
    GET    /api/config                 Tenant billing config
    PUT    /api/config                 Replace it (YAML or JSON body)

  Holidays:
    GET    /api/holidays               List holidays (from, to)
    POST   /api/holidays               Add a holiday

  Reports:
    GET    /api/reports                Fleet report (from, to, rate, group_by)
    GET    /api/assets/{id}/report     One asset (from, to, rate, group_by)

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Clear all data

TENANCY:
  The tenant is taken from the X-Tenant-ID header and falls back to the
  configured default tenant.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body or parameters, unparseable dates
  - 404: Resource not found
  - 409: Duplicate entry ID
  - 422: The engine rejected the records or the config
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/factory"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/report"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
)

// TenantHeader selects the tenant of a request.
const TenantHeader = "X-Tenant-ID"

// maxConfigBytes bounds PUT /api/config bodies.
const maxConfigBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options carries the service-level defaults the handlers fall back to.
type Options struct {
	TenantID            string
	Rate                float64 // 0 means reports carry no cost unless a rate is passed
	Preset              string  // config seeded for tenants without one
	MaxConcurrentAssets int
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   store.Store
	Factory *factory.ConfigFactory
	Reports *report.Builder

	defaultTenant string
	defaultRate   *decimal.Decimal
	defaultPreset string

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given store.
func NewHandler(s store.Store, opts Options) *Handler {
	h := &Handler{
		Store:         s,
		Factory:       factory.NewConfigFactory(),
		Reports:       report.NewBuilder(s, opts.MaxConcurrentAssets),
		defaultTenant: opts.TenantID,
		defaultPreset: opts.Preset,
	}
	if h.defaultTenant == "" {
		h.defaultTenant = "default"
	}
	if opts.Rate > 0 {
		rate := decimal.NewFromFloat(opts.Rate)
		h.defaultRate = &rate
	}
	return h
}

// EnsureConfig stores the default preset as the default tenant's config
// when the tenant has none yet.
func (h *Handler) EnsureConfig(ctx context.Context) error {
	if h.defaultPreset == "" {
		return nil
	}
	_, err := h.Store.GetConfig(ctx, h.defaultTenant)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return eris.Wrap(err, "load tenant config")
	}

	doc, ok := factory.Presets[h.defaultPreset]
	if !ok {
		return eris.Errorf("unknown billing preset %q", h.defaultPreset)
	}
	rec, err := h.Store.SaveConfig(ctx, store.ConfigRecord{TenantID: h.defaultTenant, ConfigJSON: doc})
	if err != nil {
		return eris.Wrap(err, "seed tenant config")
	}
	zap.L().Info("seeded billing config",
		zap.String("tenant", rec.TenantID),
		zap.String("preset", h.defaultPreset),
		zap.Int("version", rec.Version),
	)
	return nil
}

func (h *Handler) tenant(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TenantHeader)); t != "" {
		return t
	}
	return h.defaultTenant
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate runs the engine over the records in the body.
// POST /api/calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.requestConfig(req)
	if err != nil {
		writeFailure(w, "Invalid billing config", err)
		return
	}

	rate, err := rateFromFloat(req.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}

	groupBy, err := billing.KeyFuncFor(req.GroupBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group_by", err)
		return
	}

	holidays := make([]generic.Holiday, 0, len(req.Holidays))
	for _, hr := range req.Holidays {
		day, err := generic.ParseDay(hr.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid holiday date (use YYYY-MM-DD)", err)
			return
		}
		holidays = append(holidays, generic.Holiday{Date: day, Name: hr.Name})
	}

	calc, err := billing.Run(req.Entries, cfg, billing.Options{
		Rate:     rate,
		Holidays: generic.NewHolidaySet(holidays),
		GroupBy:  groupBy,
	})
	if err != nil {
		writeFailure(w, "Calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, NewCalculationResponse(calc))
}

// requestConfig resolves the config of an ad-hoc run: an inline document
// (string or object) wins over a preset name.
func (h *Handler) requestConfig(req CalculationRequest) (billing.BillingConfig, error) {
	raw := bytes.TrimSpace(req.Config)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		doc := string(raw)
		if raw[0] == '"' {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return billing.BillingConfig{}, &billing.ConfigurationError{Field: "document", Reason: err.Error()}
			}
		}
		return h.Factory.ParseConfig(doc)
	}

	if req.Preset == "" {
		return billing.BillingConfig{}, &billing.ConfigurationError{Field: "document", Reason: "config or preset is required"}
	}
	doc, ok := factory.Presets[req.Preset]
	if !ok {
		return billing.BillingConfig{}, &billing.ConfigurationError{Field: "preset", Reason: "unknown preset " + req.Preset}
	}
	return h.Factory.ParseConfig(doc)
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries returns the tenant's submissions in submission order.
// GET /api/entries?from=&to=&subject=
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EntryFilter{TenantID: h.tenant(r), Subject: q.Get("subject")}

	if q.Get("from") != "" || q.Get("to") != "" {
		period, err := generic.ParsePeriod(q.Get("from"), q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period (from and to are YYYY-MM-DD)", err)
			return
		}
		filter.Period = &period
	}

	entries, err := h.Store.ListEntries(r.Context(), filter)
	if err != nil {
		writeFailure(w, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = EntryDTO{RawEntry: e, Subject: e.Subject()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": dtos})
}

// SubmitEntry appends a timesheet record. Records are never edited: a
// correction is submitted as a new record for the same date and subject.
// POST /api/entries
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var e billing.RawEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if e.Subject() == "" {
		writeError(w, http.StatusBadRequest, "One of subject_key, asset_id or operator is required", nil)
		return
	}
	if e.AuthorRole != "" && !e.AuthorRole.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown author_role", nil)
		return
	}
	if _, err := generic.ParseDay(e.Date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if _, err := billing.ActualHours(e); err != nil {
		writeFailure(w, "Entry has no usable hours", err)
		return
	}

	saved, err := h.Store.SaveEntry(r.Context(), h.tenant(r), e)
	if err != nil {
		writeFailure(w, "Failed to save entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, EntryDTO{RawEntry: saved, Subject: saved.Subject()})
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetConfig returns the tenant's billing config.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetConfig(r.Context(), h.tenant(r))
	if err != nil {
		writeFailure(w, "Billing config not found", err)
		return
	}

	cfg, err := h.Factory.ParseConfig(rec.ConfigJSON)
	if err != nil {
		writeFailure(w, "Stored billing config is invalid", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigDTO(rec, h.Factory.ToJSON(cfg)))
}

// PutConfig replaces the tenant's billing config. The body is a YAML or JSON
// document; it is validated and stored in canonical JSON form.
// PUT /api/config
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	cfg, err := h.Factory.ParseConfig(string(body))
	if err != nil {
		writeFailure(w, "Invalid billing config", err)
		return
	}
	doc, err := h.Factory.Marshal(cfg)
	if err != nil {
		writeFailure(w, "Failed to encode billing config", err)
		return
	}

	rec, err := h.Store.SaveConfig(r.Context(), store.ConfigRecord{TenantID: h.tenant(r), ConfigJSON: doc})
	if err != nil {
		writeFailure(w, "Failed to save billing config", err)
		return
	}

	zap.L().Info("billing config updated", zap.String("tenant", rec.TenantID), zap.Int("version", rec.Version))
	writeJSON(w, http.StatusOK, toConfigDTO(rec, h.Factory.ToJSON(cfg)))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the tenant's and the global holidays.
// GET /api/holidays?from=&to=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var period *generic.Period
	if q.Get("from") != "" || q.Get("to") != "" {
		p, err := generic.ParsePeriod(q.Get("from"), q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period (from and to are YYYY-MM-DD)", err)
			return
		}
		period = &p
	}

	holidays, err := h.Store.ListHolidays(r.Context(), h.tenant(r), period)
	if err != nil {
		writeFailure(w, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a holiday for the tenant, or for everyone when global.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}

	day, err := generic.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{Date: day, Name: req.Name}
	if !req.Global {
		holiday.TenantID = h.tenant(r)
	}

	saved, err := h.Store.SaveHoliday(r.Context(), holiday)
	if err != nil {
		writeFailure(w, "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHolidayDTO(saved))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetFleetReport builds a report over every asset of the tenant.
// GET /api/reports?from=&to=&rate=&group_by=
func (h *Handler) GetFleetReport(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, "")
}

// GetAssetReport builds a report for one asset.
// GET /api/assets/{id}/report?from=&to=&rate=&group_by=
func (h *Handler) GetAssetReport(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, assetID string) {
	q := r.URL.Query()

	period, err := generic.ParsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (from and to are YYYY-MM-DD)", err)
		return
	}

	rate := h.defaultRate
	if s := q.Get("rate"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid rate", err)
			return
		}
		rate = &d
	}

	if _, err := billing.KeyFuncFor(q.Get("group_by")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid group_by", err)
		return
	}

	rep, err := h.Reports.Build(r.Context(), report.Request{
		TenantID: h.tenant(r),
		Period:   period,
		AssetID:  assetID,
		Rate:     rate,
		GroupBy:  q.Get("group_by"),
	})
	if err != nil {
		writeFailure(w, "Failed to build report", err)
		return
	}

	if assetID != "" && len(rep.Assets) == 0 {
		writeError(w, http.StatusNotFound, "No entries for asset in period", nil)
		return
	}

	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeFailure picks the status from the error and logs server-side failures.
func writeFailure(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateEntry):
		return http.StatusConflict
	case billing.IsClientError(err):
		return http.StatusUnprocessableEntity
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func rateFromFloat(rate *float64) (*decimal.Decimal, error) {
	if rate == nil {
		return nil, nil
	}
	if math.IsNaN(*rate) || math.IsInf(*rate, 0) {
		return nil, generic.ErrNotANumber
	}
	d := decimal.NewFromFloat(*rate)
	return &d, nil
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}
