/*
Package store defines persistence for timesheet entries, billing configs and
public holidays.

PURPOSE:
  The billing engine is pure: it receives records and a config and returns
  totals. This package is the data-access side that feeds it. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage.

APPEND-ONLY ENTRIES:
  Timesheet entries are never updated or deleted:
  - SaveEntry(): The ONLY write for entries
  - A correction is a new submission (an admin adjustment, a plant manager
    report) for the same (date, subject); the normalizer picks the winner
  - Superseded submissions stay for audit

TENANTS:
  Every row belongs to a tenant. Holidays with an empty tenant are global
  and apply to every tenant.

IMPLEMENTATIONS:
  - store/sqlite: SQLite via mattn/go-sqlite3
  - store/postgres: PostgreSQL via pgx
  - store/memory: In-memory for testing

SEE ALSO:
  - billing/types.go: RawEntry
  - report/report.go: Reads entries and configs to build reports
*/
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEntry is returned when an entry ID was already stored.
	ErrDuplicateEntry = errors.New("duplicate entry id")
)

// =============================================================================
// STORE - Interface for entries, configs and holidays
// =============================================================================

// Store persists everything a billing run reads.
type Store interface {
	// SaveEntry appends a submission. An empty ID is assigned, a zero
	// SubmittedAt is set to now. Returns the entry as stored.
	SaveEntry(ctx context.Context, tenantID string, e billing.RawEntry) (billing.RawEntry, error)

	// ListEntries returns submissions matching the filter in submission order.
	ListEntries(ctx context.Context, f EntryFilter) ([]billing.RawEntry, error)

	// SaveConfig stores the tenant's billing config document, bumping its version.
	SaveConfig(ctx context.Context, rec ConfigRecord) (ConfigRecord, error)

	// GetConfig returns the tenant's config, or ErrNotFound.
	GetConfig(ctx context.Context, tenantID string) (ConfigRecord, error)

	// SaveHoliday stores a holiday; one per tenant and date.
	SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error)

	// ListHolidays returns the tenant's and the global holidays, optionally
	// limited to a period, ordered by date.
	ListHolidays(ctx context.Context, tenantID string, period *generic.Period) ([]generic.Holiday, error)

	// Reset clears all data (for testing/demo).
	Reset(ctx context.Context) error

	Close() error
}

// EntryFilter selects submissions. Zero fields match everything.
type EntryFilter struct {
	TenantID string
	Period   *generic.Period
	Subject  string
	AssetID  string
}

// ConfigRecord is a stored billing config document (see factory).
type ConfigRecord struct {
	TenantID   string
	ConfigJSON string
	Version    int
	UpdatedAt  time.Time
}

// =============================================================================
// HELPERS SHARED BY IMPLEMENTATIONS
// =============================================================================

// PrepareEntry assigns the ID and submission time of a new entry and returns
// the normalized day key it is indexed under.
func PrepareEntry(e billing.RawEntry, now time.Time) (billing.RawEntry, string, error) {
	day, err := generic.ParseDay(e.Date)
	if err != nil {
		return e, "", err
	}
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = now.UTC()
	}
	return e, day.String(), nil
}

// PrepareHoliday assigns the ID of a new holiday.
func PrepareHoliday(h generic.Holiday) generic.Holiday {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return h
}

// Matches reports whether a stored entry passes the filter. Tenant is checked
// by the caller.
func (f EntryFilter) Matches(e billing.RawEntry) bool {
	if f.Subject != "" && e.Subject() != f.Subject {
		return false
	}
	if f.AssetID != "" && e.AssetID != f.AssetID {
		return false
	}
	if f.Period != nil {
		day, err := generic.ParseDay(e.Date)
		if err != nil || !f.Period.Contains(day) {
			return false
		}
	}
	return true
}

// Calendar loads the tenant's holidays for a period as a HolidayCalendar.
func Calendar(ctx context.Context, s Store, tenantID string, period *generic.Period) (generic.HolidaySet, error) {
	holidays, err := s.ListHolidays(ctx, tenantID, period)
	if err != nil {
		return nil, err
	}
	return generic.NewHolidaySet(holidays), nil
}
