/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists timesheet submissions, tenant billing configs and public holidays
  using SQLite. The PostgreSQL store follows the same schema with only minor
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the entries table
  - No DELETE statements on the entries table (except Reset for demos)
  - Corrections arrive as new submissions for the same (date, subject)

KEY TABLES:
  entries:          Every submission, indexed columns plus the full record as JSON
  billing_configs:  One config document per tenant (versioned)
  holidays:         Tenant-specific and global public holidays

INDEXES:
  - idx_entries_tenant_day: Period scans for reports (hot path)
  - idx_entries_tenant_subject_day: Per-asset reports

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. An in-memory database is pinned to a
  single connection, since every new connection would open an empty one.

USAGE:
  s, err := sqlite.New("./data/fleet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer s.Close()

SEE ALSO:
  - store/store.go: Interface definition
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open database")
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate database")
	}

	zap.L().Debug("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Timesheet submissions (append-only)
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tenant_id TEXT NOT NULL,
		day TEXT NOT NULL,
		subject TEXT NOT NULL,
		asset_id TEXT,
		operator TEXT,
		author_role TEXT,
		entry_json TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_tenant_day
		ON entries(tenant_id, day);
	CREATE INDEX IF NOT EXISTS idx_entries_tenant_subject_day
		ON entries(tenant_id, subject, day);

	-- Billing configs (one per tenant)
	CREATE TABLE IF NOT EXISTS billing_configs (
		tenant_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	-- Public holidays (tenant-specific and global)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_tenant_date
		ON holidays(tenant_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRIES
// =============================================================================

// SaveEntry appends a submission.
func (s *Store) SaveEntry(ctx context.Context, tenantID string, e billing.RawEntry) (billing.RawEntry, error) {
	e, day, err := store.PrepareEntry(e, time.Now())
	if err != nil {
		return e, err
	}

	entryJSON, err := json.Marshal(e)
	if err != nil {
		return e, eris.Wrap(err, "sqlite: marshal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO entries
		(id, tenant_id, day, subject, asset_id, operator, author_role, entry_json, submitted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID,
		tenantID,
		day,
		e.Subject(),
		nullString(e.AssetID),
		nullString(e.Operator),
		nullString(string(e.AuthorRole)),
		string(entryJSON),
		e.SubmittedAt.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return e, eris.Wrapf(store.ErrDuplicateEntry, "entry %s", e.ID)
		}
		return e, eris.Wrap(err, "sqlite: insert entry")
	}
	return e, nil
}

// ListEntries returns submissions matching the filter in submission order.
func (s *Store) ListEntries(ctx context.Context, f store.EntryFilter) ([]billing.RawEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where = []string{"tenant_id = ?"}
		args  = []any{f.TenantID}
	)
	if f.Period != nil {
		where = append(where, "day >= ?", "day <= ?")
		args = append(args, f.Period.Start.String(), f.Period.End.String())
	}
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if f.AssetID != "" {
		where = append(where, "asset_id = ?")
		args = append(args, f.AssetID)
	}

	query := "SELECT entry_json FROM entries WHERE " + strings.Join(where, " AND ") + " ORDER BY seq ASC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query entries")
	}
	defer rows.Close()

	var entries []billing.RawEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		var e billing.RawEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// BILLING CONFIGS
// =============================================================================

// SaveConfig upserts the tenant's config, bumping the version.
func (s *Store) SaveConfig(ctx context.Context, rec store.ConfigRecord) (store.ConfigRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO billing_configs (tenant_id, config_json, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = billing_configs.version + 1,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, rec.TenantID, rec.ConfigJSON, now.Format(time.RFC3339)); err != nil {
		return rec, eris.Wrap(err, "sqlite: save config")
	}
	return s.getConfig(ctx, rec.TenantID)
}

// GetConfig returns the tenant's config.
func (s *Store) GetConfig(ctx context.Context, tenantID string) (store.ConfigRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getConfig(ctx, tenantID)
}

func (s *Store) getConfig(ctx context.Context, tenantID string) (store.ConfigRecord, error) {
	var (
		rec       store.ConfigRecord
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT tenant_id, config_json, version, updated_at FROM billing_configs WHERE tenant_id = ?",
		tenantID,
	).Scan(&rec.TenantID, &rec.ConfigJSON, &rec.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return store.ConfigRecord{}, eris.Wrapf(store.ErrNotFound, "billing config for tenant %q", tenantID)
	}
	if err != nil {
		return store.ConfigRecord{}, eris.Wrap(err, "sqlite: get config")
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday saves a holiday; a second holiday on the same date renames it.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	h = store.PrepareHoliday(h)

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, tenant_id, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, date) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.TenantID,
		h.Date.String(),
		h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return h, eris.Wrap(err, "sqlite: save holiday")
	}

	// The row may predate this call under another ID.
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM holidays WHERE tenant_id = ? AND date = ?",
		h.TenantID, h.Date.String(),
	).Scan(&h.ID)
	if err != nil {
		return h, eris.Wrap(err, "sqlite: reload holiday")
	}
	return h, nil
}

// ListHolidays returns tenant and global holidays, ordered by date.
func (s *Store) ListHolidays(ctx context.Context, tenantID string, period *generic.Period) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tenant_id, date, name
		FROM holidays
		WHERE (tenant_id = ? OR tenant_id = '')
	`
	args := []any{tenantID}
	if period != nil {
		query += " AND date >= ? AND date <= ?"
		args = append(args, period.Start.String(), period.End.String())
	}
	query += " ORDER BY date ASC, tenant_id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query holidays")
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var (
			h       generic.Holiday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &h.TenantID, &dateStr, &h.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan holiday")
		}
		if h.Date, err = generic.ParseDay(dateStr); err != nil {
			return nil, eris.Wrapf(err, "sqlite: holiday %s", h.ID)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"entries", "billing_configs", "holidays"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: reset %s", table)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
