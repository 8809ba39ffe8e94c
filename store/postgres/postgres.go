/*
Package postgres provides a PostgreSQL-backed implementation of store.Store.

PURPOSE:
  The production store. Same tables and append-only contract as the SQLite
  store; concurrency control is left to the database instead of a mutex.

KEY TABLES:
  entries:          Every submission; entry_json holds the full record (JSONB)
  billing_configs:  One config document per tenant (versioned)
  holidays:         Tenant-specific and global public holidays

USAGE:
  s, err := postgres.New(ctx, "postgres://localhost/fleet")
  if err != nil {
      return err
  }
  defer s.Close()
  if err := s.Migrate(ctx); err != nil {
      return err
  }

SEE ALSO:
  - store/store.go: Interface definition
  - store/sqlite: SQLite implementation
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool Pool
}

var _ store.Store = (*Store)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// New connects a pool and pings the database.
func New(ctx context.Context, connString string, poolCfg *PoolConfig) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			cfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			cfg.MinConns = poolCfg.MinConns
		}
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	zap.L().Info("postgres store connected", zap.Int32("max_conns", cfg.MaxConns))
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool) *Store {
	return &Store{pool: pool}
}

const migration = `
CREATE TABLE IF NOT EXISTS entries (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	tenant_id    TEXT NOT NULL,
	day          DATE NOT NULL,
	subject      TEXT NOT NULL,
	asset_id     TEXT,
	operator     TEXT,
	author_role  TEXT,
	entry_json   JSONB NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entries_tenant_day ON entries(tenant_id, day);
CREATE INDEX IF NOT EXISTS idx_entries_tenant_subject_day ON entries(tenant_id, subject, day);

CREATE TABLE IF NOT EXISTS billing_configs (
	tenant_id   TEXT PRIMARY KEY,
	config_json JSONB NOT NULL,
	version     INTEGER NOT NULL DEFAULT 1,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holidays (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL DEFAULT '',
	date       DATE NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, date)
);
`

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Store) SaveEntry(ctx context.Context, tenantID string, e billing.RawEntry) (billing.RawEntry, error) {
	e, day, err := store.PrepareEntry(e, time.Now())
	if err != nil {
		return e, err
	}

	entryJSON, err := json.Marshal(e)
	if err != nil {
		return e, eris.Wrap(err, "postgres: marshal entry")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO entries (id, tenant_id, day, subject, asset_id, operator, author_role, entry_json, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, tenantID, day, e.Subject(), e.AssetID, e.Operator, string(e.AuthorRole), entryJSON, e.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return e, eris.Wrapf(store.ErrDuplicateEntry, "entry %s", e.ID)
		}
		return e, eris.Wrap(err, "postgres: insert entry")
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, f store.EntryFilter) ([]billing.RawEntry, error) {
	query := `SELECT entry_json FROM entries WHERE tenant_id = $1`
	args := []any{f.TenantID}
	if f.Period != nil {
		args = append(args, f.Period.Start.String(), f.Period.End.String())
		query += fmt.Sprintf(" AND day >= $%d AND day <= $%d", len(args)-1, len(args))
	}
	if f.Subject != "" {
		args = append(args, f.Subject)
		query += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	if f.AssetID != "" {
		args = append(args, f.AssetID)
		query += fmt.Sprintf(" AND asset_id = $%d", len(args))
	}
	query += " ORDER BY seq ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query entries")
	}
	defer rows.Close()

	var entries []billing.RawEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		var e billing.RawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: decode entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate entries")
}

// =============================================================================
// BILLING CONFIGS
// =============================================================================

func (s *Store) SaveConfig(ctx context.Context, rec store.ConfigRecord) (store.ConfigRecord, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO billing_configs (tenant_id, config_json, version, updated_at)
		 VALUES ($1, $2, 1, now())
		 ON CONFLICT (tenant_id) DO UPDATE SET
			config_json = EXCLUDED.config_json,
			version = billing_configs.version + 1,
			updated_at = EXCLUDED.updated_at
		 RETURNING version, updated_at`,
		rec.TenantID, rec.ConfigJSON,
	).Scan(&rec.Version, &rec.UpdatedAt)
	if err != nil {
		return rec, eris.Wrap(err, "postgres: save config")
	}
	return rec, nil
}

func (s *Store) GetConfig(ctx context.Context, tenantID string) (store.ConfigRecord, error) {
	rec := store.ConfigRecord{TenantID: tenantID}
	err := s.pool.QueryRow(ctx,
		`SELECT config_json::text, version, updated_at FROM billing_configs WHERE tenant_id = $1`,
		tenantID,
	).Scan(&rec.ConfigJSON, &rec.Version, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ConfigRecord{}, eris.Wrapf(store.ErrNotFound, "billing config for tenant %q", tenantID)
	}
	if err != nil {
		return store.ConfigRecord{}, eris.Wrap(err, "postgres: get config")
	}
	return rec, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	h = store.PrepareHoliday(h)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO holidays (id, tenant_id, date, name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, date) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		h.ID, h.TenantID, h.Date.String(), h.Name,
	).Scan(&h.ID)
	if err != nil {
		return h, eris.Wrap(err, "postgres: save holiday")
	}
	return h, nil
}

func (s *Store) ListHolidays(ctx context.Context, tenantID string, period *generic.Period) ([]generic.Holiday, error) {
	query := `SELECT id, tenant_id, to_char(date, 'YYYY-MM-DD'), name FROM holidays WHERE (tenant_id = $1 OR tenant_id = '')`
	args := []any{tenantID}
	if period != nil {
		query += ` AND date >= $2 AND date <= $3`
		args = append(args, period.Start.String(), period.End.String())
	}
	query += ` ORDER BY date ASC, tenant_id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query holidays")
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var (
			h       generic.Holiday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &h.TenantID, &dateStr, &h.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan holiday")
		}
		if h.Date, err = generic.ParseDay(dateStr); err != nil {
			return nil, eris.Wrapf(err, "postgres: holiday %s", h.ID)
		}
		holidays = append(holidays, h)
	}
	return holidays, eris.Wrap(rows.Err(), "postgres: iterate holidays")
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE entries, billing_configs, holidays`)
	return eris.Wrap(err, "postgres: reset")
}
