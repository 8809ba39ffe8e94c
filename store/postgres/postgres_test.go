package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewWithPool(mock), mock
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS entries`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEntry_AssignsIDAndIndexesDay(t *testing.T) {
	s, mock := newMockStore(t)
	total := 9.0

	mock.ExpectExec(`INSERT INTO entries`).
		WithArgs(pgxmock.AnyArg(), "acme", "2025-03-10", "EX-01", "EX-01", "sipho", "operator", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	e, err := s.SaveEntry(context.Background(), "acme", billing.RawEntry{
		Date: "2025-03-10T07:00:00Z", AssetID: "EX-01", Operator: "sipho",
		AuthorRole: billing.RoleOperator, TotalHours: &total,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEntry_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO entries`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := s.SaveEntry(context.Background(), "acme", billing.RawEntry{ID: "e-1", Date: "2025-03-10", AssetID: "EX-01"})
	assert.ErrorIs(t, err, store.ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEntry_InvalidDateNeverReachesDatabase(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.SaveEntry(context.Background(), "acme", billing.RawEntry{Date: "10 March", AssetID: "EX-01"})
	assert.ErrorIs(t, err, generic.ErrInvalidDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries_BuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	total := 8.0

	raw, err := json.Marshal(billing.RawEntry{ID: "e-1", Date: "2025-03-10", AssetID: "EX-01", TotalHours: &total})
	require.NoError(t, err)

	period, err := generic.ParsePeriod("2025-03-01", "2025-03-31")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT entry_json FROM entries WHERE tenant_id = \$1 AND day >= \$2 AND day <= \$3 AND asset_id = \$4 ORDER BY seq ASC`).
		WithArgs("acme", "2025-03-01", "2025-03-31", "EX-01").
		WillReturnRows(pgxmock.NewRows([]string{"entry_json"}).AddRow(raw))

	entries, err := s.ListEntries(context.Background(), store.EntryFilter{TenantID: "acme", Period: &period, AssetID: "EX-01"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e-1", entries[0].ID)
	assert.Equal(t, 8.0, *entries[0].TotalHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfig_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT config_json::text, version, updated_at FROM billing_configs`).
		WithArgs("acme").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetConfig(context.Background(), "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConfig_ReturnsVersion(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO billing_configs .* ON CONFLICT \(tenant_id\) DO UPDATE`).
		WithArgs("acme", `{}`).
		WillReturnRows(pgxmock.NewRows([]string{"version", "updated_at"}).AddRow(3, now))

	rec, err := s.SaveConfig(context.Background(), store.ConfigRecord{TenantID: "acme", ConfigJSON: `{}`})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Version)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListHolidays(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, tenant_id, to_char\(date, 'YYYY-MM-DD'\), name FROM holidays`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "date", "name"}).
			AddRow("h-1", "", "2025-04-27", "Freedom Day").
			AddRow("h-2", "acme", "2025-05-02", "Site shutdown"))

	holidays, err := s.ListHolidays(context.Background(), "acme", nil)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "2025-04-27", holidays[0].Date.String())
	assert.Equal(t, "acme", holidays[1].TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReset(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`TRUNCATE entries, billing_configs, holidays`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	require.NoError(t, s.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
