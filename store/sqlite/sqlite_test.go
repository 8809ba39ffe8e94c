package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
	"github.com/warp/fleet-billing/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func hours(h float64) *float64 { return &h }

func TestEntries_AppendAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: An operator entry and an admin adjustment for the same day
	op, err := s.SaveEntry(ctx, "acme", billing.RawEntry{Date: "2025-03-10", AssetID: "EX-01", AuthorRole: billing.RoleOperator, TotalHours: hours(10)})
	require.NoError(t, err)
	adj, err := s.SaveEntry(ctx, "acme", billing.RawEntry{Date: "2025-03-10", AssetID: "EX-01", AuthorRole: billing.RoleAdmin, TotalHours: hours(8), AdjustedBy: "office"})
	require.NoError(t, err)
	_, err = s.SaveEntry(ctx, "other", billing.RawEntry{Date: "2025-03-10", AssetID: "EX-01", TotalHours: hours(3)})
	require.NoError(t, err)

	// THEN: IDs and submission times are assigned, both are kept in order
	assert.NotEmpty(t, op.ID)
	assert.False(t, op.SubmittedAt.IsZero())

	entries, err := s.ListEntries(ctx, store.EntryFilter{TenantID: "acme"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, op.ID, entries[0].ID)
	assert.Equal(t, adj.ID, entries[1].ID)
	assert.Equal(t, "office", entries[1].AdjustedBy)
	require.NotNil(t, entries[1].TotalHours)
	assert.Equal(t, 8.0, *entries[1].TotalHours)
}

func TestEntries_Filter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, e := range []billing.RawEntry{
		{Date: "2025-02-28", AssetID: "EX-01", TotalHours: hours(8)},
		{Date: "2025-03-01", AssetID: "EX-01", TotalHours: hours(8)},
		{Date: "2025-03-31", AssetID: "EX-02", TotalHours: hours(8)},
		{Date: "2025-04-01T06:00:00Z", AssetID: "EX-02", TotalHours: hours(8)},
	} {
		_, err := s.SaveEntry(ctx, "acme", e)
		require.NoError(t, err)
	}

	march := generic.MonthOf(generic.MustParseDay("2025-03-15"))
	entries, err := s.ListEntries(ctx, store.EntryFilter{TenantID: "acme", Period: &march})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.ListEntries(ctx, store.EntryFilter{TenantID: "acme", AssetID: "EX-02"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.ListEntries(ctx, store.EntryFilter{TenantID: "acme", Subject: "EX-01", Period: &march})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntries_RejectsBadDateAndDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.SaveEntry(ctx, "acme", billing.RawEntry{ID: "x", Date: "yesterday", AssetID: "EX-01"})
	assert.ErrorIs(t, err, generic.ErrInvalidDay)

	_, err = s.SaveEntry(ctx, "acme", billing.RawEntry{ID: "x", Date: "2025-03-10", AssetID: "EX-01"})
	require.NoError(t, err)
	_, err = s.SaveEntry(ctx, "acme", billing.RawEntry{ID: "x", Date: "2025-03-11", AssetID: "EX-01"})
	assert.ErrorIs(t, err, store.ErrDuplicateEntry)
}

func TestConfig_Versioned(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetConfig(ctx, "acme")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec, err := s.SaveConfig(ctx, store.ConfigRecord{TenantID: "acme", ConfigJSON: `{"weekday":{"enabled":true}}`})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)

	rec, err = s.SaveConfig(ctx, store.ConfigRecord{TenantID: "acme", ConfigJSON: `{}`})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.WithinDuration(t, time.Now(), rec.UpdatedAt, time.Minute)

	got, err := s.GetConfig(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, `{}`, got.ConfigJSON)
}

func TestHolidays_TenantAndGlobal(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.SaveHoliday(ctx, generic.Holiday{Date: generic.MustParseDay("2025-04-27"), Name: "Freedom Day"})
	require.NoError(t, err)
	first, err := s.SaveHoliday(ctx, generic.Holiday{TenantID: "acme", Date: generic.MustParseDay("2025-03-10"), Name: "Site shutdown"})
	require.NoError(t, err)
	_, err = s.SaveHoliday(ctx, generic.Holiday{TenantID: "other", Date: generic.MustParseDay("2025-03-11"), Name: "Other"})
	require.NoError(t, err)

	// Same tenant and date renames, keeps the ID
	renamed, err := s.SaveHoliday(ctx, generic.Holiday{TenantID: "acme", Date: generic.MustParseDay("2025-03-10"), Name: "Site closed"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, renamed.ID)

	all, err := s.ListHolidays(ctx, "acme", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Site closed", all[0].Name)
	assert.Equal(t, "Freedom Day", all[1].Name)

	march := generic.MonthOf(generic.MustParseDay("2025-03-01"))
	cal, err := store.Calendar(ctx, s, "acme", &march)
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(generic.MustParseDay("2025-03-10")))
	assert.False(t, cal.IsHoliday(generic.MustParseDay("2025-04-27")))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.SaveEntry(ctx, "acme", billing.RawEntry{Date: "2025-03-10", AssetID: "EX-01", TotalHours: hours(8)})
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	entries, err := s.ListEntries(ctx, store.EntryFilter{TenantID: "acme"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
