// Package memory provides an in-memory store.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/warp/fleet-billing/billing"
	"github.com/warp/fleet-billing/generic"
	"github.com/warp/fleet-billing/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	entries  map[string][]billing.RawEntry // tenant -> submissions in order
	ids      map[string]bool
	configs  map[string]store.ConfigRecord
	holidays map[holidayKey]generic.Holiday
}

type holidayKey struct {
	TenantID string
	Date     string
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		entries:  make(map[string][]billing.RawEntry),
		ids:      make(map[string]bool),
		configs:  make(map[string]store.ConfigRecord),
		holidays: make(map[holidayKey]generic.Holiday),
	}
}

// SaveEntry appends a single submission. Append-only.
func (m *Memory) SaveEntry(_ context.Context, tenantID string, e billing.RawEntry) (billing.RawEntry, error) {
	e, _, err := store.PrepareEntry(e, time.Now())
	if err != nil {
		return e, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ids[e.ID] {
		return e, eris.Wrapf(store.ErrDuplicateEntry, "entry %s", e.ID)
	}
	m.ids[e.ID] = true
	m.entries[tenantID] = append(m.entries[tenantID], e)
	return e, nil
}

func (m *Memory) ListEntries(_ context.Context, f store.EntryFilter) ([]billing.RawEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []billing.RawEntry
	for _, e := range m.entries[f.TenantID] {
		if f.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) SaveConfig(_ context.Context, rec store.ConfigRecord) (store.ConfigRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Version = m.configs[rec.TenantID].Version + 1
	rec.UpdatedAt = time.Now().UTC()
	m.configs[rec.TenantID] = rec
	return rec, nil
}

func (m *Memory) GetConfig(_ context.Context, tenantID string) (store.ConfigRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.configs[tenantID]
	if !ok {
		return store.ConfigRecord{}, eris.Wrapf(store.ErrNotFound, "billing config for tenant %q", tenantID)
	}
	return rec, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) (generic.Holiday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := holidayKey{TenantID: h.TenantID, Date: h.Date.String()}
	if existing, ok := m.holidays[k]; ok {
		h.ID = existing.ID
	}
	h = store.PrepareHoliday(h)
	m.holidays[k] = h
	return h, nil
}

func (m *Memory) ListHolidays(_ context.Context, tenantID string, period *generic.Period) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.Holiday
	for k, h := range m.holidays {
		if k.TenantID != tenantID && k.TenantID != "" {
			continue
		}
		if period != nil && !period.Contains(h.Date) {
			continue
		}
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TenantID > result[j].TenantID
	})
	return result, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string][]billing.RawEntry)
	m.ids = make(map[string]bool)
	m.configs = make(map[string]store.ConfigRecord)
	m.holidays = make(map[holidayKey]generic.Holiday)
	return nil
}

func (m *Memory) Close() error { return nil }
