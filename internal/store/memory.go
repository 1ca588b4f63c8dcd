package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu         sync.RWMutex
	timetables map[string]*model.Timetable
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		timetables: make(map[string]*model.Timetable),
	}
}

// paginateIDs applies cursor-based pagination to a sorted slice of IDs.
// Returns the paginated IDs and the next page token (empty if no more pages).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string, error) {
	pageSize = normalizePageSize(pageSize)
	sort.Strings(ids)

	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", err
		}
		start := sort.Search(len(ids), func(i int) bool { return ids[i] > cursorID })
		ids = ids[start:]
	}

	var nextToken string
	if int32(len(ids)) > pageSize {
		ids = ids[:pageSize]
		nextToken = EncodePageToken(ids[pageSize-1])
	}
	return ids, nextToken, nil
}

// cloneTimetable copies t so callers cannot mutate stored state.
func cloneTimetable(t *model.Timetable) *model.Timetable {
	c := *t
	c.Times = append([]model.DailyPrayerTime(nil), t.Times...)
	return &c
}

func (m *MemoryStore) SaveTimetable(ctx context.Context, t *model.Timetable) error {
	if t.ID == "" {
		return fmt.Errorf("timetable ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneTimetable(t)
	c.MosqueKey = model.MosqueKey(c.MosqueName)
	m.timetables[t.ID] = c
	return nil
}

func (m *MemoryStore) GetTimetable(ctx context.Context, id string) (*model.Timetable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.timetables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneTimetable(t), nil
}

func (m *MemoryStore) ListTimetables(ctx context.Context, mosqueName string, pageSize int32, pageToken string) ([]*model.Timetable, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := model.MosqueKey(mosqueName)
	var ids []string
	for id, t := range m.timetables {
		if key == "" || t.MosqueKey == key {
			ids = append(ids, id)
		}
	}

	page, next, err := paginateIDs(ids, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}
	result := make([]*model.Timetable, 0, len(page))
	for _, id := range page {
		result = append(result, cloneTimetable(m.timetables[id]))
	}
	return result, next, nil
}

func (m *MemoryStore) GetLatestTimetable(ctx context.Context, mosqueName string) (*model.Timetable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := model.MosqueKey(mosqueName)
	var latest *model.Timetable
	for _, t := range m.timetables {
		if t.MosqueKey != key {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no timetable for mosque %q", ErrNotFound, mosqueName)
	}
	return cloneTimetable(latest), nil
}

func (m *MemoryStore) DeleteTimetable(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.timetables[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.timetables, id)
	return nil
}
