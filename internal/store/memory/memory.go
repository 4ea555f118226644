// Package memory provides an in-process store implementation with the same
// contract as the remote document store. It backs the default dev setup and
// the test suites.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

type Store struct {
	mu         sync.Mutex
	records    map[string]core.Record   // id -> record
	categories map[string]core.Category // id -> category
	seq        int64
	hub        *store.Hub

	// now is swappable so tests get deterministic timestamps.
	now func() time.Time
}

func New() *Store {
	return &Store{
		records:    make(map[string]core.Record),
		categories: make(map[string]core.Category),
		hub:        store.NewHub(),
		now:        time.Now,
	}
}

// WithClock overrides the store's clock. Test helper.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) nextID() string {
	s.seq++
	return fmt.Sprintf("%024x", s.seq)
}

// CreateRecord implements store.RecordStore.
func (s *Store) CreateRecord(_ context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	rec.ID = s.nextID()
	now := s.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.hub.Notify(rec.OwnerID)
	return rec, nil
}

// UpdateRecord overwrites all user fields; OwnerID and CreatedAt stay fixed.
func (s *Store) UpdateRecord(_ context.Context, rec core.Record) (core.Record, error) {
	s.mu.Lock()
	existing, ok := s.records[rec.ID]
	if !ok || existing.OwnerID != rec.OwnerID {
		s.mu.Unlock()
		return core.Record{}, store.ErrNotFound
	}
	rec.OwnerID = existing.OwnerID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.now().UTC()
	if err := rec.Validate(); err != nil {
		s.mu.Unlock()
		return core.Record{}, err
	}
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.hub.Notify(rec.OwnerID)
	return rec, nil
}

func (s *Store) DeleteRecord(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	existing, ok := s.records[id]
	if !ok || existing.OwnerID != ownerID {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.records, id)
	s.mu.Unlock()

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) RecordByID(_ context.Context, ownerID, id string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return core.Record{}, store.ErrNotFound
	}
	return rec, nil
}

// RecordsInRange returns the owner's records in [start, end), ordered by
// occurrence date then creation time so snapshot iteration is deterministic.
func (s *Store) RecordsInRange(_ context.Context, ownerID string, start, end time.Time) ([]core.Record, error) {
	s.mu.Lock()
	var out []core.Record
	for _, rec := range s.records {
		if rec.OwnerID != ownerID {
			continue
		}
		on := rec.OccurredOn.Time
		if on.Before(start) || !on.Before(end) {
			continue
		}
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredOn.Equal(out[j].OccurredOn.Time) {
			return out[i].OccurredOn.Before(out[j].OccurredOn.Time)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CreateCategory implements store.CategoryStore. Duplicate names per owner
// are allowed; the store does not deduplicate.
func (s *Store) CreateCategory(_ context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	cat.ID = s.nextID()
	now := s.now().UTC()
	cat.CreatedAt = now
	cat.UpdatedAt = now
	s.categories[cat.ID] = cat
	s.mu.Unlock()

	s.hub.Notify(cat.OwnerID)
	return cat, nil
}

func (s *Store) UpdateCategory(_ context.Context, cat core.Category) (core.Category, error) {
	s.mu.Lock()
	existing, ok := s.categories[cat.ID]
	if !ok || existing.OwnerID != cat.OwnerID {
		s.mu.Unlock()
		return core.Category{}, store.ErrNotFound
	}
	cat.OwnerID = existing.OwnerID
	cat.CreatedAt = existing.CreatedAt
	cat.UpdatedAt = s.now().UTC()
	if err := cat.Validate(); err != nil {
		s.mu.Unlock()
		return core.Category{}, err
	}
	s.categories[cat.ID] = cat
	s.mu.Unlock()

	s.hub.Notify(cat.OwnerID)
	return cat, nil
}

// DeleteCategory removes the category only. Records referencing it keep
// their dangling id and render as "Unknown" downstream.
func (s *Store) DeleteCategory(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	existing, ok := s.categories[id]
	if !ok || existing.OwnerID != ownerID {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.categories, id)
	s.mu.Unlock()

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Categories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	var out []core.Category
	for _, cat := range s.categories {
		if cat.OwnerID == ownerID {
			out = append(out, cat)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// WatchRecords implements store.Watcher via the notification hub.
func (s *Store) WatchRecords(ctx context.Context, ownerID string, start, end time.Time) (<-chan store.Snapshot, error) {
	return store.WatchRange(ctx, s.hub, s, ownerID, start, end)
}
