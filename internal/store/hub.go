package store

import (
	"context"
	"sync"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
)

// Hub fans mutation notifications out to per-owner subscribers. The local
// backends use it to implement Watcher: every write calls Notify, every
// subscriber re-runs its query and emits a fresh full snapshot. Signals are
// coalesced, not queued; a slow subscriber sees the latest state, never a
// backlog of stale ones.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan struct{}
}

// NewHub creates an empty notification hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Notify wakes all subscribers registered for the owner.
func (h *Hub) Notify(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ownerID] {
		select {
		case sub.ch <- struct{}{}:
		default: // a pending signal already covers this change
		}
	}
}

func (h *Hub) subscribe(ownerID string) *subscriber {
	sub := &subscriber{ch: make(chan struct{}, 1)}
	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[*subscriber]struct{})
	}
	h.subs[ownerID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(ownerID string, sub *subscriber) {
	h.mu.Lock()
	if set := h.subs[ownerID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, ownerID)
		}
	}
	h.mu.Unlock()
}

// Watch implements the Watcher contract on top of the hub: it emits an
// initial snapshot immediately, then a fresh one after every notification,
// until ctx is done. query must be safe for repeated calls.
func (h *Hub) Watch(ctx context.Context, ownerID string, query func(context.Context) ([]core.Record, error)) (<-chan Snapshot, error) {
	sub := h.subscribe(ownerID)
	out := make(chan Snapshot, 1)

	emit := func() Snapshot {
		records, err := query(ctx)
		if err != nil {
			return Snapshot{Err: err}
		}
		return Snapshot{Records: records}
	}

	go func() {
		defer close(out)
		defer h.unsubscribe(ownerID, sub)

		snap := emit()
		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.ch:
				select {
				case out <- emit():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// WatchRange adapts Watch to a period-bounded record query.
func WatchRange(ctx context.Context, h *Hub, rs RecordStore, ownerID string, start, end time.Time) (<-chan Snapshot, error) {
	return h.Watch(ctx, ownerID, func(ctx context.Context) ([]core.Record, error) {
		return rs.RecordsInRange(ctx, ownerID, start, end)
	})
}
