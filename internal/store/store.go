// Package store defines the capability contracts for the record store: CRUD
// plus half-open period queries and live snapshot subscriptions. Individual
// backends (mongo, sqlite, memory) implement these interfaces; consumers
// never see the transport, only materialized collections of domain values.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
)

// ErrNotFound is returned when an entity does not exist for the given owner.
var ErrNotFound = errors.New("not found")

type (
	// RecordStore persists expense records. Every operation is scoped to an
	// owner; a mismatched owner behaves exactly like a missing record.
	RecordStore interface {
		// CreateRecord assigns ID, CreatedAt, and UpdatedAt, then persists.
		CreateRecord(ctx context.Context, rec core.Record) (core.Record, error)

		// UpdateRecord overwrites all user fields of rec.ID and refreshes
		// UpdatedAt. OwnerID and CreatedAt are never changed.
		UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error)

		DeleteRecord(ctx context.Context, ownerID, id string) error

		RecordByID(ctx context.Context, ownerID, id string) (core.Record, error)

		// RecordsInRange returns the owner's records with
		// occurredOn >= start && occurredOn < end.
		RecordsInRange(ctx context.Context, ownerID string, start, end time.Time) ([]core.Record, error)
	}

	// CategoryStore persists expense categories. Deleting a category never
	// touches records referencing it.
	CategoryStore interface {
		CreateCategory(ctx context.Context, cat core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, cat core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID, id string) error
		Categories(ctx context.Context, ownerID string) ([]core.Category, error)
	}

	// Snapshot is one full materialized result set from a live query. A
	// non-nil Err flags an upstream failure; consumers must surface it
	// instead of aggregating, so "failed to load" never reads as "no
	// spending".
	Snapshot struct {
		Records []core.Record
		Err     error
	}

	// Watcher exposes live period queries: each delivered Snapshot fully
	// supersedes the previous one for the same window, never a diff.
	Watcher interface {
		WatchRecords(ctx context.Context, ownerID string, start, end time.Time) (<-chan Snapshot, error)
	}
)
