package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// WatchRecords implements store.Watcher with a change stream on the records
// collection. Each matching event triggers a full re-query of the window,
// so subscribers always receive a complete materialized snapshot, never a
// diff. Delete events carry no full document, which is why the stream only
// signals and the snapshot comes from a regular range query.
func (s *Store) WatchRecords(ctx context.Context, ownerID string, start, end time.Time) (<-chan store.Snapshot, error) {
	pipeline := bson.A{bson.M{"$match": bson.M{"$or": bson.A{
		bson.M{"fullDocument.owner_id": ownerID},
		bson.M{"operationType": "delete"},
	}}}}

	stream, err := s.db.Collection(recordsCollection).Watch(
		ctx,
		pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup),
	)
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	out := make(chan store.Snapshot, 1)

	emit := func() store.Snapshot {
		records, err := s.RecordsInRange(ctx, ownerID, start, end)
		if err != nil {
			return store.Snapshot{Err: err}
		}
		return store.Snapshot{Records: records}
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			select {
			case events <- struct{}{}:
			default: // coalesce: a pending signal covers this event too
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Change stream terminated",
				"error", err,
				"owner_id", ownerID)
		}
	}()

	go func() {
		defer close(out)

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
			case _, open := <-events:
				if !open {
					return
				}
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
