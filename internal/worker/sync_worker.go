// Package worker pushes locally written records to the remote document
// store. The sqlite sync queue is the source of truth; AMQP messages only
// wake the worker early, and a polling loop catches anything missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/amqp"
	"github.com/ndegwamoche/budget-tracker/internal/store"
	"github.com/ndegwamoche/budget-tracker/internal/store/sqlite"
)

const (
	maxAttempts       = 5
	staleProcessingBy = 10 * time.Minute
)

// SyncWorker drains the local sync queue into the remote store.
type SyncWorker struct {
	local     *sqlite.Store
	remote    store.RecordStore
	batchSize int
}

func NewSyncWorker(local *sqlite.Store, remote store.RecordStore, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &SyncWorker{local: local, remote: remote, batchSize: batchSize}
}

// HandleSyncMessage reacts to an AMQP wakeup. The message is only a
// nudge; the queue rows decide what actually needs syncing.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"record_id", msg.RecordID,
		"operation", msg.Operation)

	_, err := w.ProcessBatch(ctx)
	return err
}

// ProcessBatch claims and processes one batch of queued items, returning
// how many synced. Item failures are retried via the queue, not returned.
func (w *SyncWorker) ProcessBatch(ctx context.Context) (int, error) {
	items, err := w.local.DequeueSyncBatch(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue sync batch: %w", err)
	}

	synced := 0
	for _, item := range items {
		if err := w.processItem(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to sync item",
				"record_id", item.RecordID,
				"operation", item.Operation,
				"attempts", item.Attempts,
				"error", err)
			if markErr := w.local.MarkSyncError(ctx, item, maxAttempts); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"record_id", item.RecordID, "error", markErr)
			}
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) processItem(ctx context.Context, item sqlite.SyncItem) error {
	switch item.Operation {
	case sqlite.OperationSync:
		return w.syncRecord(ctx, item)
	case sqlite.OperationDelete:
		return w.deleteRemote(ctx, item)
	default:
		// Unknown operations are dropped rather than retried forever.
		slog.WarnContext(ctx, "Dropping sync item with unknown operation",
			"record_id", item.RecordID, "operation", item.Operation)
		return w.local.MarkSynced(ctx, item, "")
	}
}

func (w *SyncWorker) syncRecord(ctx context.Context, item sqlite.SyncItem) error {
	rec, err := w.local.RecordByID(ctx, item.OwnerID, item.RecordID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted locally before the sync ran; the delete item will follow.
		return w.local.MarkSynced(ctx, item, "")
	}
	if err != nil {
		return fmt.Errorf("load local record: %w", err)
	}

	remoteID, err := w.local.RecordRemoteID(ctx, item.RecordID)
	if err != nil {
		return fmt.Errorf("load remote id: %w", err)
	}

	if remoteID != "" {
		rec.ID = remoteID
		_, err := w.remote.UpdateRecord(ctx, rec)
		if err == nil {
			slog.InfoContext(ctx, "Updated remote record",
				"record_id", item.RecordID, "remote_id", remoteID)
			return w.local.MarkSynced(ctx, item, remoteID)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("update remote record: %w", err)
		}
		// Remote document vanished; fall through and create a fresh one.
	}

	rec.ID = ""
	created, err := w.remote.CreateRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("create remote record: %w", err)
	}

	slog.InfoContext(ctx, "Created remote record",
		"record_id", item.RecordID, "remote_id", created.ID)
	return w.local.MarkSynced(ctx, item, created.ID)
}

func (w *SyncWorker) deleteRemote(ctx context.Context, item sqlite.SyncItem) error {
	if item.RemoteID == "" {
		return w.local.MarkSynced(ctx, item, "")
	}

	err := w.remote.DeleteRecord(ctx, item.OwnerID, item.RemoteID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete remote record: %w", err)
	}

	slog.InfoContext(ctx, "Deleted remote record",
		"record_id", item.RecordID, "remote_id", item.RemoteID)
	return w.local.MarkSynced(ctx, item, "")
}

// Run polls the queue until ctx is done. Stale processing rows left by a
// crashed run are reclaimed on each tick.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Sync worker started",
		"interval", interval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sync worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if reclaimed, err := w.local.ResetStaleProcessing(ctx, staleProcessingBy); err != nil {
				slog.ErrorContext(ctx, "Failed to reclaim stale sync items", "error", err)
			} else if reclaimed > 0 {
				slog.WarnContext(ctx, "Reclaimed stale sync items", "count", reclaimed)
			}

			synced, err := w.ProcessBatch(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Sync batch failed", "error", err)
				continue
			}
			if synced > 0 {
				slog.InfoContext(ctx, "Sync batch completed", "synced", synced)
			}
		}
	}
}
