package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Sync queue operations and states. A row moves pending -> processing ->
// done, or back to pending when a stale processing row is reclaimed.
const (
	OperationSync   = "sync"
	OperationDelete = "delete"

	statePending    = "pending"
	stateProcessing = "processing"
	stateDone       = "done"
	stateFailed     = "failed"
)

// SyncItem is one unit of work for the sync worker.
type SyncItem struct {
	ID        int64
	RecordID  string
	OwnerID   string
	RemoteID  string
	Operation string
	Attempts  int
}

func enqueueTx(ctx context.Context, tx *sql.Tx, recordID int64, ownerID, remoteID, operation, now string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sync_queue (record_id, owner_id, remote_id, operation, state, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		recordID, ownerID, remoteID, operation, statePending, now, now)
	if err != nil {
		return fmt.Errorf("enqueue sync item: %w", err)
	}
	return nil
}

// DequeueSyncBatch claims up to limit pending items, marking them processing.
func (s *Store) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, record_id, owner_id, remote_id, operation, attempts
		 FROM sync_queue WHERE state = ? ORDER BY id LIMIT ?`,
		statePending, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}

	var items []SyncItem
	for rows.Next() {
		var item SyncItem
		var recordID int64
		if err := rows.Scan(&item.ID, &recordID, &item.OwnerID, &item.RemoteID,
			&item.Operation, &item.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		item.RecordID = strconv.FormatInt(recordID, 10)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_queue SET state = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?`,
			stateProcessing, now, item.ID); err != nil {
			return nil, fmt.Errorf("mark processing: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return items, nil
}

// MarkSynced finishes an item and records the remote document id on the
// local row so later updates target the same remote document.
func (s *Store) MarkSynced(ctx context.Context, item SyncItem, remoteID string) error {
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sync_queue SET state = ?, updated_at = ? WHERE id = ?`,
		stateDone, now, item.ID); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	if item.Operation == OperationSync && remoteID != "" {
		rid, err := strconv.ParseInt(item.RecordID, 10, 64)
		if err == nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE records SET remote_id = ? WHERE id = ?`, remoteID, rid); err != nil {
				return fmt.Errorf("store remote id: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkSyncError returns an item to pending for retry, or parks it as failed
// after maxAttempts.
func (s *Store) MarkSyncError(ctx context.Context, item SyncItem, maxAttempts int) error {
	now := s.now().UTC().Format(timeLayout)

	state := statePending
	if item.Attempts+1 >= maxAttempts {
		state = stateFailed
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET state = ?, updated_at = ? WHERE id = ?`,
		state, now, item.ID)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	return nil
}

// ResetStaleProcessing returns processing items older than maxAge to
// pending. Recovers work abandoned by a crashed worker.
func (s *Store) ResetStaleProcessing(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-maxAge).Format(timeLayout)
	now := s.now().UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_queue SET state = ?, updated_at = ? WHERE state = ? AND updated_at < ?`,
		statePending, now, stateProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale processing: %w", err)
	}
	return res.RowsAffected()
}

// PendingSyncCount reports the queue backlog, used by readiness checks.
func (s *Store) PendingSyncCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE state IN (?, ?)`,
		statePending, stateProcessing).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending sync items: %w", err)
	}
	return n, nil
}

// RecordRemoteID returns the remote document id mapped to a local record,
// empty until the first successful sync.
func (s *Store) RecordRemoteID(ctx context.Context, recordID string) (string, error) {
	rid, err := strconv.ParseInt(recordID, 10, 64)
	if err != nil {
		return "", nil
	}
	var remoteID string
	err = s.db.QueryRowContext(ctx,
		`SELECT remote_id FROM records WHERE id = ?`, rid).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load remote id: %w", err)
	}
	return remoteID, nil
}
