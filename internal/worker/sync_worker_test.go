package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
	"github.com/ndegwamoche/budget-tracker/internal/store/memory"
	"github.com/ndegwamoche/budget-tracker/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func record(cents int64, day core.Day) core.Record {
	return core.Record{
		OwnerID:    "u1",
		Amount:     core.Money{Cents: cents},
		CategoryID: "cat1",
		OccurredOn: day,
	}
}

func TestProcessBatchCreatesRemoteRecord(t *testing.T) {
	local := newLocalStore(t)
	remote := memory.New()
	w := NewSyncWorker(local, remote, 25)
	ctx := context.Background()

	rec, err := local.CreateRecord(ctx, record(1250, core.NewDay(2026, 1, 5)))
	require.NoError(t, err)

	synced, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	remoteID, err := local.RecordRemoteID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotEmpty(t, remoteID)

	got, err := remote.RecordByID(ctx, "u1", remoteID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), got.Amount.Cents)
	assert.Equal(t, "2026-01-05", got.OccurredOn.Label())
}

func TestProcessBatchUpdatesExistingRemoteRecord(t *testing.T) {
	local := newLocalStore(t)
	remote := memory.New()
	w := NewSyncWorker(local, remote, 25)
	ctx := context.Background()

	rec, err := local.CreateRecord(ctx, record(1250, core.NewDay(2026, 1, 5)))
	require.NoError(t, err)
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	rec.Amount = core.Money{Cents: 999}
	_, err = local.UpdateRecord(ctx, rec)
	require.NoError(t, err)
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	remoteID, err := local.RecordRemoteID(ctx, rec.ID)
	require.NoError(t, err)

	got, err := remote.RecordByID(ctx, "u1", remoteID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Amount.Cents)

	// Still exactly one remote document.
	start, end := core.YearBounds(2026)
	records, err := remote.RecordsInRange(ctx, "u1", start, end)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestProcessBatchDeletesRemoteRecord(t *testing.T) {
	local := newLocalStore(t)
	remote := memory.New()
	w := NewSyncWorker(local, remote, 25)
	ctx := context.Background()

	rec, err := local.CreateRecord(ctx, record(1250, core.NewDay(2026, 1, 5)))
	require.NoError(t, err)
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	remoteID, err := local.RecordRemoteID(ctx, rec.ID)
	require.NoError(t, err)

	require.NoError(t, local.DeleteRecord(ctx, "u1", rec.ID))
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	_, err = remote.RecordByID(ctx, "u1", remoteID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessBatchSkipsLocallyDeletedRecord(t *testing.T) {
	local := newLocalStore(t)
	remote := memory.New()
	w := NewSyncWorker(local, remote, 25)
	ctx := context.Background()

	rec, err := local.CreateRecord(ctx, record(1250, core.NewDay(2026, 1, 5)))
	require.NoError(t, err)

	// Deleted before the worker ever ran; never reached the remote, so
	// only the pending sync item remains and it must complete as a no-op.
	require.NoError(t, local.DeleteRecord(ctx, "u1", rec.ID))

	synced, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	start, end := core.YearBounds(2026)
	records, err := remote.RecordsInRange(ctx, "u1", start, end)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessBatchRecreatesVanishedRemoteRecord(t *testing.T) {
	local := newLocalStore(t)
	remote := memory.New()
	w := NewSyncWorker(local, remote, 25)
	ctx := context.Background()

	rec, err := local.CreateRecord(ctx, record(1250, core.NewDay(2026, 1, 5)))
	require.NoError(t, err)
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	remoteID, err := local.RecordRemoteID(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, remote.DeleteRecord(ctx, "u1", remoteID))

	rec.Amount = core.Money{Cents: 500}
	_, err = local.UpdateRecord(ctx, rec)
	require.NoError(t, err)
	synced, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	newRemoteID, err := local.RecordRemoteID(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, remoteID, newRemoteID)

	got, err := remote.RecordByID(ctx, "u1", newRemoteID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Amount.Cents)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	local := newLocalStore(t)
	w := NewSyncWorker(local, memory.New(), 25)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
