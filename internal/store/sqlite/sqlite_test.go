package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	clock time.Time
}

func (s *SQLiteStoreSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "budget.db")
	st, err := New(dbPath)
	require.NoError(s.T(), err)

	s.clock = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s.store = st.WithClock(func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	})
	s.ctx = context.Background()
}

func (s *SQLiteStoreSuite) TearDownTest() {
	require.NoError(s.T(), s.store.Close())
}

func (s *SQLiteStoreSuite) record(cents int64, day core.Day) core.Record {
	return core.Record{
		OwnerID:    "u1",
		Amount:     core.Money{Cents: cents},
		CategoryID: "cat1",
		OccurredOn: day,
	}
}

func (s *SQLiteStoreSuite) TestCreateAssignsIdentityAndEnqueuesSync() {
	rec, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), rec.ID)
	assert.False(s.T(), rec.CreatedAt.IsZero())

	items, err := s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 1)
	assert.Equal(s.T(), rec.ID, items[0].RecordID)
	assert.Equal(s.T(), OperationSync, items[0].Operation)
}

func (s *SQLiteStoreSuite) TestUpdateRoundTrip() {
	rec, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)

	rec.Amount = core.Money{Cents: 900}
	rec.Note = "corrected"
	rec.Paid = true
	updated, err := s.store.UpdateRecord(s.ctx, rec)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), int64(900), updated.Amount.Cents)
	assert.Equal(s.T(), "corrected", updated.Note)
	assert.True(s.T(), updated.Paid)
	assert.True(s.T(), updated.UpdatedAt.After(updated.CreatedAt))
}

func (s *SQLiteStoreSuite) TestOwnerMismatchBehavesLikeMissing() {
	rec, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)

	_, err = s.store.RecordByID(s.ctx, "intruder", rec.ID)
	assert.ErrorIs(s.T(), err, store.ErrNotFound)

	err = s.store.DeleteRecord(s.ctx, "intruder", rec.ID)
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *SQLiteStoreSuite) TestMalformedIDBehavesLikeMissing() {
	_, err := s.store.RecordByID(s.ctx, "u1", "not-a-number")
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *SQLiteStoreSuite) TestRecordsInRangeIsHalfOpen() {
	jan := core.Month{Year: 2026, Month: time.January}
	start, end := jan.Bounds()

	for _, day := range []core.Day{
		core.NewDay(2025, 12, 31),
		core.NewDay(2026, 1, 1),
		core.NewDay(2026, 1, 31),
		core.NewDay(2026, 2, 1),
	} {
		_, err := s.store.CreateRecord(s.ctx, s.record(100, day))
		require.NoError(s.T(), err)
	}

	records, err := s.store.RecordsInRange(s.ctx, "u1", start, end)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 2)
	assert.Equal(s.T(), "2026-01-01", records[0].OccurredOn.Label())
	assert.Equal(s.T(), "2026-01-31", records[1].OccurredOn.Label())
}

func (s *SQLiteStoreSuite) TestMarkSyncedStoresRemoteID() {
	rec, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)

	items, err := s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 1)

	require.NoError(s.T(), s.store.MarkSynced(s.ctx, items[0], "abc123"))

	remoteID, err := s.store.RecordRemoteID(s.ctx, rec.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "abc123", remoteID)

	// Queue drained.
	items, err = s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), items)
}

func (s *SQLiteStoreSuite) TestDeleteEnqueuesRemoteDeleteOnlyWhenSynced() {
	rec, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)

	items, err := s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 1)
	require.NoError(s.T(), s.store.MarkSynced(s.ctx, items[0], "abc123"))

	require.NoError(s.T(), s.store.DeleteRecord(s.ctx, "u1", rec.ID))

	items, err = s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 1)
	assert.Equal(s.T(), OperationDelete, items[0].Operation)
	assert.Equal(s.T(), "abc123", items[0].RemoteID)

	// A record never synced produces no delete work.
	rec2, err := s.store.CreateRecord(s.ctx, s.record(300, core.NewDay(2026, 1, 6)))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.MarkSynced(s.ctx, mustDequeueOne(s), ""))
	require.NoError(s.T(), s.store.DeleteRecord(s.ctx, "u1", rec2.ID))

	items, err = s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), items)
}

func mustDequeueOne(s *SQLiteStoreSuite) SyncItem {
	items, err := s.store.DequeueSyncBatch(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), items, 1)
	return items[0]
}

func (s *SQLiteStoreSuite) TestMarkSyncErrorRetriesThenFails() {
	_, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)

	item := mustDequeueOne(s)
	require.NoError(s.T(), s.store.MarkSyncError(s.ctx, item, 3))

	// Back to pending, attempts carried forward.
	item = mustDequeueOne(s)
	assert.Equal(s.T(), 1, item.Attempts)

	require.NoError(s.T(), s.store.MarkSyncError(s.ctx, item, 2))

	items, err := s.store.DequeueSyncBatch(s.ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), items, "failed items must not be retried")
}

func (s *SQLiteStoreSuite) TestResetStaleProcessing() {
	_, err := s.store.CreateRecord(s.ctx, s.record(1200, core.NewDay(2026, 1, 5)))
	require.NoError(s.T(), err)
	mustDequeueOne(s)

	// Advance the clock past the staleness window.
	s.clock = s.clock.Add(10 * time.Minute)

	n, err := s.store.ResetStaleProcessing(s.ctx, 5*time.Minute)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)

	item := mustDequeueOne(s)
	assert.Equal(s.T(), OperationSync, item.Operation)
}

func (s *SQLiteStoreSuite) TestCategoriesCRUD() {
	cat, err := s.store.CreateCategory(s.ctx, core.Category{OwnerID: "u1", Name: "Groceries"})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), cat.ID)

	cat.Name = "Food"
	updated, err := s.store.UpdateCategory(s.ctx, cat)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Food", updated.Name)

	cats, err := s.store.Categories(s.ctx, "u1")
	require.NoError(s.T(), err)
	require.Len(s.T(), cats, 1)
	assert.Equal(s.T(), "Food", cats[0].Name)

	require.NoError(s.T(), s.store.DeleteCategory(s.ctx, "u1", cat.ID))
	cats, err = s.store.Categories(s.ctx, "u1")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), cats)
}

func (s *SQLiteStoreSuite) TestWatchRecordsSeesWrites() {
	jan := core.Month{Year: 2026, Month: time.January}
	start, end := jan.Bounds()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	snaps, err := s.store.WatchRecords(ctx, "u1", start, end)
	require.NoError(s.T(), err)

	first := <-snaps
	require.NoError(s.T(), first.Err)
	assert.Empty(s.T(), first.Records)

	_, err = s.store.CreateRecord(s.ctx, s.record(700, core.NewDay(2026, 1, 15)))
	require.NoError(s.T(), err)

	select {
	case snap := <-snaps:
		require.NoError(s.T(), snap.Err)
		assert.Len(s.T(), snap.Records, 1)
	case <-time.After(time.Second):
		s.T().Fatal("no snapshot after write")
	}
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}
