// Package sqlite implements the local offline store. Writes land here first
// and are mirrored to the remote document store by the sync worker through
// the queue in queue.go.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

const (
	dayLayout  = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

type Store struct {
	db  *sql.DB
	hub *store.Hub

	// now is swappable so tests get deterministic timestamps.
	now func() time.Time
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, hub: store.NewHub(), now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WithClock overrides the store's clock. Test helper.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

type recordRow struct {
	id         int64
	ownerID    string
	cents      int64
	categoryID string
	note       string
	occurredOn string
	paid       bool
	createdAt  string
	updatedAt  string
	remoteID   string
}

func (r recordRow) toRecord() core.Record {
	return core.Record{
		ID:         strconv.FormatInt(r.id, 10),
		OwnerID:    r.ownerID,
		Amount:     core.Money{Cents: r.cents},
		CategoryID: r.categoryID,
		Note:       r.note,
		OccurredOn: core.ParseDay(r.occurredOn),
		Paid:       r.paid,
		CreatedAt:  parseTime(r.createdAt),
		UpdatedAt:  parseTime(r.updatedAt),
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateRecord implements store.RecordStore and enqueues a sync operation
// in the same transaction.
func (s *Store) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (owner_id, amount_cents, category_id, note, occurred_on, paid, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, rec.Amount.Cents, rec.CategoryID, rec.Note,
		rec.OccurredOn.Format(dayLayout), rec.Paid, now, now)
	if err != nil {
		return core.Record{}, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Record{}, fmt.Errorf("last insert id: %w", err)
	}

	if err := enqueueTx(ctx, tx, id, rec.OwnerID, "", OperationSync, now); err != nil {
		return core.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Record{}, fmt.Errorf("commit: %w", err)
	}

	created := rec
	created.ID = strconv.FormatInt(id, 10)
	created.CreatedAt = parseTime(now)
	created.UpdatedAt = created.CreatedAt

	s.hub.Notify(rec.OwnerID)
	return created, nil
}

// UpdateRecord overwrites all user fields and refreshes updated_at.
func (s *Store) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	id, err := strconv.ParseInt(rec.ID, 10, 64)
	if err != nil {
		return core.Record{}, store.ErrNotFound
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE records SET amount_cents = ?, category_id = ?, note = ?, occurred_on = ?, paid = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		rec.Amount.Cents, rec.CategoryID, rec.Note, rec.OccurredOn.Format(dayLayout),
		rec.Paid, now, id, rec.OwnerID)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Record{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Record{}, store.ErrNotFound
	}

	if err := enqueueTx(ctx, tx, id, rec.OwnerID, "", OperationSync, now); err != nil {
		return core.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Record{}, fmt.Errorf("commit: %w", err)
	}

	s.hub.Notify(rec.OwnerID)
	return s.RecordByID(ctx, rec.OwnerID, rec.ID)
}

// DeleteRecord removes the row and enqueues a remote delete carrying the
// remote id captured before the row disappears.
func (s *Store) DeleteRecord(ctx context.Context, ownerID, id string) error {
	rid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return store.ErrNotFound
	}

	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var remoteID string
	err = tx.QueryRowContext(ctx,
		`SELECT remote_id FROM records WHERE id = ? AND owner_id = ?`, rid, ownerID,
	).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND owner_id = ?`, rid, ownerID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	if remoteID != "" {
		if err := enqueueTx(ctx, tx, rid, ownerID, remoteID, OperationDelete, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) RecordByID(ctx context.Context, ownerID, id string) (core.Record, error) {
	rid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.Record{}, store.ErrNotFound
	}

	var row recordRow
	err = s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, amount_cents, category_id, note, occurred_on, paid, created_at, updated_at, remote_id
		 FROM records WHERE id = ? AND owner_id = ?`, rid, ownerID,
	).Scan(&row.id, &row.ownerID, &row.cents, &row.categoryID, &row.note,
		&row.occurredOn, &row.paid, &row.createdAt, &row.updatedAt, &row.remoteID)
	if err == sql.ErrNoRows {
		return core.Record{}, store.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("find record: %w", err)
	}
	return row.toRecord(), nil
}

// RecordsInRange returns the owner's records with occurred_on in
// [start, end). The date column holds YYYY-MM-DD strings, so lexicographic
// comparison matches chronological order.
func (s *Store) RecordsInRange(ctx context.Context, ownerID string, start, end time.Time) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, amount_cents, category_id, note, occurred_on, paid, created_at, updated_at, remote_id
		 FROM records
		 WHERE owner_id = ? AND occurred_on >= ? AND occurred_on < ?
		 ORDER BY occurred_on, created_at`,
		ownerID, start.UTC().Format(dayLayout), end.UTC().Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(&row.id, &row.ownerID, &row.cents, &row.categoryID, &row.note,
			&row.occurredOn, &row.paid, &row.createdAt, &row.updatedAt, &row.remoteID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, row.toRecord())
	}
	return records, rows.Err()
}

// CreateCategory implements store.CategoryStore.
func (s *Store) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	now := s.now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (owner_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		cat.OwnerID, cat.Name, now, now)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}

	cat.ID = strconv.FormatInt(id, 10)
	cat.CreatedAt = parseTime(now)
	cat.UpdatedAt = cat.CreatedAt

	s.hub.Notify(cat.OwnerID)
	return cat, nil
}

func (s *Store) UpdateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	id, err := strconv.ParseInt(cat.ID, 10, 64)
	if err != nil {
		return core.Category{}, store.ErrNotFound
	}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	now := s.now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		cat.Name, now, id, cat.OwnerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Category{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Category{}, store.ErrNotFound
	}

	s.hub.Notify(cat.OwnerID)
	cat.UpdatedAt = parseTime(now)
	return cat, nil
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID, id string) error {
	cid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner_id = ?`, cid, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Categories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM categories
		 WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var (
			id                   int64
			owner, name          string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &owner, &name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, core.Category{
			ID:        strconv.FormatInt(id, 10),
			OwnerID:   owner,
			Name:      name,
			CreatedAt: parseTime(createdAt),
			UpdatedAt: parseTime(updatedAt),
		})
	}
	return cats, rows.Err()
}

// WatchRecords implements store.Watcher via the notification hub.
func (s *Store) WatchRecords(ctx context.Context, ownerID string, start, end time.Time) (<-chan store.Snapshot, error) {
	return store.WatchRange(ctx, s.hub, s, ownerID, start, end)
}
