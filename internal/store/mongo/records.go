package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

const dayLayout = "2006-01-02"

// CreateRecord implements store.RecordStore.
func (s *Store) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	now := s.now().UTC()
	paid := rec.Paid
	doc := recordDoc{
		ID:         primitive.NewObjectID(),
		OwnerID:    rec.OwnerID,
		Amount:     rec.Amount.Units(),
		CategoryID: rec.CategoryID,
		Note:       rec.Note,
		OccurredOn: rec.OccurredOn.Format(dayLayout),
		Paid:       &paid,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.Collection(recordsCollection).InsertOne(ctx, doc); err != nil {
		return core.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return doc.toRecord(), nil
}

// UpdateRecord overwrites every user field and refreshes updated_at.
// created_at and owner_id are never part of the update document.
func (s *Store) UpdateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	id, err := primitive.ObjectIDFromHex(rec.ID)
	if err != nil {
		return core.Record{}, store.ErrNotFound
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	paid := rec.Paid
	update := bson.M{"$set": bson.M{
		"amount":      rec.Amount.Units(),
		"category_id": rec.CategoryID,
		"note":        rec.Note,
		"occurred_on": rec.OccurredOn.Format(dayLayout),
		"paid":        &paid,
		"updated_at":  s.now().UTC(),
	}}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var updated recordDoc
	err = s.db.Collection(recordsCollection).FindOneAndUpdate(
		ctx,
		ownerFilter(rec.OwnerID, id),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Record{}, store.ErrNotFound
		}
		return core.Record{}, fmt.Errorf("update record: %w", err)
	}
	return updated.toRecord(), nil
}

func (s *Store) DeleteRecord(ctx context.Context, ownerID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.Collection(recordsCollection).DeleteOne(ctx, ownerFilter(ownerID, oid))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RecordByID(ctx context.Context, ownerID, id string) (core.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.Record{}, store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc recordDoc
	err = s.db.Collection(recordsCollection).FindOne(ctx, ownerFilter(ownerID, oid)).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Record{}, store.ErrNotFound
		}
		return core.Record{}, fmt.Errorf("find record: %w", err)
	}
	return doc.toRecord(), nil
}

// RecordsInRange returns the owner's records with occurred_on in
// [start, end). Dates are stored as YYYY-MM-DD strings, which order
// lexicographically the same as chronologically.
func (s *Store) RecordsInRange(ctx context.Context, ownerID string, start, end time.Time) ([]core.Record, error) {
	filter := bson.M{
		"owner_id": ownerID,
		"occurred_on": bson.M{
			"$gte": start.UTC().Format(dayLayout),
			"$lt":  end.UTC().Format(dayLayout),
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_on", Value: 1}, {Key: "created_at", Value: 1}})

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.db.Collection(recordsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}

	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]core.Record, len(docs))
	for i, doc := range docs {
		records[i] = doc.toRecord()
	}
	return records, nil
}
