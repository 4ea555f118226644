// Package mongo implements the record store against the managed document
// database. Collections are owner-scoped on every query; live queries are
// driven by change streams.
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
)

const (
	recordsCollection    = "records"
	categoriesCollection = "categories"

	queryTimeout = 10 * time.Second
)

type Store struct {
	db *mongo.Database

	// now is swappable so tests get deterministic timestamps.
	now func() time.Time
}

// Connect dials the document store and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &Store{db: client.Database(database), now: time.Now}
	cleanup := func() error {
		return client.Disconnect(context.Background())
	}
	return store, cleanup, nil
}

// recordDoc is the wire shape of a record. Field types are deliberately
// loose: amount is the store's decimal number, occurred_on a plain date
// string, paid optional because older documents never carried it. Decoding
// runs through the core's total converters so a malformed field degrades to
// a safe default instead of failing the whole snapshot.
type recordDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID    string             `bson:"owner_id"`
	Amount     float64            `bson:"amount"`
	CategoryID string             `bson:"category_id"`
	Note       string             `bson:"note,omitempty"`
	OccurredOn string             `bson:"occurred_on"`
	Paid       *bool              `bson:"paid,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

type categoryDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID   string             `bson:"owner_id"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d recordDoc) toRecord() core.Record {
	paid := false
	if d.Paid != nil {
		paid = *d.Paid
	}
	return core.Record{
		ID:         d.ID.Hex(),
		OwnerID:    d.OwnerID,
		Amount:     core.AmountFromFloat(d.Amount),
		CategoryID: d.CategoryID,
		Note:       d.Note,
		OccurredOn: core.ParseDay(d.OccurredOn),
		Paid:       paid,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (d categoryDoc) toCategory() core.Category {
	return core.Category{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func ownerFilter(ownerID string, id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID}
}
