package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// CreateCategory implements store.CategoryStore. Name uniqueness per owner
// is intentionally not enforced.
func (s *Store) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	now := s.now().UTC()
	doc := categoryDoc{
		ID:        primitive.NewObjectID(),
		OwnerID:   cat.OwnerID,
		Name:      cat.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.Collection(categoriesCollection).InsertOne(ctx, doc); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return doc.toCategory(), nil
}

func (s *Store) UpdateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	id, err := primitive.ObjectIDFromHex(cat.ID)
	if err != nil {
		return core.Category{}, store.ErrNotFound
	}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	update := bson.M{"$set": bson.M{
		"name":       cat.Name,
		"updated_at": s.now().UTC(),
	}}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var updated categoryDoc
	err = s.db.Collection(categoriesCollection).FindOneAndUpdate(
		ctx,
		ownerFilter(cat.OwnerID, id),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return core.Category{}, store.ErrNotFound
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated.toCategory(), nil
}

// DeleteCategory removes the category document only; records referencing it
// are left in place and resolve to "Unknown" at aggregation time.
func (s *Store) DeleteCategory(ctx context.Context, ownerID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.Collection(categoriesCollection).DeleteOne(ctx, ownerFilter(ownerID, oid))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Categories(ctx context.Context, ownerID string) ([]core.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.db.Collection(categoriesCollection).Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	cats := make([]core.Category, len(docs))
	for i, doc := range docs {
		cats[i] = doc.toCategory()
	}
	return cats, nil
}
