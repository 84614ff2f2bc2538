// Package mongostore keeps cart lines in MongoDB, one document per (owner, product).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartRepository struct {
	collection *mongo.Collection
}

var _ repository.CartRepository = (*CartRepository)(nil)

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		collection: db.Collection("cart_items"),
	}
}

func (m *CartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (m *CartRepository) ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart lines: %w", err)
	}

	var lines []domain.CartLine
	if err := cur.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}
	return lines, nil
}

func (m *CartRepository) CountLines(ctx context.Context, ownerID string) (int, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}
	return int(n), nil
}

func (m *CartRepository) GetLine(ctx context.Context, ownerID, lineID string) (*domain.CartLine, error) {
	var line domain.CartLine
	err := m.collection.FindOne(ctx, bson.M{"_id": lineID, "owner_id": ownerID}).Decode(&line)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrCartLineNotFound
		}
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	return &line, nil
}

// AddQuantity is a single upsert. The quantity predicate only matches a line with room left under
// the ceiling; a full line fails the match, the upsert collides with the unique index and the
// duplicate key is reported as ErrStockCeiling.
func (m *CartRepository) AddQuantity(ctx context.Context, line *domain.CartLine, ceiling int32) (*domain.CartLine, error) {
	if line.Quantity > ceiling {
		return nil, repository.ErrStockCeiling
	}

	filter := bson.M{
		"owner_id":   line.OwnerID,
		"product_id": line.ProductID,
		"quantity":   bson.M{"$lte": ceiling - line.Quantity},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": line.Quantity},
		"$set": bson.M{"updated_at": line.UpdatedAt},
		"$setOnInsert": bson.M{
			"_id":        line.ID,
			"created_at": line.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved domain.CartLine
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrStockCeiling
		}
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return &saved, nil
}

func (m *CartRepository) SetQuantity(ctx context.Context, ownerID, lineID string, quantity, ceiling int32, at time.Time) error {
	if quantity > ceiling {
		return repository.ErrStockCeiling
	}

	update := bson.M{"$set": bson.M{"quantity": quantity, "updated_at": at}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": lineID, "owner_id": ownerID}, update)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return repository.ErrCartLineNotFound
	}
	return nil
}

func (m *CartRepository) DeleteLines(ctx context.Context, ownerID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	filter := bson.M{"owner_id": ownerID, "_id": bson.M{"$in": lineIDs}}
	if _, err := m.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to remove items: %w", err)
	}
	return nil
}

func (m *CartRepository) ClearLines(ctx context.Context, ownerID string) error {
	if _, err := m.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
