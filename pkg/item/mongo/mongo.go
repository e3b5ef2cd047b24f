// Package mongo persists items as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopmart/pkg/item"
)

// Collection is the name of the items collection.
const Collection = "items"

// Repository persists items in MongoDB.
type Repository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New creates a MongoDB repository using database on client.
func New(client *mongo.Client, database string) *Repository {
	return &Repository{
		client: client,
		coll:   client.Database(database).Collection(Collection),
	}
}

// EnsureIndexes creates the unique index on the item id.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create id index: %w", err)
	}
	return nil
}

// Create inserts a new item document.
func (r *Repository) Create(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	if _, err := r.coll.InsertOne(ctx, it); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return item.ErrAlreadyExists
		}
		return fmt.Errorf("coll.InsertOne: %w", err)
	}
	return nil
}

// Get retrieves an item by ID.
func (r *Repository) Get(ctx context.Context, id string) (item.Item, error) {
	var it item.Item
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&it)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return item.Item{}, item.ErrNotFound
	}
	if err != nil {
		return item.Item{}, fmt.Errorf("coll.FindOne: %w", err)
	}
	return it, nil
}

// List fetches all items ordered by ID.
func (r *Repository) List(ctx context.Context) ([]item.Item, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("coll.Find: %w", err)
	}

	items := []item.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("cursor.All: %w", err)
	}
	return items, nil
}

// Update replaces the mutable fields of an existing item.
func (r *Repository) Update(ctx context.Context, it item.Item) error {
	if err := item.Validate(it); err != nil {
		return err
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": it.ID}, bson.M{"$set": bson.M{
		"itemName":    it.ItemName,
		"description": it.Description,
		"stock":       it.Stock,
		"price":       it.Price,
		"category":    it.Category,
	}})
	if err != nil {
		return fmt.Errorf("coll.UpdateOne: %w", err)
	}
	if res.MatchedCount == 0 {
		return item.ErrNotFound
	}
	return nil
}

// Delete removes an item by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("coll.DeleteOne: %w", err)
	}
	if res.DeletedCount == 0 {
		return item.ErrNotFound
	}
	return nil
}

// DecrementStock runs every guarded $inc inside one multi-document
// transaction. Transactions need a replica set or sharded cluster.
func (r *Repository) DecrementStock(ctx context.Context, decrements []item.Decrement) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("client.StartSession: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, r.applyDecrements(sc, decrements)
	})
	return err
}

// applyDecrements issues one guarded update per decrement and stops at the
// first guard that does not match.
func (r *Repository) applyDecrements(ctx context.Context, decrements []item.Decrement) error {
	for _, d := range decrements {
		if d.Quantity < 1 {
			return fmt.Errorf("%w: quantity %d for %s", item.ErrInvalid, d.Quantity, d.ID)
		}
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"id": d.ID, "stock": bson.M{"$gte": d.Quantity}},
			bson.M{"$inc": bson.M{"stock": -d.Quantity}},
		)
		if err != nil {
			return fmt.Errorf("decrement %s: %w", d.ID, err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("decrement %s: %w", d.ID, item.ErrInsufficientStock)
		}
	}
	return nil
}
