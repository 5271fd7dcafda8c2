package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/nestfire_backend/services"
)

// translate maps driver errors onto service error kinds
func translate(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return services.NotFound(notFoundMsg)
	case mongo.IsDuplicateKeyError(err):
		return services.Conflict("Email already in use")
	default:
		return err
	}
}

// decodeAll drains a cursor into a slice that is never nil
func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	return out, nil
}

// exists reports whether a document with id is present
func exists(ctx context.Context, coll *mongo.Collection, id interface{}) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// unchanged applies update only while the document still carries updatedAt, so a write
// that landed after the caller's read wins. updatedAt itself is left as it was.
func unchanged(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, updatedAt time.Time, filter, update bson.M) (bool, error) {
	match := bson.M{"_id": id, "updatedAt": updatedAt}
	for k, v := range filter {
		match[k] = v
	}
	res, err := coll.UpdateOne(ctx, match, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func scan[T any](ctx context.Context, coll *mongo.Collection, fn func(*T) error) error {
	cur, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if err := fn(&doc); err != nil {
			return err
		}
	}
	return cur.Err()
}
