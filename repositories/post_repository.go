package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/nestfire_backend/config"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

const postNotFound = "Post not found"

// PostRepository stores posts in the posts collection
type PostRepository struct {
	collection *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{collection: db.Collection(config.PostsCollection)}
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Media == nil {
		post.Media = []models.MediaRef{}
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Comments == nil {
		post.Comments = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

func (r *PostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, translate(err, postNotFound)
	}
	return &post, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *PostRepository) List(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	return r.find(ctx, bson.M{}, skip, limit)
}

func (r *PostRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Post, error) {
	return r.find(ctx, bson.M{"user": userID}, skip, limit)
}

func (r *PostRepository) find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(skip).SetLimit(limit)
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Post](ctx, cur)
}

func (r *PostRepository) IDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := r.collection.Find(ctx, bson.M{"user": userID},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[models.Post](ctx, cur)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (r *PostRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *PostRepository) IncLikes(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.updateOne(ctx, id, bson.M{"$inc": bson.M{"likes": delta}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (r *PostRepository) Touch(ctx context.Context, id primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (r *PostRepository) SetLikes(ctx context.Context, seen *models.Post, likes int) (bool, error) {
	return unchanged(ctx, r.collection, seen.ID, seen.UpdatedAt, nil, bson.M{"$set": bson.M{"likes": likes}})
}

func (r *PostRepository) SetComments(ctx context.Context, seen *models.Post, ids []primitive.ObjectID) (bool, error) {
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return unchanged(ctx, r.collection, seen.ID, seen.UpdatedAt, nil, bson.M{"$set": bson.M{"comments": ids}})
}

func (r *PostRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.NotFound(postNotFound)
	}
	return nil
}

func (r *PostRepository) AddComment(ctx context.Context, id, commentID primitive.ObjectID) (bool, error) {
	return r.guarded(ctx, id,
		bson.M{"_id": id, "comments": bson.M{"$ne": commentID}},
		bson.M{"$push": bson.M{"comments": commentID}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (r *PostRepository) PullComment(ctx context.Context, id, commentID primitive.ObjectID) (bool, error) {
	return r.guarded(ctx, id,
		bson.M{"_id": id, "comments": commentID},
		bson.M{"$pull": bson.M{"comments": commentID}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (r *PostRepository) guarded(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	found, err := exists(ctx, r.collection, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, services.NotFound(postNotFound)
	}
	return false, nil
}

func (r *PostRepository) Scan(ctx context.Context, fn func(*models.Post) error) error {
	return scan(ctx, r.collection, fn)
}
