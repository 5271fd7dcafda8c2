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
)

const commentNotFound = "Comment not found"

// CommentRepository stores comments with their embedded replies
type CommentRepository struct {
	collection *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	return &CommentRepository{collection: db.Collection(config.CommentsCollection)}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	if comment.Replies == nil {
		comment.Replies = []models.Reply{}
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

func (r *CommentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, translate(err, commentNotFound)
	}
	return &comment, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.collection.Find(ctx, bson.M{"post": postID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Comment](ctx, cur)
}

func (r *CommentRepository) IDsByPost(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.collection.Find(ctx, bson.M{"post": postID}, opts)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[models.Comment](ctx, cur)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (r *CommentRepository) UpdateBody(ctx context.Context, id primitive.ObjectID, body string) (*models.Comment, error) {
	return r.findAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"body": body, "updatedAt": time.Now().UTC()}})
}

func (r *CommentRepository) AddReply(ctx context.Context, id primitive.ObjectID, reply models.Reply) (*models.Comment, error) {
	return r.findAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$push": bson.M{"replies": reply}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
}

func (r *CommentRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*models.Comment, error) {
	var comment models.Comment
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&comment); err != nil {
		return nil, translate(err, commentNotFound)
	}
	return &comment, nil
}

func (r *CommentRepository) PullReply(ctx context.Context, id, replyID, ownerID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":     id,
		"replies": bson.M{"$elemMatch": bson.M{"_id": replyID, "user": ownerID}},
	}
	update := bson.M{
		"$pull": bson.M{"replies": bson.M{"_id": replyID, "user": ownerID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *CommentRepository) DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
