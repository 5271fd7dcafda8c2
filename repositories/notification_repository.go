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

const notificationNotFound = "Notification not found"

// NotificationRepository stores notifications
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection(config.NotificationsCollection)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.State == "" {
		n.State = models.StateUnread
	}
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, translate(err, notificationNotFound)
	}
	return &n, nil
}

func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	return r.find(ctx, bson.M{})
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *NotificationRepository) find(ctx context.Context, filter bson.M) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Notification](ctx, cur)
}

func (r *NotificationRepository) SetState(ctx context.Context, id primitive.ObjectID, state string) (*models.Notification, error) {
	var n models.Notification
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"state": state, "updatedAt": time.Now().UTC()}}
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&n); err != nil {
		return nil, translate(err, notificationNotFound)
	}
	return &n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByUser removes every notification of a recipient and returns what it removed
func (r *NotificationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	removed, err := r.find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return removed, nil
	}
	ids := make([]primitive.ObjectID, len(removed))
	for i, n := range removed {
		ids[i] = n.ID
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return removed, nil
}
