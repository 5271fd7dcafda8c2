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

const userNotFound = "User not found"

// UserRepository stores users in the users collection
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(config.UsersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	normalizeSets(user)

	_, err := r.collection.InsertOne(ctx, user)
	return translate(err, userNotFound)
}

// normalizeSets replaces nil id sets with empty arrays so $addToSet applies
func normalizeSets(user *models.User) {
	for _, set := range []*[]primitive.ObjectID{&user.Posts, &user.Notifications, &user.Following, &user.Followers, &user.PostsLike} {
		if *set == nil {
			*set = []primitive.ObjectID{}
		}
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, userNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err, userNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (r *UserRepository) Search(ctx context.Context, pattern string, excludePrivate bool, limit int) ([]models.User, error) {
	filter := bson.M{}
	if pattern != "" {
		regex := primitive.Regex{Pattern: pattern, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"firstName": regex},
			bson.M{"lastName": regex},
		}
	}
	if excludePrivate {
		filter["accountPrivacy"] = bson.M{"$ne": models.PrivacyPrivate}
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"password": 0, "fcmToken": 0}).
		SetSort(bson.D{{Key: "firstName", Value: 1}, {Key: "lastName", Value: 1}})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, changes services.UserChanges) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	fields := map[string]*string{
		"firstName":      changes.FirstName,
		"lastName":       changes.LastName,
		"status":         changes.Status,
		"bio":            changes.Bio,
		"email":          changes.Email,
		"phone":          changes.Phone,
		"password":       changes.Password,
		"accountPrivacy": changes.AccountPrivacy,
	}
	for key, value := range fields {
		if value != nil {
			set[key] = *value
		}
	}
	if changes.ProfileImage != nil {
		set["profileImage"] = changes.ProfileImage
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translate(err, userNotFound)
	}
	return &user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// AddToSet adds value only while it is absent. The filter makes the membership
// decision atomic, so two concurrent calls can not both report a change.
func (r *UserRepository) AddToSet(ctx context.Context, id primitive.ObjectID, set services.UserSet, value primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, string(set): bson.M{"$ne": value}}
	update := bson.M{
		"$addToSet": bson.M{string(set): value},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.guardedUpdate(ctx, id, filter, update)
}

// Pull removes value only while it is present
func (r *UserRepository) Pull(ctx context.Context, id primitive.ObjectID, set services.UserSet, value primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, string(set): value}
	update := bson.M{
		"$pull": bson.M{string(set): value},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.guardedUpdate(ctx, id, filter, update)
}

func (r *UserRepository) guardedUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (bool, error) {
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
		return false, services.NotFound(userNotFound)
	}
	return false, nil
}

func (r *UserRepository) PullFromAll(ctx context.Context, set services.UserSet, value primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{string(set): value}
	cur, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[struct {
		ID primitive.ObjectID `bson:"_id"`
	}](ctx, cur)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	_, err = r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$pull": bson.M{string(set): value}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepository) ReplaceSet(ctx context.Context, seen *models.User, set services.UserSet, values []primitive.ObjectID) (bool, error) {
	if values == nil {
		values = []primitive.ObjectID{}
	}
	return unchanged(ctx, r.collection, seen.ID, seen.UpdatedAt, nil, bson.M{"$set": bson.M{string(set): values}})
}

func (r *UserRepository) PullIfUnchanged(ctx context.Context, seen *models.User, set services.UserSet, value primitive.ObjectID) (bool, error) {
	return unchanged(ctx, r.collection, seen.ID, seen.UpdatedAt, bson.M{string(set): value}, bson.M{"$pull": bson.M{string(set): value}})
}

func (r *UserRepository) CountWithMember(ctx context.Context, set services.UserSet, value primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{string(set): value})
}

func (r *UserRepository) SetPushToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return services.NotFound(userNotFound)
	}
	return nil
}

func (r *UserRepository) Scan(ctx context.Context, fn func(*models.User) error) error {
	return scan(ctx, r.collection, fn)
}
