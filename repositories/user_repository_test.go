package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

func updateResponse(matched int32) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: matched},
	)
}

func countResponse(ns string, n int32) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestUserRepositoryGuardedSets(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	id := primitive.NewObjectID()
	value := primitive.NewObjectID()

	mt.Run("add changes the set", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(1))

		changed, err := repo.AddToSet(ctx, id, services.SetFollowers, value)
		require.NoError(mt, err)
		assert.True(mt, changed)
	})

	mt.Run("add of a present member is a no-op", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(updateResponse(0), countResponse(ns, 1))

		changed, err := repo.AddToSet(ctx, id, services.SetFollowers, value)
		require.NoError(mt, err)
		assert.False(mt, changed)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(updateResponse(0), countResponse(ns, 0))

		_, err := repo.Pull(ctx, id, services.SetFollowing, value)
		assert.ErrorIs(mt, err, services.ErrNotFound)
	})
}

func TestUserRepositoryTranslatesErrors(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("no document", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, services.ErrNotFound)
		assert.Equal(mt, userNotFound, services.MessageOf(err))
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_1",
		}))

		u := &models.User{Email: "ada@example.com"}
		err := repo.Create(ctx, u)
		assert.ErrorIs(mt, err, services.ErrConflict)
		assert.False(mt, u.ID.IsZero())
		assert.NotNil(mt, u.Followers)
	})

	mt.Run("found", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "firstName", Value: "Ada"},
			{Key: "email", Value: "ada@example.com"},
		}))

		u, err := repo.FindByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, "Ada", u.FirstName)
	})
}
