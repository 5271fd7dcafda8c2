package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
)

// lastUpdate returns the filter and update document of the last update command sent
func lastUpdate(mt *mtest.T) (filter, update bson.Raw) {
	evt := mt.GetStartedEvent()
	require.NotNil(mt, evt)
	require.Equal(mt, "update", evt.CommandName)
	statements, err := evt.Command.Lookup("updates").Array().Values()
	require.NoError(mt, err)
	require.Len(mt, statements, 1)
	stmt := statements[0].Document()
	return stmt.Lookup("q").Document(), stmt.Lookup("u").Document()
}

func TestGuardedRepairWrites(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	post := &models.Post{ID: primitive.NewObjectID(), Likes: 7, UpdatedAt: seen}
	user := &models.User{ID: primitive.NewObjectID(), UpdatedAt: seen}
	other := primitive.NewObjectID()

	mt.Run("like counter written while unchanged", func(mt *mtest.T) {
		repo := &PostRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(1))

		ok, err := repo.SetLikes(ctx, post, 1)
		require.NoError(mt, err)
		assert.True(mt, ok)

		filter, update := lastUpdate(mt)
		assert.True(mt, filter.Lookup("updatedAt").Time().Equal(seen))
		assert.Equal(mt, int64(1), update.Lookup("$set", "likes").AsInt64())
		_, err = update.LookupErr("$set", "updatedAt")
		assert.Error(mt, err, "repairs keep updatedAt")
	})

	mt.Run("like counter left alone after a later write", func(mt *mtest.T) {
		repo := &PostRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(0))

		ok, err := repo.SetLikes(ctx, post, 1)
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("half edge pulled only while unchanged", func(mt *mtest.T) {
		repo := &UserRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(0))

		ok, err := repo.PullIfUnchanged(ctx, user, services.SetFollowing, other)
		require.NoError(mt, err)
		assert.False(mt, ok)

		filter, update := lastUpdate(mt)
		assert.True(mt, filter.Lookup("updatedAt").Time().Equal(seen))
		assert.Equal(mt, other, filter.Lookup("following").ObjectID())
		assert.Equal(mt, other, update.Lookup("$pull", "following").ObjectID())
	})

	mt.Run("touch stamps the post", func(mt *mtest.T) {
		repo := &PostRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(1))

		require.NoError(mt, repo.Touch(ctx, post.ID))
		_, update := lastUpdate(mt)
		assert.False(mt, update.Lookup("$set", "updatedAt").Time().IsZero())
	})

	mt.Run("touch of a missing post", func(mt *mtest.T) {
		repo := &PostRepository{collection: mt.Coll}
		mt.AddMockResponses(updateResponse(0))

		assert.ErrorIs(mt, repo.Touch(ctx, post.ID), services.ErrNotFound)
	})
}
