package services_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/testutil"
)

func countID(ids []primitive.ObjectID, id primitive.ObjectID) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}

func TestSetFollowAddTwiceIsIdempotent(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	first, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowAdd)
	require.NoError(t, err)
	second, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowAdd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, countID(env.DB.User(b.ID).Followers, a.ID))
	assert.Equal(t, 1, countID(env.DB.User(a.ID).Following, b.ID))

	// only the new edge notifies
	sent := env.Deliveries.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Ada Lovelace started following you.", sent[0].Body)
	assert.Equal(t, "/user/"+a.ID.Hex(), sent[0].Link)
	assert.Equal(t, b.ID, sent[0].UserID)
	assert.Equal(t, []primitive.ObjectID{sent[0].ID}, env.DB.User(b.ID).Notifications)
}

func TestSetFollowRemove(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	_, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowAdd)
	require.NoError(t, err)

	res, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowRemove)
	require.NoError(t, err)
	assert.Empty(t, res.Followers)
	assert.Empty(t, res.Following)

	// removing a missing edge is not an error
	_, err = env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowRemove)
	require.NoError(t, err)
	assert.Empty(t, env.DB.User(b.ID).Followers)
	assert.Empty(t, env.DB.User(a.ID).Following)
}

func TestSetFollowRejectsBadInput(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")

	_, err := env.Follows.SetFollow(ctx, a.ID, primitive.NewObjectID(), "poke")
	assert.Equal(t, services.KindValidation, services.KindOf(err))

	_, err = env.Follows.SetFollow(ctx, a.ID, a.ID, services.FollowAdd)
	assert.Equal(t, services.KindValidation, services.KindOf(err))

	_, err = env.Follows.SetFollow(ctx, a.ID, primitive.NewObjectID(), services.FollowAdd)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSetFollowRollsBackFirstSide(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	env.DB.FailNext("users.AddToSet", nil)
	env.DB.FailNext("users.AddToSet", testutil.ErrInjected)

	_, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowAdd)
	require.Error(t, err)
	assert.Equal(t, services.KindInternal, services.KindOf(err))

	assert.Empty(t, env.DB.User(b.ID).Followers)
	assert.Empty(t, env.DB.User(a.ID).Following)
	_, _, _, notifications := env.DB.Counts()
	assert.Zero(t, notifications)
	assert.Empty(t, env.Deliveries.Sent())
}

func TestSetFollowRollsBackWhenNotificationFails(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	env.DB.FailNext("notifications.Create", testutil.ErrInjected)

	_, err := env.Follows.SetFollow(ctx, a.ID, b.ID, services.FollowAdd)
	require.Error(t, err)
	assert.Empty(t, env.DB.User(b.ID).Followers)
	assert.Empty(t, env.DB.User(a.ID).Following)
}

func TestSetFollowKeepsMirrorInvariant(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	users := []*models.User{
		env.NewUser("A", "One"), env.NewUser("B", "Two"),
		env.NewUser("C", "Three"), env.NewUser("D", "Four"),
	}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		actor := users[rng.Intn(len(users))]
		target := users[rng.Intn(len(users))]
		if actor.ID == target.ID {
			continue
		}
		action := services.FollowAdd
		if rng.Intn(2) == 0 {
			action = services.FollowRemove
		}
		_, err := env.Follows.SetFollow(ctx, actor.ID, target.ID, action)
		require.NoError(t, err)
	}

	for _, u := range users {
		stored := env.DB.User(u.ID)
		for _, v := range users {
			other := env.DB.User(v.ID)
			assert.Equal(t,
				models.ContainsID(stored.Following, v.ID),
				models.ContainsID(other.Followers, u.ID),
				"%s -> %s", u.FirstName, v.FirstName)
			assert.LessOrEqual(t, countID(stored.Following, v.ID), 1)
		}
	}
}
