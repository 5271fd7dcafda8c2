package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/testutil"
)

func TestCreateNotification(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	u := env.NewUser("Ada", "Lovelace")

	n, err := env.Notifications.Create(ctx, u.ID, "hello", "/posts/1")
	require.NoError(t, err)
	assert.Equal(t, models.StateUnread, n.State)
	assert.Equal(t, []primitive.ObjectID{n.ID}, env.DB.User(u.ID).Notifications)

	sent := env.Deliveries.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, n.ID, sent[0].ID)

	_, err = env.Notifications.Create(ctx, primitive.NewObjectID(), "nobody", "")
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.Len(t, env.Deliveries.Sent(), 1)
}

func TestCreateNotificationCleansUpWhenListingFails(t *testing.T) {
	env := testutil.NewEnv()
	u := env.NewUser("Ada", "Lovelace")

	env.DB.FailNext("users.AddToSet", testutil.ErrInjected)
	_, err := env.Notifications.Create(context.Background(), u.ID, "hello", "")
	require.Error(t, err)

	_, _, _, notifications := env.DB.Counts()
	assert.Zero(t, notifications)
	assert.Empty(t, env.DB.User(u.ID).Notifications)
	assert.Empty(t, env.Deliveries.Sent())
}

func TestDeliveryFailureDoesNotFailCreate(t *testing.T) {
	env := testutil.NewEnv()
	u := env.NewUser("Ada", "Lovelace")

	core, logs := observer.New(zapcore.DebugLevel)
	deliveries := &testutil.Deliveries{Err: errors.New("socket closed")}
	svc := services.NewNotificationService(env.DB.Notifications(), env.DB.Users(), env.Tx, zap.New(core), deliveries)

	n, err := svc.Create(context.Background(), u.ID, "hello", "")
	require.NoError(t, err)
	assert.NotNil(t, env.DB.Notification(n.ID))
	assert.Len(t, deliveries.Sent(), 1)

	entries := logs.FilterMessage("notification not delivered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, n.ID.Hex(), entries[0].ContextMap()["notificationId"])
}

func TestListNotificationsNewestFirst(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	for _, body := range []string{"one", "two", "three"} {
		_, err := env.Notifications.Create(ctx, a.ID, body, "")
		require.NoError(t, err)
	}
	_, err := env.Notifications.Create(ctx, b.ID, "other", "")
	require.NoError(t, err)

	mine, err := env.Notifications.ListForUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, "three", mine[0].Body)
	assert.Equal(t, "one", mine[2].Body)

	all, err := env.Notifications.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "other", all[0].Body)
}

func TestSetNotificationState(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")
	n, err := env.Notifications.Create(ctx, a.ID, "hello", "")
	require.NoError(t, err)

	_, err = env.Notifications.SetState(ctx, a.ID, n.ID, "archived")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = env.Notifications.SetState(ctx, b.ID, n.ID, models.StateRead)
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Equal(t, models.StateUnread, env.DB.Notification(n.ID).State)

	read, err := env.Notifications.SetState(ctx, a.ID, n.ID, models.StateRead)
	require.NoError(t, err)
	assert.Equal(t, models.StateRead, read.State)

	got, err := env.Notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRead, got.State)

	_, err = env.Notifications.SetState(ctx, a.ID, primitive.NewObjectID(), models.StateRead)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteNotification(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")
	n, err := env.Notifications.Create(ctx, a.ID, "hello", "")
	require.NoError(t, err)

	err = env.Notifications.Delete(ctx, b.ID, n.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	require.NoError(t, env.Notifications.Delete(ctx, a.ID, n.ID))
	assert.Nil(t, env.DB.Notification(n.ID))
	assert.Empty(t, env.DB.User(a.ID).Notifications)

	_, err = env.Notifications.GetByID(ctx, n.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteNotificationRestoresWhenUnlistFails(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	n, err := env.Notifications.Create(ctx, a.ID, "hello", "")
	require.NoError(t, err)

	env.DB.FailNext("users.Pull", testutil.ErrInjected)
	require.Error(t, env.Notifications.Delete(ctx, a.ID, n.ID))

	assert.NotNil(t, env.DB.Notification(n.ID))
	assert.Equal(t, []primitive.ObjectID{n.ID}, env.DB.User(a.ID).Notifications)
}
