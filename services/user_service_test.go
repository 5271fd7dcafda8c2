package services_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/security"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
	"github.com/HSouheill/nestfire_backend/testutil"
)

func strPtr(s string) *string { return &s }

func pngFile(t *testing.T, name string, width int) *storage.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, 10))))
	return &storage.File{Name: name, Data: buf.Bytes()}
}

func TestUpdateProfile(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")
	b := env.NewUser("Bob", "Babbage")

	_, err := env.Users.UpdateProfile(ctx, b.ID, a.ID, &models.UpdateProfileRequest{Bio: strPtr("mine now")}, nil)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{}, nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{Email: strPtr(b.Email)}, nil)
	assert.ErrorIs(t, err, services.ErrConflict)

	updated, err := env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{
		Bio:      strPtr("first programmer"),
		Email:    strPtr("ada@example.com"),
		Password: strPtr("a new secret"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "first programmer", updated.Bio)
	assert.Equal(t, "ada@example.com", updated.Email)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.True(t, security.CheckPassword("a new secret", env.DB.User(a.ID).Password))

	// the unchanged own address is not a conflict
	_, err = env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{Email: strPtr("ada@example.com")}, nil)
	require.NoError(t, err)
}

func TestUpdateProfileImageReplacesOldOne(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")

	first, err := env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{}, pngFile(t, "me.png", 800))
	require.NoError(t, err)
	require.NotNil(t, first.ProfileImage)
	oldID := first.ProfileImage.PublicID
	assert.True(t, env.Store.Has(oldID))

	second, err := env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{}, pngFile(t, "me2.png", 100))
	require.NoError(t, err)
	assert.NotEqual(t, oldID, second.ProfileImage.PublicID)
	assert.False(t, env.Store.Has(oldID))
	assert.True(t, env.Store.Has(second.ProfileImage.PublicID))
	assert.Equal(t, 1, env.Store.Len())

	_, err = env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{}, &storage.File{Name: "clip.mp4", Data: []byte("mp4")})
	assert.ErrorIs(t, err, services.ErrValidation)

	env.DB.FailNext("users.Update", testutil.ErrInjected)
	_, err = env.Users.UpdateProfile(ctx, a.ID, a.ID, &models.UpdateProfileRequest{}, pngFile(t, "me3.png", 100))
	require.Error(t, err)
	assert.Equal(t, 1, env.Store.Len())
	assert.Equal(t, second.ProfileImage.PublicID, env.DB.User(a.ID).ProfileImage.PublicID)
}

func TestSearch(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	env.NewUser("Ada", "Lovelace")
	env.NewUser("Adam", "Smith")
	hidden := env.NewUser("Adele", "Adkins")
	env.DB.MutateUser(hidden.ID, func(u *models.User) { u.AccountPrivacy = models.PrivacyPrivate })
	env.NewUser("a.b", "Dot")

	found, err := env.Users.Search(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Ada", found[0].FirstName)
	assert.Equal(t, "Adam", found[1].FirstName)

	// the pattern is literal
	found, err = env.Users.Search(ctx, "a.b")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dot", found[0].LastName)

	found, err = env.Users.Search(ctx, "(")
	require.NoError(t, err)
	assert.Empty(t, found)

	for i := 0; i < 12; i++ {
		env.NewUser("Zed", "Z")
	}
	found, err = env.Users.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, services.SearchLimit)
}

func TestDeleteAccount(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	gone := env.NewUser("Gone", "Girl")
	fan := env.NewUser("Fan", "Boy")
	idol := env.NewUser("Idol", "Star")
	post := env.NewPost(idol.ID, "hit")

	_, err := env.Follows.SetFollow(ctx, fan.ID, gone.ID, services.FollowAdd)
	require.NoError(t, err)
	_, err = env.Follows.SetFollow(ctx, gone.ID, idol.ID, services.FollowAdd)
	require.NoError(t, err)
	_, err = env.Posts.SetLike(ctx, gone.ID, post.ID, true)
	require.NoError(t, err)
	own := env.NewPost(gone.ID, "kept")

	err = env.Users.DeleteAccount(ctx, fan.ID, gone.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	require.NoError(t, env.Users.DeleteAccount(ctx, gone.ID, gone.ID))

	assert.Nil(t, env.DB.User(gone.ID))
	assert.Empty(t, env.DB.User(fan.ID).Following)
	assert.Empty(t, env.DB.User(idol.ID).Followers)
	assert.Zero(t, env.DB.Post(post.ID).Likes)
	assert.NotNil(t, env.DB.Post(own.ID))
	for _, n := range env.Deliveries.Sent() {
		if n.UserID == gone.ID {
			assert.Nil(t, env.DB.Notification(n.ID))
		}
	}

	_, err = env.Users.GetByID(ctx, gone.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteAccountRollsBack(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	gone := env.NewUser("Gone", "Girl")
	fan := env.NewUser("Fan", "Boy")
	post := env.NewPost(fan.ID, "hit")

	_, err := env.Follows.SetFollow(ctx, fan.ID, gone.ID, services.FollowAdd)
	require.NoError(t, err)
	_, err = env.Posts.SetLike(ctx, gone.ID, post.ID, true)
	require.NoError(t, err)

	env.DB.FailNext("notifications.DeleteByUser", testutil.ErrInjected)
	require.Error(t, env.Users.DeleteAccount(ctx, gone.ID, gone.ID))

	restored := env.DB.User(gone.ID)
	require.NotNil(t, restored)
	assert.Equal(t, []primitive.ObjectID{fan.ID}, restored.Followers)
	assert.Equal(t, []primitive.ObjectID{gone.ID}, env.DB.User(fan.ID).Following)
	assert.Equal(t, 1, env.DB.Post(post.ID).Likes)
}

func TestSetPushToken(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a := env.NewUser("Ada", "Lovelace")

	require.NoError(t, env.Users.SetPushToken(ctx, a.ID, "  device-1 "))
	assert.Equal(t, "device-1", env.DB.User(a.ID).FCMToken)

	err := env.Users.SetPushToken(ctx, primitive.NewObjectID(), "x")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
