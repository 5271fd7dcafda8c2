package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/security"
	"github.com/HSouheill/nestfire_backend/storage"
)

// SearchLimit caps the profiles returned by Search
const SearchLimit = 10

// UserService manages profiles and account deletion
type UserService struct {
	users         UserRepository
	posts         PostRepository
	notifications NotificationRepository
	tx            Transactor
	media         *storage.Media
	bcryptCost    int
	logger        *zap.Logger
}

func NewUserService(users UserRepository, posts PostRepository, notifications NotificationRepository, tx Transactor, media *storage.Media, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		users:         users,
		posts:         posts,
		notifications: notifications,
		tx:            tx,
		media:         media,
		bcryptCost:    bcryptCost,
		logger:        logger.Named("users"),
	}
}

func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, Wrap(err, "find user")
	}
	return user, nil
}

// Search matches name literally against first and last names. Private accounts are
// hidden when a name is given.
func (s *UserService) Search(ctx context.Context, name string) ([]models.User, error) {
	name = strings.TrimSpace(name)
	pattern := ""
	if name != "" {
		pattern = regexp.QuoteMeta(name)
	}
	users, err := s.users.Search(ctx, pattern, name != "", SearchLimit)
	if err != nil {
		return nil, Wrap(err, "search users")
	}
	return users, nil
}

// UpdateProfile applies a partial update on the caller's own profile. A new image
// replaces the stored one, which is deleted once the update is saved.
func (s *UserService) UpdateProfile(ctx context.Context, actingID, targetID primitive.ObjectID, req *models.UpdateProfileRequest, image *storage.File) (*models.User, error) {
	if actingID != targetID {
		return nil, Forbidden("you can't update profile of others")
	}
	if req.Empty() && image == nil {
		return nil, Invalid("No fields to update")
	}

	current, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, Wrap(err, "find user")
	}

	changes := UserChanges{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Status:         req.Status,
		Bio:            req.Bio,
		Phone:          req.Phone,
		AccountPrivacy: req.AccountPrivacy,
	}
	if req.Email != nil && *req.Email != current.Email {
		other, err := s.users.FindByEmail(ctx, *req.Email)
		if err == nil && other.ID != targetID {
			return nil, Conflict("Email already in use")
		}
		if err != nil && KindOf(err) != KindNotFound {
			return nil, Wrap(err, "lookup email")
		}
		changes.Email = req.Email
	}
	if req.Password != nil {
		hashed, err := security.HashPassword(*req.Password, s.bcryptCost)
		if err != nil {
			return nil, Wrap(err, "hash password")
		}
		changes.Password = &hashed
	}

	if image != nil {
		ref, err := s.media.UploadProfileImage(ctx, *image)
		if err != nil {
			return nil, mediaError(err, "upload profile image")
		}
		changes.ProfileImage = &ref
	}

	updated, err := s.users.Update(ctx, targetID, changes)
	if err != nil {
		if changes.ProfileImage != nil {
			s.media.DeleteAll(context.WithoutCancel(ctx), []models.MediaRef{*changes.ProfileImage})
		}
		return nil, Wrap(err, "update user")
	}

	if changes.ProfileImage != nil && current.ProfileImage != nil {
		s.media.DeleteAll(context.WithoutCancel(ctx), []models.MediaRef{*current.ProfileImage})
	}
	return updated, nil
}

// DeleteAccount removes the user together with every reference other users hold to
// them. Posts and comments they wrote are kept.
func (s *UserService) DeleteAccount(ctx context.Context, actingID, targetID primitive.ObjectID) error {
	if actingID != targetID {
		return Forbidden("Access denied")
	}
	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return Wrap(err, "find user")
	}

	var (
		followersOf []primitive.ObjectID
		followingOf []primitive.ObjectID
		removed     []models.Notification
		released    []primitive.ObjectID
	)
	steps := []Step{
		{
			Name: "delete user",
			Do: func(ctx context.Context) error {
				ok, err := s.users.Delete(ctx, targetID)
				if err != nil {
					return err
				}
				if !ok {
					return NotFound("User not found")
				}
				return nil
			},
			Undo: func(ctx context.Context) error { return s.users.Create(ctx, user) },
		},
		{
			Name: "drop from followers",
			Do: func(ctx context.Context) (err error) {
				followersOf, err = s.users.PullFromAll(ctx, SetFollowers, targetID)
				return err
			},
			Undo: func(ctx context.Context) error {
				return s.addBack(ctx, followersOf, SetFollowers, targetID)
			},
		},
		{
			Name: "drop from following",
			Do: func(ctx context.Context) (err error) {
				followingOf, err = s.users.PullFromAll(ctx, SetFollowing, targetID)
				return err
			},
			Undo: func(ctx context.Context) error {
				return s.addBack(ctx, followingOf, SetFollowing, targetID)
			},
		},
		{
			Name: "release likes",
			Do: func(ctx context.Context) error {
				released = released[:0]
				for _, postID := range user.PostsLike {
					err := s.posts.IncLikes(ctx, postID, -1)
					if KindOf(err) == KindNotFound {
						continue
					}
					if err != nil {
						return err
					}
					released = append(released, postID)
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				var errs []error
				for _, postID := range released {
					errs = append(errs, s.posts.IncLikes(ctx, postID, 1))
				}
				return errors.Join(errs...)
			},
		},
		{
			Name: "delete notifications",
			Do: func(ctx context.Context) (err error) {
				removed, err = s.notifications.DeleteByUser(ctx, targetID)
				return err
			},
			Undo: func(ctx context.Context) error {
				var errs []error
				for i := range removed {
					errs = append(errs, s.notifications.Create(ctx, &removed[i]))
				}
				return errors.Join(errs...)
			},
		},
	}
	if err := s.tx.Run(ctx, steps...); err != nil {
		return Wrap(err, "delete account")
	}

	if user.ProfileImage != nil {
		s.media.DeleteAll(context.WithoutCancel(ctx), []models.MediaRef{*user.ProfileImage})
	}
	s.logger.Info("account deleted", zap.String("userId", targetID.Hex()))
	return nil
}

func (s *UserService) addBack(ctx context.Context, owners []primitive.ObjectID, set UserSet, value primitive.ObjectID) error {
	var errs []error
	for _, owner := range owners {
		if _, err := s.users.AddToSet(ctx, owner, set, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPushToken stores the device token used for push delivery
func (s *UserService) SetPushToken(ctx context.Context, actingID primitive.ObjectID, token string) error {
	if err := s.users.SetPushToken(ctx, actingID, strings.TrimSpace(token)); err != nil {
		return Wrap(err, "set push token")
	}
	return nil
}

// mediaError turns file rejections into validation errors
func mediaError(err error, msg string) error {
	if errors.Is(err, storage.ErrInvalidFile) {
		return Invalid(strings.TrimPrefix(err.Error(), storage.ErrInvalidFile.Error()+": "))
	}
	return Wrap(err, msg)
}
