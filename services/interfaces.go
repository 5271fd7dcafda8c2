package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/security"
)

// UserSet names one of the id sets stored on a user document
type UserSet string

const (
	SetPosts         UserSet = "posts"
	SetNotifications UserSet = "notifications"
	SetFollowing     UserSet = "following"
	SetFollowers     UserSet = "followers"
	SetPostsLike     UserSet = "postsLike"
)

// UserChanges is a partial update of a user document. Nil fields are left alone.
type UserChanges struct {
	FirstName      *string
	LastName       *string
	Status         *string
	Bio            *string
	Email          *string
	Phone          *string
	Password       *string
	AccountPrivacy *string
	ProfileImage   *models.MediaRef
}

// UserRepository persists users. Set mutations report whether the document changed,
// and return a NotFound error when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	Search(ctx context.Context, pattern string, excludePrivate bool, limit int) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, changes UserChanges) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	AddToSet(ctx context.Context, id primitive.ObjectID, set UserSet, value primitive.ObjectID) (bool, error)
	Pull(ctx context.Context, id primitive.ObjectID, set UserSet, value primitive.ObjectID) (bool, error)
	PullFromAll(ctx context.Context, set UserSet, value primitive.ObjectID) ([]primitive.ObjectID, error)
	// ReplaceSet and PullIfUnchanged write only while the stored updatedAt still equals
	// seen.UpdatedAt, and report false when another write got there first. They leave
	// updatedAt as it was.
	ReplaceSet(ctx context.Context, seen *models.User, set UserSet, values []primitive.ObjectID) (bool, error)
	PullIfUnchanged(ctx context.Context, seen *models.User, set UserSet, value primitive.ObjectID) (bool, error)
	CountWithMember(ctx context.Context, set UserSet, value primitive.ObjectID) (int64, error)
	SetPushToken(ctx context.Context, id primitive.ObjectID, token string) error
	Scan(ctx context.Context, fn func(*models.User) error) error
}

// PostRepository persists posts
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	List(ctx context.Context, skip, limit int64) ([]models.Post, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Post, error)
	IDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncLikes(ctx context.Context, id primitive.ObjectID, delta int) error
	// Touch stamps updatedAt, returning NotFound when the post does not exist
	Touch(ctx context.Context, id primitive.ObjectID) error
	// SetLikes and SetComments are guarded on seen.UpdatedAt like UserRepository.ReplaceSet
	SetLikes(ctx context.Context, seen *models.Post, likes int) (bool, error)
	AddComment(ctx context.Context, id, commentID primitive.ObjectID) (bool, error)
	PullComment(ctx context.Context, id, commentID primitive.ObjectID) (bool, error)
	SetComments(ctx context.Context, seen *models.Post, ids []primitive.ObjectID) (bool, error)
	Scan(ctx context.Context, fn func(*models.Post) error) error
}

// CommentRepository persists comments with their embedded replies
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	IDsByPost(ctx context.Context, postID primitive.ObjectID) ([]primitive.ObjectID, error)
	UpdateBody(ctx context.Context, id primitive.ObjectID, body string) (*models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	AddReply(ctx context.Context, id primitive.ObjectID, reply models.Reply) (*models.Comment, error)
	// PullReply removes the reply only while it is still owned by ownerID
	PullReply(ctx context.Context, id, replyID, ownerID primitive.ObjectID) (bool, error)
}

// NotificationRepository persists notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	ListAll(ctx context.Context) ([]models.Notification, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	SetState(ctx context.Context, id primitive.ObjectID, state string) (*models.Notification, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
}

// TokenService signs and verifies bearer tokens
type TokenService interface {
	Issue(userID, purpose string, ttl time.Duration) (*security.IssuedToken, error)
	Parse(token string) (*security.Claims, error)
}

// Mailer delivers out-of-band messages
type Mailer interface {
	SendPasswordReset(to, name, link string) error
}

// ResetTokenStore makes reset tokens single use
type ResetTokenStore interface {
	Remember(ctx context.Context, jti string, ttl time.Duration) error
	// Consume reports whether jti was outstanding and removes it
	Consume(ctx context.Context, jti string) (bool, error)
}

// Deliverer pushes a stored notification to the recipient's devices
type Deliverer interface {
	Deliver(ctx context.Context, n *models.Notification, recipient *models.User) error
}
