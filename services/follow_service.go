package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// Follow actions
const (
	FollowAdd    = "add"
	FollowRemove = "remove"
)

// FollowResult carries both sides of the edge as read after the change
type FollowResult struct {
	Followers []primitive.ObjectID `json:"followers"`
	Following []primitive.ObjectID `json:"following"`
}

// FollowService keeps follower and following lists mirrored
type FollowService struct {
	users         UserRepository
	notifications *NotificationService
	tx            Transactor
	logger        *zap.Logger
}

func NewFollowService(users UserRepository, notifications *NotificationService, tx Transactor, logger *zap.Logger) *FollowService {
	return &FollowService{users: users, notifications: notifications, tx: tx, logger: logger.Named("follow")}
}

// SetFollow adds or removes the actor -> target edge on both documents in one unit.
// Both actions are idempotent. A new edge notifies the target.
func (s *FollowService) SetFollow(ctx context.Context, actorID, targetID primitive.ObjectID, action string) (*FollowResult, error) {
	if action != FollowAdd && action != FollowRemove {
		return nil, Invalid("Invalid action")
	}
	if actorID == targetID {
		return nil, Invalid("You can not follow yourself")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, Wrap(err, "find target")
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, Wrap(err, "find actor")
	}

	var steps []Step
	var created *models.Notification
	if action == FollowAdd {
		var newFollower, newFollowing bool
		notice := &models.Notification{
			ID:     primitive.NewObjectID(),
			Body:   fmt.Sprintf("%s %s started following you.", actor.FirstName, actor.LastName),
			Link:   "/user/" + actorID.Hex(),
			State:  models.StateUnread,
			UserID: targetID,
		}
		insert := s.notifications.insertStep(notice)
		steps = []Step{
			{
				Name: "add follower",
				Do: func(ctx context.Context) (err error) {
					newFollower, err = s.users.AddToSet(ctx, targetID, SetFollowers, actorID)
					return err
				},
				Undo: func(ctx context.Context) error {
					return undoIf(newFollower, func() error {
						_, err := s.users.Pull(ctx, targetID, SetFollowers, actorID)
						return err
					})
				},
			},
			{
				Name: "add following",
				Do: func(ctx context.Context) (err error) {
					newFollowing, err = s.users.AddToSet(ctx, actorID, SetFollowing, targetID)
					return err
				},
				Undo: func(ctx context.Context) error {
					return undoIf(newFollowing, func() error {
						_, err := s.users.Pull(ctx, actorID, SetFollowing, targetID)
						return err
					})
				},
			},
			{
				Name: "notify target",
				Do: func(ctx context.Context) error {
					created = nil
					if !newFollower {
						return nil
					}
					if err := insert.Do(ctx); err != nil {
						return err
					}
					created = notice
					return nil
				},
				Undo: func(ctx context.Context) error {
					return undoIf(created != nil, func() error { return insert.Undo(ctx) })
				},
			},
		}
	} else {
		var hadFollower, hadFollowing bool
		steps = []Step{
			{
				Name: "remove follower",
				Do: func(ctx context.Context) (err error) {
					hadFollower, err = s.users.Pull(ctx, targetID, SetFollowers, actorID)
					return err
				},
				Undo: func(ctx context.Context) error {
					return undoIf(hadFollower, func() error {
						_, err := s.users.AddToSet(ctx, targetID, SetFollowers, actorID)
						return err
					})
				},
			},
			{
				Name: "remove following",
				Do: func(ctx context.Context) (err error) {
					hadFollowing, err = s.users.Pull(ctx, actorID, SetFollowing, targetID)
					return err
				},
				Undo: func(ctx context.Context) error {
					return undoIf(hadFollowing, func() error {
						_, err := s.users.AddToSet(ctx, actorID, SetFollowing, targetID)
						return err
					})
				},
			},
		}
	}

	if err := s.tx.Run(ctx, steps...); err != nil {
		return nil, Wrap(err, "update follow")
	}
	if created != nil {
		s.notifications.deliver(ctx, created, target)
	}

	target, err = s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, Wrap(err, "reload target")
	}
	actor, err = s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, Wrap(err, "reload actor")
	}
	return &FollowResult{Followers: target.Followers, Following: actor.Following}, nil
}

// undoIf runs fn only when the step actually changed something
func undoIf(changed bool, fn func() error) error {
	if !changed {
		return nil
	}
	return fn()
}
