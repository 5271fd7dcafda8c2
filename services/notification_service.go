package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// NotificationService stores notifications and fans them out to connected devices
type NotificationService struct {
	notifications NotificationRepository
	users         UserRepository
	tx            Transactor
	deliverers    []Deliverer
	logger        *zap.Logger
}

func NewNotificationService(notifications NotificationRepository, users UserRepository, tx Transactor, logger *zap.Logger, deliverers ...Deliverer) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		tx:            tx,
		deliverers:    deliverers,
		logger:        logger.Named("notifications"),
	}
}

// Create stores a notification for an existing recipient and delivers it
func (s *NotificationService) Create(ctx context.Context, recipientID primitive.ObjectID, body, link string) (*models.Notification, error) {
	recipient, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		return nil, Wrap(err, "find recipient")
	}
	n := &models.Notification{
		ID:     primitive.NewObjectID(),
		Body:   body,
		Link:   link,
		State:  models.StateUnread,
		UserID: recipientID,
	}
	if err := s.tx.Run(ctx, s.insertStep(n)); err != nil {
		return nil, Wrap(err, "create notification")
	}
	s.deliver(ctx, n, recipient)
	return n, nil
}

// insertStep writes the notification and its id on the recipient. Do cleans up
// after itself when the second write fails.
func (s *NotificationService) insertStep(n *models.Notification) Step {
	return Step{
		Name: "insert notification",
		Do: func(ctx context.Context) error {
			if err := s.notifications.Create(ctx, n); err != nil {
				return err
			}
			if _, err := s.users.AddToSet(ctx, n.UserID, SetNotifications, n.ID); err != nil {
				if _, derr := s.notifications.Delete(context.WithoutCancel(ctx), n.ID); derr != nil {
					return errors.Join(err, derr)
				}
				return err
			}
			return nil
		},
		Undo: func(ctx context.Context) error {
			_, perr := s.users.Pull(ctx, n.UserID, SetNotifications, n.ID)
			if KindOf(perr) == KindNotFound {
				perr = nil
			}
			_, derr := s.notifications.Delete(ctx, n.ID)
			return errors.Join(perr, derr)
		},
	}
}

// deliver pushes n to every channel. Delivery is best effort once n is stored.
func (s *NotificationService) deliver(ctx context.Context, n *models.Notification, recipient *models.User) {
	for _, d := range s.deliverers {
		if err := d.Deliver(ctx, n, recipient); err != nil {
			s.logger.Debug("notification not delivered",
				zap.String("notificationId", n.ID.Hex()),
				zap.String("userId", recipient.ID.Hex()),
				zap.Error(err))
		}
	}
}

func (s *NotificationService) ListAll(ctx context.Context) ([]models.Notification, error) {
	list, err := s.notifications.ListAll(ctx)
	if err != nil {
		return nil, Wrap(err, "list notifications")
	}
	return list, nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, Wrap(err, "list user notifications")
	}
	return list, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, Wrap(err, "find notification")
	}
	return n, nil
}

// SetState marks a notification read or unread. Only the recipient may do it.
func (s *NotificationService) SetState(ctx context.Context, actingID, id primitive.ObjectID, state string) (*models.Notification, error) {
	if state != models.StateRead && state != models.StateUnread {
		return nil, Invalid("state must be one of: unread, read")
	}
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, Wrap(err, "find notification")
	}
	if n.UserID != actingID {
		return nil, Forbidden("You are not authorized to change this notification")
	}
	updated, err := s.notifications.SetState(ctx, id, state)
	if err != nil {
		return nil, Wrap(err, "update notification")
	}
	return updated, nil
}

// Delete removes a notification and its id from the recipient's list
func (s *NotificationService) Delete(ctx context.Context, actingID, id primitive.ObjectID) error {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return Wrap(err, "find notification")
	}
	if n.UserID != actingID {
		return Forbidden("You are not authorized to delete this notification")
	}

	var unlisted bool
	err = s.tx.Run(ctx,
		Step{
			Name: "delete notification",
			Do: func(ctx context.Context) error {
				ok, err := s.notifications.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return NotFound("Notification not found")
				}
				return nil
			},
			Undo: func(ctx context.Context) error { return s.notifications.Create(ctx, n) },
		},
		Step{
			Name: "unlist notification",
			Do: func(ctx context.Context) (err error) {
				unlisted, err = s.users.Pull(ctx, n.UserID, SetNotifications, id)
				if KindOf(err) == KindNotFound {
					return nil
				}
				return err
			},
			Undo: func(ctx context.Context) error {
				return undoIf(unlisted, func() error {
					_, err := s.users.AddToSet(ctx, n.UserID, SetNotifications, id)
					return err
				})
			},
		},
	)
	if err != nil {
		return Wrap(err, "delete notification")
	}
	return nil
}
