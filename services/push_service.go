package services

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPusher delivers notifications to the recipient's device through Firebase
type FCMPusher struct {
	client messageSender
	logger *zap.Logger
}

func NewFCMPusher(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FCMPusher, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}
	return &FCMPusher{client: client, logger: logger.Named("fcm")}, nil
}

// Deliver is a no-op for users without a device token
func (p *FCMPusher) Deliver(ctx context.Context, n *models.Notification, recipient *models.User) error {
	if recipient.FCMToken == "" {
		return nil
	}
	badge := 1
	msg := &messaging.Message{
		Token: recipient.FCMToken,
		Notification: &messaging.Notification{
			Title: "NestFire",
			Body:  n.Body,
		},
		Data: map[string]string{
			"type":           "notification",
			"notificationId": n.ID.Hex(),
			"link":           n.Link,
			"timestamp":      n.CreatedAt.Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "nestfire_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: "NestFire", Body: n.Body},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}

	id, err := p.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send fcm message: %w", err)
	}
	p.logger.Debug("push sent", zap.String("userId", recipient.ID.Hex()), zap.String("messageId", id))
	return nil
}
