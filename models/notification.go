package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification states
const (
	StateUnread = "unread"
	StateRead   = "read"
)

// Notification model
type Notification struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Body      string             `json:"body" bson:"body"`
	Link      string             `json:"link" bson:"link"`
	State     string             `json:"state" bson:"state"`
	UserID    primitive.ObjectID `json:"user" bson:"user"` // The user who receives the notification
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
