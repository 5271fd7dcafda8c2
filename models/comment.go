package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reply is embedded in its parent comment
type Reply struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Body      string             `json:"body" bson:"body"`
	UserID    primitive.ObjectID `json:"user" bson:"user"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Comment model for post comments
type Comment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Body      string             `json:"body" bson:"body"`
	UserID    primitive.ObjectID `json:"user" bson:"user"`
	PostID    primitive.ObjectID `json:"post" bson:"post"`
	Replies   []Reply            `json:"replies" bson:"replies"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// FindReply returns the index of the reply with id, or -1
func (c *Comment) FindReply(id primitive.ObjectID) int {
	for i := range c.Replies {
		if c.Replies[i].ID == id {
			return i
		}
	}
	return -1
}

// ReplyView is a reply with its author resolved
type ReplyView struct {
	Reply
	Author *Author `json:"author,omitempty"`
}

// CommentView is a comment with authors resolved
type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	Body      string             `json:"body"`
	UserID    primitive.ObjectID `json:"user"`
	PostID    primitive.ObjectID `json:"post"`
	Author    *Author            `json:"author,omitempty"`
	Replies   []ReplyView        `json:"replies"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
