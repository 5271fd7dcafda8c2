package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post model for media posts
type Post struct {
	ID        primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Title     string               `json:"title" bson:"title"`
	Body      string               `json:"body" bson:"body"`
	Media     []MediaRef           `json:"media" bson:"media"`
	Tags      []string             `json:"tags" bson:"tags"`
	Likes     int                  `json:"likes" bson:"likes"`
	Comments  []primitive.ObjectID `json:"comments" bson:"comments"`
	UserID    primitive.ObjectID   `json:"user" bson:"user"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// PostView is a post with its author summary resolved
type PostView struct {
	Post
	Author *Author `json:"author,omitempty"`
}
