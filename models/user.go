// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account privacy values
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
	PrivacyFriend  = "friend"
)

// ProfileColors is the palette a user's profileLogo is drawn from at signup.
var ProfileColors = []string{
	"#FF6F61", "#FF9F00", "#FF3D00", "#D50032", "#C51162",
	"#6200EA", "#00BFAE", "#00C853", "#FFD600", "#FF5252",
}

// MediaRef points at an object held by the media store
type MediaRef struct {
	URL          string `json:"url" bson:"url"`
	PublicID     string `json:"publicId" bson:"publicId"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	Kind         string `json:"kind,omitempty" bson:"kind,omitempty"` // "image" or "video"
}

// User model
type User struct {
	ID             primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	FirstName      string               `json:"firstName" bson:"firstName"`
	LastName       string               `json:"lastName" bson:"lastName"`
	Status         string               `json:"status,omitempty" bson:"status,omitempty"`
	Bio            string               `json:"bio,omitempty" bson:"bio,omitempty"`
	Email          string               `json:"email" bson:"email"`
	Phone          string               `json:"phone" bson:"phone"`
	Password       string               `json:"-" bson:"password"`
	AccountPrivacy string               `json:"accountPrivacy" bson:"accountPrivacy"`
	IsVerified     bool                 `json:"isVerified" bson:"isVerified"`
	ProfileImage   *MediaRef            `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Posts          []primitive.ObjectID `json:"posts" bson:"posts"`
	Notifications  []primitive.ObjectID `json:"notifications" bson:"notifications"`
	Following      []primitive.ObjectID `json:"following" bson:"following"`
	Followers      []primitive.ObjectID `json:"followers" bson:"followers"`
	PostsLike      []primitive.ObjectID `json:"postsLike" bson:"postsLike"`
	ProfileLogo    string               `json:"profileLogo" bson:"profileLogo"`
	FCMToken       string               `json:"-" bson:"fcmToken,omitempty"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// Author is the public summary embedded in posts and comments
type Author struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	FirstName    string             `json:"firstName" bson:"firstName"`
	LastName     string             `json:"lastName" bson:"lastName"`
	Status       string             `json:"status,omitempty" bson:"status,omitempty"`
	IsVerified   bool               `json:"isVerified" bson:"isVerified"`
	ProfileImage *MediaRef          `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	ProfileLogo  string             `json:"profileLogo,omitempty" bson:"profileLogo,omitempty"`
}

// AuthorOf builds the public summary of u
func AuthorOf(u *User) *Author {
	if u == nil {
		return nil
	}
	return &Author{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Status:       u.Status,
		IsVerified:   u.IsVerified,
		ProfileImage: u.ProfileImage,
		ProfileLogo:  u.ProfileLogo,
	}
}

// HasLiked reports whether postID is in the user's liked set
func (u *User) HasLiked(postID primitive.ObjectID) bool {
	return ContainsID(u.PostsLike, postID)
}

// ContainsID reports whether id is in ids
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Response is the envelope used by every JSON endpoint
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
