// models/auth.go

package models

import "strings"

// Normalizer is implemented by request bodies that clean their fields before validation
type Normalizer interface {
	Normalize()
}

type RegisterRequest struct {
	FirstName      string `json:"firstName" validate:"required,min=1,max=50"`
	LastName       string `json:"lastName" validate:"required,min=1,max=50"`
	Status         string `json:"status,omitempty" validate:"max=100"`
	Bio            string `json:"bio,omitempty" validate:"max=500"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,phone"`
	Password       string `json:"password" validate:"required,min=8"`
	AccountPrivacy string `json:"accountPrivacy,omitempty" validate:"omitempty,oneof=public private friend"`
}

func (r *RegisterRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Status = strings.TrimSpace(r.Status)
	r.Bio = strings.TrimSpace(r.Bio)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateProfileRequest carries only the fields a user may change on their own profile.
// Nil means "leave unchanged".
type UpdateProfileRequest struct {
	FirstName      *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=50"`
	LastName       *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=50"`
	Status         *string `json:"status,omitempty" validate:"omitempty,max=100"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Password       *string `json:"password,omitempty" validate:"omitempty,min=8"`
	AccountPrivacy *string `json:"accountPrivacy,omitempty" validate:"omitempty,oneof=public private friend"`
}

// ProfileFormFields lists the multipart keys accepted by UpdateProfileRequest
var ProfileFormFields = []string{"firstName", "lastName", "status", "bio", "email", "phone", "password", "accountPrivacy"}

func (r *UpdateProfileRequest) Normalize() {
	for _, p := range []*string{r.FirstName, r.LastName, r.Status, r.Bio, r.Phone} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if r.Email != nil {
		*r.Email = NormalizeEmail(*r.Email)
	}
}

// Empty reports whether no field is set
func (r *UpdateProfileRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Status == nil && r.Bio == nil &&
		r.Email == nil && r.Phone == nil && r.Password == nil && r.AccountPrivacy == nil
}

type FollowRequest struct {
	Action string `json:"action" validate:"required"`
}

type PushTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type CreatePostRequest struct {
	Title string   `json:"title" form:"title" validate:"required,min=1,max=150"`
	Body  string   `json:"body" form:"body" validate:"required,min=1"`
	Tags  []string `json:"tags" form:"tags" validate:"max=30,dive,max=50"`
}

func (r *CreatePostRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	r.Tags = tags
}

type LikeRequest struct {
	Post string `json:"post" validate:"required"`
	Like *bool  `json:"like" validate:"required"`
}

type CreateCommentRequest struct {
	Post string `json:"post" validate:"required"`
	Body string `json:"body" validate:"required,min=1,max=500"`
}

func (r *CreateCommentRequest) Normalize() {
	r.Body = strings.TrimSpace(r.Body)
}

// CommentBodyRequest is used for comment edits and replies
type CommentBodyRequest struct {
	Body string `json:"body" validate:"required,min=1,max=500"`
}

func (r *CommentBodyRequest) Normalize() {
	r.Body = strings.TrimSpace(r.Body)
}

type CreateNotificationRequest struct {
	Body string `json:"body" validate:"required,min=1,max=300"`
	Link string `json:"link" validate:"required"`
	User string `json:"user" validate:"required"`
}

func (r *CreateNotificationRequest) Normalize() {
	r.Body = strings.TrimSpace(r.Body)
	r.Link = strings.TrimSpace(r.Link)
}

type NotificationStateRequest struct {
	State string `json:"state" validate:"required,oneof=unread read"`
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
