package testutil

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/security"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
)

// TestSecret signs every token issued in tests
const TestSecret = "test-secret"

// ReconcileGrace is the repair grace window of an Env. Tests age documents past it
// with Memory.Advance.
const ReconcileGrace = time.Minute

// MediaStore keeps uploaded objects in memory
type MediaStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailUploads makes every upload fail with this error
	FailUploads error
}

var _ storage.MediaStore = (*MediaStore)(nil)

func NewMediaStore() *MediaStore {
	return &MediaStore{objects: map[string][]byte{}}
}

func (s *MediaStore) Upload(_ context.Context, name, _ string, r io.Reader) (models.MediaRef, error) {
	if s.FailUploads != nil {
		return models.MediaRef{}, s.FailUploads
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.MediaRef{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
	return models.MediaRef{URL: "https://media.test/" + name, PublicID: name}, nil
}

func (s *MediaStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, publicID)
	return nil
}

// Has reports whether publicID is stored
func (s *MediaStore) Has(publicID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[publicID]
	return ok
}

// Len is the number of stored objects
func (s *MediaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ResetTokens is a single-use token store held in memory
type ResetTokens struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func NewResetTokens() *ResetTokens {
	return &ResetTokens{ids: map[string]time.Time{}}
}

func (s *ResetTokens) Remember(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[jti] = time.Now().Add(ttl)
	return nil
}

func (s *ResetTokens) Consume(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.ids[jti]
	delete(s.ids, jti)
	return ok && time.Now().Before(exp), nil
}

// Deliveries records every notification handed to it
type Deliveries struct {
	mu   sync.Mutex
	sent []models.Notification
	// Err is returned from Deliver after recording
	Err error
}

func (d *Deliveries) Deliver(_ context.Context, n *models.Notification, _ *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, *n)
	return d.Err
}

// Sent returns a copy of the delivered notifications
func (d *Deliveries) Sent() []models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Notification{}, d.sent...)
}

// Mailer captures reset mails
type Mailer struct {
	mu    sync.Mutex
	Links map[string]string
	Err   error
}

func (m *Mailer) SendPasswordReset(to, _, link string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Links == nil {
		m.Links = map[string]string{}
	}
	m.Links[to] = link
	return nil
}

// Link returns the last link mailed to address
func (m *Mailer) Link(address string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Links[address]
}

// Env is a full service graph over one Memory
type Env struct {
	DB         *Memory
	Store      *MediaStore
	Media      *storage.Media
	Tokens     *security.TokenManager
	Mailer     *Mailer
	Resets     *ResetTokens
	Deliveries *Deliveries
	Tx         services.Transactor

	Auth          *services.AuthService
	Users         *services.UserService
	Follows       *services.FollowService
	Posts         *services.PostService
	Comments      *services.CommentService
	Notifications *services.NotificationService
	Reconciler    *services.ReconcileService
}

// NewEnv wires every service against in-memory storage. Units of work run through the
// compensator, the same path used without database transactions.
func NewEnv() *Env {
	logger := zap.NewNop()
	db := NewMemory()
	store := NewMediaStore()
	tokens, err := security.NewTokenManager(TestSecret)
	if err != nil {
		panic(err)
	}

	env := &Env{
		DB:         db,
		Store:      store,
		Media:      storage.NewMedia(store, nil, logger),
		Tokens:     tokens,
		Mailer:     &Mailer{},
		Resets:     NewResetTokens(),
		Deliveries: &Deliveries{},
		Tx:         services.NewCompensator(logger),
	}
	users, posts, comments, notifications := db.Users(), db.Posts(), db.Comments(), db.Notifications()

	// bcrypt's minimum cost keeps the suite fast
	cost := 4
	env.Auth = services.NewAuthService(users, tokens, env.Mailer, env.Resets, cost, logger)
	env.Users = services.NewUserService(users, posts, notifications, env.Tx, env.Media, cost, logger)
	env.Notifications = services.NewNotificationService(notifications, users, env.Tx, logger, env.Deliveries)
	env.Follows = services.NewFollowService(users, env.Notifications, env.Tx, logger)
	env.Posts = services.NewPostService(posts, users, comments, env.Tx, env.Media, logger)
	env.Comments = services.NewCommentService(comments, posts, users, env.Tx, logger)
	env.Reconciler = services.NewReconcileService(users, posts, comments, ReconcileGrace, logger).WithClock(db.Now)
	return env
}

// ErrInjected is the failure tests plant with FailNext
var ErrInjected = errors.New("injected failure")

// NewUser stores a user directly and returns it
func (e *Env) NewUser(first, last string) *models.User {
	u := &models.User{
		ID:             primitive.NewObjectID(),
		FirstName:      first,
		LastName:       last,
		Email:          primitive.NewObjectID().Hex() + "@example.com",
		Phone:          "+15551234567",
		AccountPrivacy: models.PrivacyPublic,
		ProfileLogo:    models.ProfileColors[0],
	}
	if err := e.DB.Users().Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// NewPost stores a post owned by ownerID through the service
func (e *Env) NewPost(ownerID primitive.ObjectID, title string) *models.PostView {
	post, err := e.Posts.Create(context.Background(), ownerID, &models.CreatePostRequest{Title: title, Body: "body of " + title}, nil)
	if err != nil {
		panic(err)
	}
	return post
}

// Token issues an access token for userID
func (e *Env) Token(userID primitive.ObjectID) string {
	issued, err := e.Tokens.Issue(userID.Hex(), security.PurposeAccess, time.Hour)
	if err != nil {
		panic(err)
	}
	return issued.Token
}
