package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/controllers"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/routes"
	"github.com/HSouheill/nestfire_backend/security"
	"github.com/HSouheill/nestfire_backend/testutil"
)

type server struct {
	env     *testutil.Env
	handler http.Handler
	admin   *models.User
}

func newServer(t *testing.T, ping func(context.Context) error) *server {
	t.Helper()
	env := testutil.NewEnv()
	admin := env.NewUser("Root", "Admin")
	e := routes.NewEcho(routes.Deps{
		Logger:        zap.NewNop(),
		Tokens:        env.Tokens,
		Auth:          controllers.NewAuthController(env.Auth),
		Users:         controllers.NewUserController(env.Users, env.Follows, env.Posts),
		Posts:         controllers.NewPostController(env.Posts),
		Comments:      controllers.NewCommentController(env.Comments),
		Notifications: controllers.NewNotificationController(env.Notifications),
		AdminIDs:      []string{admin.ID.Hex()},
		Ping:          ping,
	})
	return &server{env: env, handler: e, admin: admin}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *server) send(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
		assert.Equal(t, rec.Code, env.Status)
	}
	return rec, env
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"phone":     "+15551234567",
		"password":  "correct horse",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t, nil)

	rec, res := s.do(t, http.MethodPost, "/api/auth/register", "", registerBody(" Ada@Example.com "))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	var created struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ada@example.com", created.User.Email)

	rec, res = s.do(t, http.MethodPost, "/api/auth/register", "", registerBody("ada@example.com"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already in use!", res.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, res = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials!", res.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "nope nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterRejectsBadBodies(t *testing.T) {
	s := newServer(t, nil)

	body := registerBody("ada@example.com")
	body["isVerified"] = "true"
	rec, res := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Message, "isVerified")

	body = registerBody("ada@example.com")
	body["phone"] = "call me"
	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "", `{"firstName": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newServer(t, nil)
	u := s.env.NewUser("Ada", "Lovelace")

	rec, res := s.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please provide valid credentials", res.Message)

	rec, _ = s.do(t, http.MethodGet, "/api/posts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a reset token must not open the API
	issued, err := s.env.Tokens.Issue(u.ID.Hex(), security.PurposeReset, time.Hour)
	require.NoError(t, err)
	rec, _ = s.do(t, http.MethodGet, "/api/posts", issued.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/posts", s.env.Token(u.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFollowOverHTTP(t *testing.T) {
	s := newServer(t, nil)
	a := s.env.NewUser("Ada", "Lovelace")
	b := s.env.NewUser("Bob", "Babbage")
	path := "/api/users/" + b.ID.Hex() + "/follow"

	for i := 0; i < 2; i++ {
		rec, res := s.do(t, http.MethodPut, path, s.env.Token(a.ID), map[string]string{"action": "add"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Success", res.Message)
	}
	assert.Len(t, s.env.DB.User(b.ID).Followers, 1)

	rec, _ := s.do(t, http.MethodPut, path, s.env.Token(a.ID), map[string]string{"action": "poke"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, res := s.do(t, http.MethodPut, "/api/users/xyz/follow", s.env.Token(a.ID), map[string]string{"action": "add"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", res.Message)

	rec, _ = s.do(t, http.MethodPut, path, s.env.Token(a.ID), map[string]string{"action": "remove"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.env.DB.User(b.ID).Followers)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	s := newServer(t, nil)
	a := s.env.NewUser("Ada", "Lovelace")
	b := s.env.NewUser("Bob", "Babbage")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Engines"))
	require.NoError(t, w.WriteField("body", "Analytical"))
	require.NoError(t, w.WriteField("tags", "math, history"))
	part, err := w.CreateFormFile("images", "diagram.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec, res := s.send(t, req, s.env.Token(a.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post models.PostView
	require.NoError(t, json.Unmarshal(res.Data, &post))
	assert.Equal(t, []string{"math", "history"}, post.Tags)
	require.Len(t, post.Media, 1)
	assert.True(t, s.env.Store.Has(post.Media[0].PublicID))

	like := map[string]interface{}{"post": post.ID.Hex(), "like": true}
	rec, _ = s.do(t, http.MethodPut, "/api/posts/like", s.env.Token(b.ID), like)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, res = s.do(t, http.MethodPut, "/api/posts/like", s.env.Token(b.ID), like)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already liked this post", res.Message)

	rec, _ = s.do(t, http.MethodGet, "/api/posts?limit=5&page=0", s.env.Token(b.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/posts?limit=five", s.env.Token(b.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/posts/"+post.ID.Hex(), s.env.Token(b.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/posts/"+post.ID.Hex(), s.env.Token(a.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/posts/"+post.ID.Hex(), s.env.Token(a.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/posts/nope", s.env.Token(a.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRejectsUnknownMultipartField(t *testing.T) {
	s := newServer(t, nil)
	a := s.env.NewUser("Ada", "Lovelace")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "t"))
	require.NoError(t, w.WriteField("body", "b"))
	require.NoError(t, w.WriteField("likes", "1000"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec, res := s.send(t, req, s.env.Token(a.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, res.Message, "likes")
	_, posts, _, _ := s.env.DB.Counts()
	assert.Zero(t, posts)
}

func TestReplyRemovalByOtherUserIsForbidden(t *testing.T) {
	s := newServer(t, nil)
	x := s.env.NewUser("Xena", "X")
	y := s.env.NewUser("Yuri", "Y")
	post := s.env.NewPost(y.ID, "t")

	rec, res := s.do(t, http.MethodPost, "/api/comments", s.env.Token(y.ID), map[string]string{"post": post.ID.Hex(), "body": "parent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment models.CommentView
	require.NoError(t, json.Unmarshal(res.Data, &comment))

	rec, res = s.do(t, http.MethodPost, "/api/comments/"+comment.ID.Hex()+"/reply", s.env.Token(x.ID), map[string]string{"body": "reply"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(res.Data, &comment))
	require.Len(t, comment.Replies, 1)
	replyPath := "/api/comments/" + comment.ID.Hex() + "/reply/" + comment.Replies[0].ID.Hex()

	rec, res = s.do(t, http.MethodDelete, replyPath, s.env.Token(y.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized", res.Message)
	assert.Len(t, s.env.DB.Comment(comment.ID).Replies, 1)

	rec, _ = s.do(t, http.MethodDelete, replyPath, s.env.Token(x.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, res = s.do(t, http.MethodGet, "/api/comments/"+post.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []models.CommentView
	require.NoError(t, json.Unmarshal(res.Data, &list))
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Replies)
}

func TestNotificationListingIsAdminOnly(t *testing.T) {
	s := newServer(t, nil)
	u := s.env.NewUser("Ada", "Lovelace")
	_, err := s.env.Notifications.Create(context.Background(), u.ID, "hello", "/x")
	require.NoError(t, err)

	rec, res := s.do(t, http.MethodGet, "/api/notifications", s.env.Token(u.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", res.Message)

	rec, res = s.do(t, http.MethodGet, "/api/notifications", s.env.Token(s.admin.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var all []models.Notification
	require.NoError(t, json.Unmarshal(res.Data, &all))
	assert.Len(t, all, 1)

	rec, res = s.do(t, http.MethodGet, "/api/notifications/user", s.env.Token(u.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Notification
	require.NoError(t, json.Unmarshal(res.Data, &mine))
	require.Len(t, mine, 1)

	rec, _ = s.do(t, http.MethodPut, "/api/notifications/"+mine[0].ID.Hex(), s.env.Token(u.ID), map[string]string{"state": "read"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StateRead, s.env.DB.Notification(mine[0].ID).State)
}

func TestHealth(t *testing.T) {
	s := newServer(t, func(context.Context) error { return nil })
	rec, res := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"database":"connected"}`, string(res.Data))

	rec, _ = s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newServer(t, func(context.Context) error { return errors.New("no route to host") })
	rec, res = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", res.Message)
	assert.True(t, strings.Contains(string(res.Data), "unreachable"))
}
