package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HSouheill/nestfire_backend/security"
)

func newProtected(t *testing.T, tokens *security.TokenManager, mw ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	chain := append([]echo.MiddlewareFunc{JWTMiddleware(tokens)}, mw...)
	e.GET("/me", func(c echo.Context) error {
		id, err := UserIDFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, id.Hex())
	}, chain...)
	return e
}

func get(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	tokens, err := security.NewTokenManager("test-secret")
	require.NoError(t, err)
	e := newProtected(t, tokens)
	user := primitive.NewObjectID()

	t.Run("access token", func(t *testing.T) {
		issued, err := tokens.Issue(user.Hex(), security.PurposeAccess, time.Hour)
		require.NoError(t, err)
		rec := get(e, "/me", issued.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.Hex(), rec.Body.String())
	})

	t.Run("token in query ignored off the websocket route", func(t *testing.T) {
		issued, err := tokens.Issue(user.Hex(), security.PurposeAccess, time.Hour)
		require.NoError(t, err)
		rec := get(e, "/me?token="+issued.Token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("reset token rejected", func(t *testing.T) {
		issued, err := tokens.Issue(user.Hex(), security.PurposeReset, time.Hour)
		require.NoError(t, err)
		rec := get(e, "/me", issued.Token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := get(e, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := get(e, "/me", "not.a.token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	tokens, err := security.NewTokenManager("test-secret")
	require.NoError(t, err)
	admin := primitive.NewObjectID()
	e := newProtected(t, tokens, RequireAdmin([]string{admin.Hex()}))

	issued, err := tokens.Issue(admin.Hex(), security.PurposeAccess, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(e, "/me", issued.Token).Code)

	issued, err = tokens.Issue(primitive.NewObjectID().Hex(), security.PurposeAccess, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(e, "/me", issued.Token).Code)
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter()
	defer limiter.Stop()
	limiter.SetLimit("/api/auth/login", time.Hour, 2)

	e := echo.New()
	e.Use(limiter.RateLimit())
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/uploads/*", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	send := func(method, target string) int {
		req := httptest.NewRequest(method, target, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/auth/login"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/auth/login"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/auth/login"))
	// blocked clients stay blocked
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/auth/login"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send(http.MethodGet, "/uploads/a.png"))
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		assert.True(t, ok)
		return c.NoContent(http.StatusNoContent)
	}, RequestTimeout(time.Second))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWebSocketTokenStaysOutOfRequestLog(t *testing.T) {
	tokens, err := security.NewTokenManager("test-secret")
	require.NoError(t, err)
	user := primitive.NewObjectID()
	issued, err := tokens.Issue(user.Hex(), security.PurposeAccess, time.Hour)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/api/ws", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, WebSocketJWTMiddleware(tokens))

	for _, target := range []string{
		"/api/ws?token=" + issued.Token,
		"/api/ws?since=5&token=" + issued.Token,
		"/api/ws?token=" + issued.Token + "x",
	} {
		get(e, target, "")
	}

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "/api/ws?token=redacted", entries[0].ContextMap()["uri"])
	assert.Equal(t, http.StatusOK, int(entries[0].ContextMap()["status"].(int64)))
	assert.Equal(t, "/api/ws?since=5&token=redacted", entries[1].ContextMap()["uri"])
	assert.Equal(t, http.StatusUnauthorized, int(entries[2].ContextMap()["status"].(int64)))
	for _, entry := range logs.All() {
		for key, value := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(value), issued.Token, "field %s", key)
		}
	}
}
