package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/controllers"
	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/utils"
	"github.com/HSouheill/nestfire_backend/websocket"
)

// Deps is everything the HTTP layer needs. Optional parts are nil.
type Deps struct {
	Logger         *zap.Logger
	Tokens         middleware.TokenParser
	Hub            *websocket.Hub
	RateLimiter    *middleware.RateLimiter
	Auth           *controllers.AuthController
	Users          *controllers.UserController
	Posts          *controllers.PostController
	Comments       *controllers.CommentController
	Notifications  *controllers.NotificationController
	AdminIDs       []string
	CORSOrigins    []string
	RequestTimeout time.Duration
	// UploadsDir is served under /uploads when media is stored locally
	UploadsDir string
	HSTS       bool
	// Ping reports database health on /health
	Ping func(ctx context.Context) error
}

// NewEcho builds the server with its middleware chain and every route
func NewEcho(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Binder = &controllers.StrictBinder{}
	e.Validator = utils.NewValidator()
	e.HTTPErrorHandler = controllers.HTTPErrorHandler(d.Logger)

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.CORS(d.CORSOrigins))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: d.HSTS}))
	e.Use(echoMiddleware.BodyLimit("60M"))
	if d.RateLimiter != nil {
		e.Use(d.RateLimiter.RateLimit())
	}
	e.Use(middleware.RequestTimeout(d.RequestTimeout))

	RegisterHealthRoutes(e, d.Ping)
	if d.UploadsDir != "" {
		e.Static("/uploads", d.UploadsDir)
	}

	auth := middleware.JWTMiddleware(d.Tokens)
	RegisterAuthRoutes(e, d.Auth)
	RegisterUserRoutes(e, d.Users, auth)
	RegisterPostRoutes(e, d.Posts, auth)
	RegisterCommentRoutes(e, d.Comments, auth)
	RegisterNotificationRoutes(e, d.Notifications, auth, middleware.RequireAdmin(d.AdminIDs))
	if d.Hub != nil {
		e.GET("/api/ws", websocket.Handler(d.Hub, middleware.UserIDFromContext), middleware.WebSocketJWTMiddleware(d.Tokens))
	}
	return e
}

// RegisterHealthRoutes mounts the liveness endpoints
func RegisterHealthRoutes(e *echo.Echo, ping func(ctx context.Context) error) {
	e.Match([]string{http.MethodGet, http.MethodHead}, "/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "NestFire Backend is running",
		})
	})

	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", func(c echo.Context) error {
		database := "unknown"
		if ping != nil {
			if err := ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, models.Response{
					Status:  http.StatusServiceUnavailable,
					Message: "unhealthy",
					Data:    map[string]string{"database": "unreachable"},
				})
			}
			database = "connected"
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "healthy",
			Data:    map[string]string{"database": database},
		})
	})
}
