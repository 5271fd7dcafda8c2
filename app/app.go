// Package app wires configuration, storage, repositories, services and the HTTP
// layer into one process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/config"
	"github.com/HSouheill/nestfire_backend/controllers"
	"github.com/HSouheill/nestfire_backend/middleware"
	"github.com/HSouheill/nestfire_backend/repositories"
	"github.com/HSouheill/nestfire_backend/routes"
	"github.com/HSouheill/nestfire_backend/security"
	"github.com/HSouheill/nestfire_backend/services"
	"github.com/HSouheill/nestfire_backend/storage"
	"github.com/HSouheill/nestfire_backend/utils"
	"github.com/HSouheill/nestfire_backend/websocket"
)

// App holds the long lived parts of the server
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Echo        *echo.Echo
	Hub         *websocket.Hub
	Reconciler  *services.ReconcileService
	RateLimiter *middleware.RateLimiter

	mongo *mongo.Client
	redis *redis.Client
	gcs   *storage.GCSStore
}

// Store bundles the repositories and the unit of work built on one database
type Store struct {
	Users         *repositories.UserRepository
	Posts         *repositories.PostRepository
	Comments      *repositories.CommentRepository
	Notifications *repositories.NotificationRepository
	Tx            services.Transactor
}

// NewStore builds the repositories. With transactions enabled every unit of work
// runs in a MongoDB transaction, otherwise as compensated steps.
func NewStore(client *mongo.Client, cfg *config.Config, logger *zap.Logger) *Store {
	db := client.Database(cfg.DBName)
	var tx services.Transactor = services.NewCompensator(logger)
	if cfg.MongoTransactions {
		tx = repositories.NewMongoTransactor(client)
	}
	return &Store{
		Users:         repositories.NewUserRepository(db),
		Posts:         repositories.NewPostRepository(db),
		Comments:      repositories.NewCommentRepository(db),
		Notifications: repositories.NewNotificationRepository(db),
		Tx:            tx,
	}
}

// New connects to every backing service and builds the HTTP server
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	client, err := config.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, mongo: client}

	if err := a.build(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger
	store := NewStore(a.mongo, cfg, logger)

	tokens, err := security.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	mediaStore, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("media store: %w", err)
	}
	if gcs, ok := mediaStore.(*storage.GCSStore); ok {
		a.gcs = gcs
	}
	media := storage.NewMedia(mediaStore, storage.FFmpegThumbnailer{}, logger)

	var resets services.ResetTokenStore
	if a.redis = config.ConnectRedis(ctx, cfg, logger); a.redis != nil {
		resets = repositories.NewResetTokenStore(a.redis)
	}

	a.Hub = websocket.NewHub(logger)
	deliverers := []services.Deliverer{a.Hub}
	fbApp, err := config.InitFirebase(ctx, cfg)
	if err != nil {
		logger.Warn("firebase disabled", zap.Error(err))
	} else if fbApp != nil {
		pusher, err := services.NewFCMPusher(ctx, fbApp, logger)
		if err != nil {
			logger.Warn("push delivery disabled", zap.Error(err))
		} else {
			deliverers = append(deliverers, pusher)
		}
	}

	authService := services.NewAuthService(store.Users, tokens, utils.NewMailer(cfg, logger), resets, cfg.BcryptCost, logger)
	userService := services.NewUserService(store.Users, store.Posts, store.Notifications, store.Tx, media, cfg.BcryptCost, logger)
	notificationService := services.NewNotificationService(store.Notifications, store.Users, store.Tx, logger, deliverers...)
	followService := services.NewFollowService(store.Users, notificationService, store.Tx, logger)
	postService := services.NewPostService(store.Posts, store.Users, store.Comments, store.Tx, media, logger)
	commentService := services.NewCommentService(store.Comments, store.Posts, store.Users, store.Tx, logger)
	a.Reconciler = services.NewReconcileService(store.Users, store.Posts, store.Comments, cfg.ReconcileGrace, logger)

	uploadsDir := ""
	if local, ok := mediaStore.(*storage.LocalStore); ok {
		uploadsDir = local.Root()
	}

	a.RateLimiter = middleware.NewRateLimiter()
	a.Echo = routes.NewEcho(routes.Deps{
		Logger:         logger,
		Tokens:         tokens,
		Hub:            a.Hub,
		RateLimiter:    a.RateLimiter,
		Auth:           controllers.NewAuthController(authService),
		Users:          controllers.NewUserController(userService, followService, postService),
		Posts:          controllers.NewPostController(postService),
		Comments:       controllers.NewCommentController(commentService),
		Notifications:  controllers.NewNotificationController(notificationService),
		AdminIDs:       cfg.AdminUserIDs,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		UploadsDir:     uploadsDir,
		HSTS:           !isDevelopment(cfg.Env),
		Ping: func(ctx context.Context) error {
			return a.mongo.Ping(ctx, nil)
		},
	})
	return nil
}

// NewReconciler connects to the database only, for one-off repair runs
func NewReconciler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services.ReconcileService, func(context.Context), error) {
	client, err := config.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := NewStore(client, cfg, logger)
	closeFn := func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("mongo disconnect", zap.Error(err))
		}
	}
	return services.NewReconcileService(store.Users, store.Posts, store.Comments, cfg.ReconcileGrace, logger), closeFn, nil
}

// Close releases every client. Safe to call on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.RateLimiter != nil {
		a.RateLimiter.Stop()
	}
	var errs []error
	if a.gcs != nil {
		errs = append(errs, a.gcs.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Disconnect(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("shutdown", zap.Error(err))
	}
}

func isDevelopment(env string) bool {
	return env == "development" || env == "dev"
}
