// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "flock/docs" // swagger docs
	"flock/internal/cache"
	"flock/internal/config"
	"flock/internal/database"
	"flock/internal/emotion"
	"flock/internal/featureflags"
	"flock/internal/middleware"
	"flock/internal/models"
	"flock/internal/notifications"
	"flock/internal/repository"
	"flock/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	authService         *service.AuthService
	tweetService        *service.TweetService
	interactionService  *service.InteractionService
	userService         *service.UserService
	notificationService *service.NotificationService
	emotionService      *service.EmotionService
}

// NewServer connects to the database and Redis described by cfg and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client disables caching, blacklisting and live notifications.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	classifier := emotion.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout())
	return newServer(cfg, db, redisClient, classifier), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, classifier emotion.Classifier) *Server {
	userRepo := repository.NewUserRepository(db)
	tweetRepo := repository.NewTweetRepository(db)
	edgeRepo := repository.NewInteractionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	hashtagRepo := repository.NewHashtagRepository(db)
	expressionRepo := repository.NewExpressionRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("flock-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(redisClient),
	}
	if redisClient != nil {
		s.hub = notifications.NewHub()
	}

	s.authService = service.NewAuthService(userRepo, redisClient)
	s.tweetService = service.NewTweetService(db, userRepo, tweetRepo, edgeRepo, notificationRepo, hashtagRepo, s.notifier, redisClient)
	s.interactionService = service.NewInteractionService(db, userRepo, tweetRepo, edgeRepo, notificationRepo, hashtagRepo, s.notifier, redisClient)
	s.userService = service.NewUserService(userRepo, edgeRepo, expressionRepo, s.featureFlags, redisClient)
	s.notificationService = service.NewNotificationService(notificationRepo)
	s.emotionService = service.NewEmotionService(classifier, emotion.NewArchive(cfg.ExpressionArchiveDir), expressionRepo, tweetRepo)
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before the context middleware so trace IDs reach the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth is attached per group: a middleware-only group on "" would cover all of /api.
	api := app.Group("/api")

	api.Get("/feature-flags", s.GetFeatureFlags)

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Post("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Users: specific routes before the generic /:id
	users := api.Group("/users")
	users.Get("/suggestions/for-you", s.AuthRequired(), s.GetSuggestions)
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Delete("/me", s.AuthRequired(), s.DeactivateMe)
	users.Get("/:id/tweets", s.GetUserTweets)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id", s.GetUserProfile)

	// Tweets
	tweets := api.Group("/tweets")
	tweets.Get("/", s.GetTweets)
	tweets.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 30, time.Minute, "create_tweet"), s.CreateTweet)
	tweets.Get("/:id/replies", s.GetTweetReplies)
	tweets.Get("/:id", s.GetTweet)
	tweets.Delete("/:id", s.AuthRequired(), s.DeleteTweet)

	// Interactions
	interactions := api.Group("/interactions", s.AuthRequired())
	interactions.Post("/like", s.LikeTweet)
	interactions.Delete("/like/:tweet_id", s.UnlikeTweet)
	interactions.Post("/retweet", s.Retweet)
	interactions.Delete("/retweet/:tweet_id", s.Unretweet)
	interactions.Post("/reply", middleware.RateLimit(s.redis, 30, time.Minute, "reply"), s.ReplyToTweet)
	interactions.Post("/bookmark", s.BookmarkTweet)
	interactions.Delete("/bookmark/:tweet_id", s.RemoveBookmark)
	interactions.Get("/bookmarks", s.GetBookmarks)
	interactions.Get("/:id/replies", s.GetTweetReplies)
	interactions.Post("/follow", s.FollowUser)
	interactions.Delete("/follow/:user_id", s.UnfollowUser)

	// Notifications
	notes := api.Group("/notifications", s.AuthRequired())
	notes.Get("/", s.GetNotifications)
	notes.Post("/read-all", s.MarkAllNotificationsRead)
	notes.Patch("/:id/read", s.MarkNotificationRead)

	// Hashtags
	api.Get("/hashtags/trending", s.GetTrendingHashtags)

	// Facial expressions
	expressions := api.Group("/facial-expressions", s.AuthRequired())
	expressions.Post("/analyze", middleware.RateLimit(s.redis, 20, time.Minute, "analyze"), s.AnalyzeExpression)
	expressions.Get("/history", s.GetExpressionHistory)
	expressions.Get("/current-mood", s.GetCurrentMood)

	// Live notifications; browsers pass the token as ?token=
	api.Get("/ws/notifications", s.AuthRequired(), s.NotificationsWebSocket())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired rejects requests without a valid, unrevoked bearer token for an
// active account. The websocket route also accepts the token as ?token=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowQuery := websocketPath(c.Path())
		tokenString := middleware.BearerToken(c, allowQuery)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseAccessToken(tokenString, s.config.JWTSecret)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if s.isRevoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		// Tokens outlive deactivation, so the account is re-checked on every request.
		if err := s.authService.EnsureActive(c.UserContext(), claims.UserID); err != nil {
			return respondError(c, err)
		}

		s.setUser(c, claims)
		return c.Next()
	}
}

// optionalUserID resolves the viewer from an Authorization header without
// enforcing it. Invalid or revoked tokens and deactivated accounts read as anonymous.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid, true
	}
	tokenString := middleware.BearerToken(c, false)
	if tokenString == "" {
		return 0, false
	}
	claims, err := middleware.ParseAccessToken(tokenString, s.config.JWTSecret)
	if err != nil || s.isRevoked(c.UserContext(), claims.JTI) {
		return 0, false
	}
	if err := s.authService.EnsureActive(c.UserContext(), claims.UserID); err != nil {
		return 0, false
	}
	s.setUser(c, claims)
	return claims.UserID, true
}

func (s *Server) setUser(c *fiber.Ctx, claims *middleware.AccessClaims) {
	c.Locals("userID", claims.UserID)
	c.Locals("claims", claims)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
}

// isRevoked fails open when Redis errors so a cache outage does not log everyone out.
func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if s.authService == nil {
		return false
	}
	revoked, err := s.authService.IsRevoked(ctx, jti)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", slog.String("error", err.Error()))
		return false
	}
	return revoked
}

// errorHandler maps errors that escape handlers onto the standard error body.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Flock API",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.hub != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring",
				slog.String("hub", s.hub.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
