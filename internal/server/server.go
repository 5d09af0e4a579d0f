// Package server contains the HTTP handlers and routing of the blog API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "blogicum/docs" // swagger docs
	"blogicum/internal/bootstrap"
	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/featureflags"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/service"

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
	now            func() time.Time
	tokens         *middleware.TokenManager
	blacklist      *cache.TokenBlacklist
	featureFlags   *featureflags.Manager
	images         *service.ImageStore
	userRepo       repository.UserRepository
	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the wall clock used for visibility decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer connects to the database and Redis and builds a server.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedReference: cfg.SeedReferenceData})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient, opts...)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	if db == nil {
		return nil, errors.New("server: nil database")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogicum-api"),
		now:            time.Now,
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		blacklist:      cache.NewTokenBlacklist(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         service.NewImageStore(cfg),
		userRepo:       userRepo,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.postService = service.NewPostService(postRepo, commentRepo, categoryRepo, locationRepo, userRepo, s.images)
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.userService = service.NewUserService(userRepo, s.postService)

	middleware.Logger.Info("feature flags loaded", slog.Any("flags", s.featureFlags.Snapshot(0)))
	return s, nil
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if s.config.ImageMaxUploadSizeMB > 0 {
		bodyLimit = (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:       "Blogicum API",
		BodyLimit:     bodyLimit,
		StrictRouting: false,
		ErrorHandler:  s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler answers errors no handler dealt with: unknown routes get the
// 404 body, everything else a 500 without details.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Path()))
		case fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest:
			return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
		}
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panics become 500s through the error handler.
	app.Use(recover.New())

	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Resolve the user before copying ids into the request context. A token
	// that cannot be checked against the blacklist is not trusted.
	app.Use(middleware.Authenticate(s.tokens, s.blacklist, middleware.FailClosed))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
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

// SetupRoutes configures all routes for the application.
// Trailing slashes are optional because StrictRouting is off.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Static("/media", s.images.Dir(), fiber.Static{ByteRange: true, MaxAge: 3600})

	login := service.LoginPath
	requireUser := middleware.RequireUser(login)

	app.Get("/", s.Index)
	app.Get("/category/:slug", s.CategoryPosts)
	app.Get("/profile/:username", s.Profile)

	app.Post("/posts/create", requireUser,
		middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	app.Get("/posts/:id", s.PostDetail)
	app.Get("/posts/:id/edit", requireUser, s.EditPostForm)
	app.Post("/posts/:id/edit", requireUser, s.UpdatePost)
	app.Get("/posts/:id/delete", requireUser, s.DeletePostForm)
	app.Post("/posts/:id/delete", requireUser, s.DeletePost)

	app.Post("/posts/:id/comment", requireUser,
		middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	app.Get("/posts/:id/edit_comment/:cid", requireUser, s.EditCommentForm)
	app.Post("/posts/:id/edit_comment/:cid", requireUser, s.UpdateComment)
	app.Get("/posts/:id/delete_comment/:cid", requireUser, s.EditCommentForm)
	app.Post("/posts/:id/delete_comment/:cid", requireUser, s.DeleteComment)

	app.Get("/edit_profile", requireUser, s.EditProfileForm)
	app.Post("/edit_profile", requireUser, s.UpdateProfile)

	auth := app.Group("/auth")
	registration := s.featureFlags.Gate(featureflags.Registration, middleware.CurrentUserID)
	auth.Get("/registration", registration, s.RegistrationForm)
	auth.Post("/registration", registration,
		middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Register)
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimitWithPolicy(
		s.redis, 10, 5*time.Minute, middleware.FailOpen, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	pages := app.Group("/pages")
	pages.Get("/about", s.About)
	pages.Get("/rules", s.Rules)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without
// it rate limits fail open and logout cannot revoke tokens, so it only
// degrades readiness when configured but unreachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": s.now().UTC(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
	}
	if err := database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
