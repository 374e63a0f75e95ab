package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "myapp-api/internal/app"
	"myapp-api/internal/bootstrap"
	"myapp-api/internal/config"
	"myapp-api/internal/pkg/jwtutil"
	"myapp-api/internal/pkg/password"
	"myapp-api/internal/repository"
	"myapp-api/internal/transport/http/handler"
	"myapp-api/internal/transport/http/middleware"
	"myapp-api/internal/validation"
)

// Services is everything the routes need. Events, Health and UploadDir are
// optional.
type Services struct {
	Auth      *appsvc.AuthService
	Users     *appsvc.UserService
	Events    *appsvc.EventService
	Config    *config.Config
	Logger    *slog.Logger
	Health    gin.HandlerFunc
	UploadDir string
}

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	cfg := app.Config
	codec, err := jwtutil.NewCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.AccessTokenTTL())
	if err != nil {
		return nil, fmt.Errorf("build token codec failed: %w", err)
	}
	hasher := password.NewHasher(cfg.Auth.BcryptCost)
	userRepo := repository.NewUserRepository(app.MySQL)
	accountCache := app.AccountCache()

	authService := appsvc.NewAuthService(userRepo, accountCache, hasher, codec, cfg.AccessTokenTTL(), app.Logger)
	userService := appsvc.NewUserService(
		userRepo,
		hasher,
		app.Blobs,
		accountCache,
		app.EventPublisher(),
		cfg.Upload.MaxBytes,
		app.Logger,
	)

	return Routes(Services{
		Auth:      authService,
		Users:     userService,
		Events:    appsvc.NewEventService(repository.NewAccountEventRepository(app.MySQL)),
		Config:    cfg,
		Logger:    app.Logger,
		Health:    handler.NewHealthHandler(app).Check,
		UploadDir: app.LocalUploadDir,
	})
}

func Routes(svc Services) (*gin.Engine, error) {
	cfg := svc.Config
	gin.SetMode(cfg.App.GinMode)
	if err := validation.RegisterGinValidators(); err != nil {
		return nil, fmt.Errorf("register validators failed: %w", err)
	}

	router := gin.New()
	router.Use(
		middleware.RequestLogger(svc.Logger, "/health", "/healthz"),
		middleware.Recovery(svc.Logger),
	)
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			CustomSchemas:    []string{"exp://"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/", handler.Root)
	router.GET("/health", handler.Liveness)
	if svc.Health != nil {
		router.GET("/healthz", svc.Health)
	}
	if svc.UploadDir != "" {
		router.Static("/uploads", svc.UploadDir)
	}

	requireUser := middleware.AuthJWT(svc.Auth, svc.Logger)
	authHandler := handler.NewAuthHandler(svc.Auth, svc.Users, cfg.App.Env == "dev", svc.Logger)
	userHandler := handler.NewUserHandler(svc.Users, svc.Events, svc.Logger)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/token", authHandler.Token)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireUser, authHandler.Me)
	authGroup.POST("/create-test-user", authHandler.CreateTestUser)

	userGroup := api.Group("/users")
	userGroup.POST("/", userHandler.Create)
	userGroup.GET("/", userHandler.List)
	userGroup.GET("/:id", requireUser, userHandler.Get)
	userGroup.PUT("/:id", requireUser, userHandler.Update)
	userGroup.DELETE("/:id", requireUser, userHandler.Delete)
	userGroup.POST("/:id/upload-profile-image", requireUser, userHandler.UploadProfileImage)
	if svc.Events != nil {
		userGroup.GET("/:id/events", requireUser, userHandler.Events)
	}

	return router, nil
}
