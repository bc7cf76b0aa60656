package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/panelapi/panel-api/internal/api/handler"
	"github.com/panelapi/panel-api/internal/api/middleware"
	"github.com/panelapi/panel-api/internal/core/domain"
	"github.com/panelapi/panel-api/internal/core/service"
	"github.com/panelapi/panel-api/internal/infrastructure/config"
	mongostore "github.com/panelapi/panel-api/internal/infrastructure/db/mongo"
	redisstore "github.com/panelapi/panel-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("panel"))

	// --- Dependencies ---
	identityRepo := mongostore.NewIdentityRepository(db)
	tokenRepo := mongostore.NewTokenRepository(db)
	refreshGuard := redisstore.NewRefreshGuard(rdb, cfg.JWT.RefreshTTL)
	tokenService := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL)
	authService := service.NewAuthService(identityRepo, tokenRepo, tokenService, refreshGuard, cfg.JWT.RefreshTTL, log)

	authHandler := handler.NewAuthHandler(authService)
	protectedHandler := handler.NewProtectedHandler()
	authMiddleware := middleware.Auth(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	// --- Authorization routes ---
	auth := e.Group("/api/authorization")
	auth.POST("/login", authHandler.Login)
	auth.POST("/registration", authHandler.Registration)
	auth.POST("/changepassword", authHandler.ChangePassword)
	auth.POST("/refresh", authHandler.Refresh)

	// --- Protected routes ---
	protected := e.Group("/api/protected", authMiddleware, middleware.RBAC(domain.RoleUser, domain.RoleAdmin))
	protected.GET("/getdata", protectedHandler.GetData)

	admin := e.Group("/api/admin", authMiddleware, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/getdata", protectedHandler.GetAdminData)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
