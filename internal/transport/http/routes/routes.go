package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gerich15/cohortsec/internal/infra/config"
	"github.com/gerich15/cohortsec/internal/transport/http/handlers"
	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	MFA          *usecase.MFAService
	Biometric    *usecase.BiometricService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	var healthChecks []handlers.ReadinessCheck
	if deps.Database != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "database", Probe: deps.Database.Ping})
	}
	if deps.Cache != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "redis", Probe: deps.Cache.HealthCheck})
	}

	healthHandler := handlers.NewHealthHandler(healthChecks...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limits := deps.Config.RateLimit
	var loginLimiter, registerLimiter, refreshLimiter, biometricLimiter gin.HandlerFunc
	if deps.RateLimiter != nil {
		loginLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:       "login",
			Limit:      limits.LoginMaxAttempts,
			Window:     limits.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})
		registerLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:       "register",
			Limit:      limits.RegisterMaxAttempts,
			Window:     limits.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})
		refreshLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:       "refresh",
			Limit:      limits.RefreshMaxAttempts,
			Window:     limits.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})
		biometricLimiter = deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:       "biometric-login",
			Limit:      limits.BiometricLoginMaxAttempts,
			Window:     limits.WindowDuration,
			Identifier: middleware.ClientIPIdentifier(),
		})
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)
		authHandler.RegisterRoutes(authGroup, loginLimiter, registerLimiter, refreshLimiter)

		mfaGroup := api.Group("/auth/mfa")
		mfaHandler := handlers.NewMFAHandler(deps.Services.Auth, deps.Services.MFA)
		mfaHandler.RegisterRoutes(mfaGroup)

		biometricGroup := api.Group("/auth/biometric")
		biometricHandler := handlers.NewBiometricHandler(deps.Services.Auth, deps.Services.Biometric)
		biometricHandler.RegisterRoutes(biometricGroup, biometricLimiter, biometricLimiter)
	}

	return r
}
