package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gerich15/cohortsec/internal/biometric"
	"github.com/gerich15/cohortsec/internal/core/port"
	"github.com/gerich15/cohortsec/internal/infra/config"
	"github.com/gerich15/cohortsec/internal/infra/database"
	kafkainfra "github.com/gerich15/cohortsec/internal/infra/kafka"
	"github.com/gerich15/cohortsec/internal/infra/logger"
	redisinfra "github.com/gerich15/cohortsec/internal/infra/redis"
	"github.com/gerich15/cohortsec/internal/infra/security"
	postgresrepo "github.com/gerich15/cohortsec/internal/repository/postgres"
	redisrepo "github.com/gerich15/cohortsec/internal/repository/redis"
	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/transport/http/routes"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// Application owns long-lived resources and the HTTP server lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	auth     *usecase.AuthService
}

// sessionSweepInterval paces the garbage collection of expired refresh
// sessions. Expired rows are already rejected on use; the sweep bounds
// table growth.
const sessionSweepInterval = time.Hour

// New builds the full service graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := database.RunMigrations(ctx, cfg.Postgres); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	cipherAlg, err := security.ParseCipherAlgorithm(cfg.Crypto.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	fieldCipher, err := security.NewFieldCipher(cipherAlg, cfg.Crypto.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	encoder := biometric.NewDigestEncoder(biometric.EncoderConfig{
		MinWidth:     cfg.Biometric.MinImageWidth,
		MinHeight:    cfg.Biometric.MinImageHeight,
		MaxDimension: cfg.Biometric.MaxImageDimension,
	})

	repos := postgresrepo.NewRepositories(pool)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	authService := usecase.NewAuthService(
		repos.Accounts,
		repos.Sessions,
		tokenIssuer,
		hasher,
		eventPublisher,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.MFAPendingTTL,
	)
	registrationService := usecase.NewRegistrationService(repos.Accounts, hasher, security.DefaultPasswordValidator(), eventPublisher)
	mfaService := usecase.NewMFAService(repos.Accounts, fieldCipher, authService, cfg.App.Name)
	biometricService := usecase.NewBiometricService(
		repos.Biometric,
		repos.Accounts,
		encoder,
		fieldCipher,
		authService,
		eventPublisher,
		cfg.Biometric.MaxTemplates,
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.MetricsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			MFA:          mfaService,
			Biometric:    biometricService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		auth:     authService,
	}, nil
}

// runSessionSweeper purges expired refresh sessions on a fixed interval
// until ctx is cancelled.
func (a *Application) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.auth.PurgeExpiredSessions(ctx)
			if err != nil {
				a.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails. Resources are released on the way out.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting API server",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	go a.runSessionSweeper(ctx)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
