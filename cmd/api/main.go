package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/riskgate/internal/anomaly"
	"github.com/BradenHooton/riskgate/internal/auth"
	"github.com/BradenHooton/riskgate/internal/background"
	"github.com/BradenHooton/riskgate/internal/config"
	"github.com/BradenHooton/riskgate/internal/database"
	"github.com/BradenHooton/riskgate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/riskgate/internal/middleware"
	"github.com/BradenHooton/riskgate/internal/observability"
	"github.com/BradenHooton/riskgate/internal/repositories"
	"github.com/BradenHooton/riskgate/internal/risk"
	"github.com/BradenHooton/riskgate/internal/routes"
	"github.com/BradenHooton/riskgate/internal/services"
	pkghttp "github.com/BradenHooton/riskgate/pkg/http"
	pkglogger "github.com/BradenHooton/riskgate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// historyBackend is what every history store offers the process
type historyBackend interface {
	services.HistoryStore
	background.Pruner
	handlers.Pinger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("history_backend", cfg.History.Backend),
		slog.String("credential_backend", cfg.Credentials.Backend),
		slog.String("challenge_mode", cfg.Auth.ChallengeMode),
	)

	// Tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}

	// Train the temporal detector before anything listens. An untrained
	// detector must never reach the engine.
	detector, err := buildDetector(cfg.Anomaly, logger)
	if err != nil {
		logger.Error("failed to train anomaly detector", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database if any store needs it
	var db *database.DB
	if cfg.UsesPostgres() {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
	}

	// Initialize repositories
	history, closeHistory, err := buildHistory(cfg, db, logger)
	if err != nil {
		logger.Error("failed to initialize history store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeHistory()

	users, err := buildCredentials(cfg, db)
	if err != nil {
		logger.Error("failed to initialize credential store", slog.Any("error", err))
		os.Exit(1)
	}

	// Risk engine
	engine := risk.NewDefaultEngine(cfg.Risk, history, risk.NewStaticBlocklist(cfg.Risk.Blocklist...), detector, logger)

	// Token manager and second factor
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry, cfg.Auth.ChallengeTokenExpiry)

	verifier, err := buildVerifier(cfg.Auth)
	if err != nil {
		logger.Error("failed to initialize challenge verifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	mask := cfg.Server.Env == "production"
	auditLogger := pkglogger.NewAuditLogger(logger, mask)

	notifier, err := buildNotifier(cfg, logger, mask)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.FailureBaseDelay,
		RandomDelay: cfg.Auth.FailureRandomDelay,
	})

	loginService := services.NewLoginService(users, history, engine, cfg.Risk.Policy, tokenManager, logger, auditLogger).
		WithNotifier(notifier).
		WithTimingDelay(timingDelay)
	challengeService := services.NewChallengeService(verifier, tokenManager, logger, auditLogger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: pkghttp.ParseTrustedProxies(cfg.Server.TrustedProxies)}
	authHandler := handlers.NewAuthHandler(loginService, challengeService, ipConfig, logger)
	healthHandler := handlers.NewHealthHandler(history, cfg.History.Backend, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, healthHandler, tokenManager, routes.Options{
		RateLimit:      middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.RateLimitPerMinute},
		MetricsHandler: observability.MetricsHandler(),
		LegacyPaths:    cfg.Server.LegacyPaths,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start retention sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	var sweeper *background.RetentionSweeper
	if cfg.History.Retention > 0 {
		sweeper = background.NewRetentionSweeper(history, logger, cfg.History.Retention, cfg.History.SweepInterval)
		go sweeper.Start(sweepCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildDetector(cfg config.AnomalyConfig, logger *slog.Logger) (risk.HourClassifier, error) {
	if cfg.Mode == config.AnomalyModeBand {
		logger.Info("using fixed-band hour classifier",
			slog.Int("start", cfg.Temporal.BandStart),
			slog.Int("end", cfg.Temporal.BandEnd),
		)
		return anomaly.BandDetector{Start: cfg.Temporal.BandStart, End: cfg.Temporal.BandEnd}, nil
	}

	detector, err := anomaly.TrainTemporalDetector(cfg.Temporal)
	if err != nil {
		return nil, err
	}
	logger.Info("temporal anomaly detector trained",
		slog.Int64("seed", cfg.Temporal.Seed),
		slog.Int("trees", cfg.Temporal.Trees),
		slog.Float64("threshold", detector.Threshold()),
	)
	return detector, nil
}

func buildHistory(cfg *config.Config, db *database.DB, logger *slog.Logger) (historyBackend, func(), error) {
	switch cfg.History.Backend {
	case config.BackendPostgres:
		return repositories.NewLoginAttemptRepository(db), func() {}, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info("redis connection established", slog.String("addr", cfg.Redis.Addr))
		return repositories.NewRedisHistoryStore(rdb, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }, nil
	default:
		logger.Warn("using in-memory login history; attempts are lost on restart")
		return repositories.NewMemoryHistoryStore(), func() {}, nil
	}
}

func buildCredentials(cfg *config.Config, db *database.DB) (services.CredentialStore, error) {
	if cfg.Credentials.Backend == config.BackendPostgres {
		return repositories.NewUserRepository(db), nil
	}
	return repositories.NewMemoryUserStoreFromList(cfg.Credentials.DemoUsers, cfg.Credentials.BcryptCost)
}

func buildVerifier(cfg config.AuthConfig) (auth.CodeVerifier, error) {
	if cfg.ChallengeMode == config.ChallengeModeTOTP {
		return auth.NewTOTPVerifier(cfg.TOTPSecret)
	}
	return auth.NewStaticCodeVerifier(cfg.StaticCode)
}

func buildNotifier(cfg *config.Config, logger *slog.Logger, mask bool) (services.Notifier, error) {
	logNotifier := services.NewLogNotifier(logger, mask)
	if !cfg.Notify.Enabled() {
		return logNotifier, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ses, err := services.NewSESNotifier(ctx, cfg.Notify.SESRegion, cfg.Notify.SESFromAddress, logNotifier, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("block alerts enabled", slog.String("region", cfg.Notify.SESRegion))
	return ses, nil
}
