package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/featureflags"
	"github.com/aryan0dhankhar/storepulse/internal/handler"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/redislock"
	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/observability/tracing"
	"github.com/aryan0dhankhar/storepulse/internal/queue"
	"github.com/aryan0dhankhar/storepulse/internal/repository"
	"github.com/aryan0dhankhar/storepulse/internal/repository/memory"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
	"github.com/aryan0dhankhar/storepulse/internal/security/auth"
	"github.com/aryan0dhankhar/storepulse/internal/security/middleware"
	"github.com/aryan0dhankhar/storepulse/internal/security/ratelimit"
	"github.com/aryan0dhankhar/storepulse/internal/service"
	"github.com/aryan0dhankhar/storepulse/internal/worker"
	"github.com/aryan0dhankhar/storepulse/pkg/config"
	"github.com/aryan0dhankhar/storepulse/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting StorePulse server",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.Storage),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, "storepulse", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer tcancel()
		_ = shutdownTracing(tctx)
	}()

	// 4. Storage
	var st domain.UnitOfWork
	switch cfg.Storage {
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")
		st = memory.New()
	default:
		pool, err := database.NewConnectionPool(ctx, &database.Config{
			URL:             cfg.DatabaseURL,
			Host:            cfg.DB.Host,
			Port:            cfg.DB.Port,
			User:            cfg.DB.User,
			Password:        cfg.DB.Password,
			Database:        cfg.DB.Name,
			SSLMode:         cfg.DB.SSLMode,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		if err := repository.EnsureSchema(ctx, pool.GetDB()); err != nil {
			log.Error("failed to apply schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		st = repository.NewPostgresStore(pool.GetDB(), log)
	}

	// 5. Redis for the job queue and admission locks (optional)
	checks := map[string]handler.Pinger{"database": st}
	var dispatcher queue.Dispatcher = queue.LogDispatcher{Logger: log}
	var locker redislock.Locker
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()

		checks["redis"] = redisClient
		dispatcher = queue.NewRedisDispatcher(redisClient, cfg.JobQueueKey, log)
		if featureflags.Enabled(featureflags.AdmissionLock) {
			locker = redislock.New(redisClient.Raw(), 10*time.Second, log)
		}
	} else {
		checks["redis"] = nil
		log.Warn("REDIS_URL not set; admitted analyses are only logged")
	}

	// 6. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	rateLimiter := ratelimit.NewLimiter(cfg.APIRateLimit, cfg.APIRateWindow)
	auditLogger := audit.NewLogger(log)
	authz := security.NewAuthorizationService(log)

	// 7. Initialize services
	impact := service.NewImpactService(st.Suggestions(), cfg.DashboardCacheTTL, log)
	admission := service.NewAdmissionService(st, cfg.Admission, dispatcher, locker, auditLogger, log)
	analyses := service.NewAnalysisService(st, cfg.Admission.RefundFailed, impact, auditLogger, log)
	credits := service.NewCreditService(st, auditLogger, log)
	suggestions := service.NewSuggestionService(st, impact, auditLogger, log)
	steps := service.NewStepService(st, auditLogger, log)
	tasks := service.NewTaskService(st, auditLogger, log)
	comments := service.NewCommentService(st, auditLogger, log)

	// 8. Setup HTTP routes
	mux := http.NewServeMux()
	handler.Routes{
		Health:      handler.NewHealthHandler(checks, log),
		Analyses:    handler.NewAnalysisHandler(admission, analyses, authz, log),
		Stream:      handler.NewAnalysisStreamHandler(admission, authz, log, cfg.CORSAllowedOrigins),
		Credits:     handler.NewCreditHandler(credits, authz, log),
		Suggestions: handler.NewSuggestionHandler(suggestions, authz, log),
		Steps:       handler.NewStepHandler(steps, authz, log),
		Tasks:       handler.NewTaskHandler(tasks, authz, log),
		Comments:    handler.NewCommentHandler(comments, authz, log),
		Impact:      handler.NewImpactHandler(impact, authz, log),
		Metrics:     promhttp.Handler(),
	}.Register(mux)

	// Chain middleware: request ID -> CORS -> JWT -> rate limit -> audit -> validation -> metrics
	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = middleware.SanitizeInputs(log)(root)
	root = middleware.ValidateJSONContentType(log)(root)
	root = middleware.AuditMiddleware(auditLogger)(root)
	root = middleware.RateLimitMiddleware(rateLimiter, log)(root)
	root = middleware.JWTMiddleware(tokenManager, log)(root)
	root = middleware.CORS(cfg.CORSAllowedOrigins)(root)
	root = middleware.RequestID(log)(root)
	root = otelhttp.NewHandler(root, "storepulse")

	// 9. Start stale analysis worker in background
	if featureflags.EnabledOr(featureflags.StaleWorker, true) {
		staleWorker := worker.NewStaleAnalysisWorker(analyses, log, cfg.StaleCheckInterval, cfg.StaleAnalysisAfter)
		go staleWorker.Start(ctx)
	}

	// 10. Start HTTP server
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:     root,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset so the analysis stream is not cut off.
		IdleTimeout: 60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.APIRateLimit),
		slog.Duration("rate_limit_window", cfg.APIRateWindow),
		slog.Int("credit_cost", cfg.Admission.CreditCost),
		slog.Int("cooldown_minutes", cfg.Admission.CooldownMinutes),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop stale analysis worker
	rateLimiter.Stop()
	log.Info("server stopped")
}
