package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/umstimetable/timetable-api/config"
	"github.com/umstimetable/timetable-api/internal/cache"
	"github.com/umstimetable/timetable-api/internal/database/postgres"
	"github.com/umstimetable/timetable-api/internal/handlers"
	"github.com/umstimetable/timetable-api/internal/middleware"
	"github.com/umstimetable/timetable-api/internal/portal"
	"github.com/umstimetable/timetable-api/internal/repository"
	"github.com/umstimetable/timetable-api/internal/services"
	"github.com/umstimetable/timetable-api/internal/session"
	"github.com/umstimetable/timetable-api/pkg/anticaptcha"
	"github.com/umstimetable/timetable-api/pkg/db"
	"github.com/umstimetable/timetable-api/pkg/httpclient"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"github.com/umstimetable/timetable-api/pkg/metrics"
	"github.com/umstimetable/timetable-api/pkg/profiling"
	"github.com/umstimetable/timetable-api/pkg/storage"
	"github.com/umstimetable/timetable-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// solverHTTPTimeout bounds a single anti-captcha API call; result polling has its own limit
const solverHTTPTimeout = 30 * time.Second

var _ services.HistoryRecorder = (*repository.RefreshHistoryRepository)(nil)

// registerRoutes registers the timetable API and operational endpoints
func registerRoutes(
	router *gin.Engine,
	cfg *config.Config,
	apiRateLimiter, refreshRateLimiter *middleware.RateLimiter,
	timetableHandler *handlers.TimetableHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.GET("/", healthHandler.Index)
	router.GET("/health", healthHandler.Healthcheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/timetable", apiRateLimiter.Middleware(), timetableHandler.GetTimetable)
	api.GET("/timetable/status", apiRateLimiter.Middleware(), timetableHandler.GetStatus)
	api.POST("/timetable/refresh",
		refreshRateLimiter.Middleware(),
		middleware.RefreshTokenMiddleware(cfg.Auth.RefreshAPIToken),
		timetableHandler.RefreshTimetable)

	router.NoRoute(handlers.NotFound)
}

// newHistoryRecorder opens the history database when DATABASE_URL is set.
// The returned close func is never nil.
func newHistoryRecorder(ctx context.Context, cfg *config.Config) (services.HistoryRecorder, func(), error) {
	if !cfg.Database.HistoryEnabled() {
		logger.Info("Refresh history disabled: DATABASE_URL not set")
		return nil, func() {}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConns,
		MinConns:   cfg.Database.MinConns,
		CACertPath: cfg.Database.CACertPath,
	})
	if err != nil {
		return nil, func() {}, err
	}

	client := postgres.NewClient(pool)
	logger.Info("Refresh history enabled")
	return repository.NewRefreshHistoryRepository(client), client.Close, nil
}

func newCaptchaArchive(cfg *config.Config) (portal.CaptchaArchive, error) {
	if !cfg.CaptchaStore.Enabled {
		return nil, nil
	}
	return storage.NewCaptchaArchive(storage.Options{
		AccessKeyID:     cfg.CaptchaStore.AccessKeyID,
		SecretAccessKey: cfg.CaptchaStore.SecretAccessKey,
		BucketName:      cfg.CaptchaStore.BucketName,
		Endpoint:        cfg.CaptchaStore.Endpoint,
		Region:          cfg.CaptchaStore.Region,
	})
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting timetable API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("portal", cfg.Portal.BaseURL),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(tracing.Service{
		Name:        cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	}, cfg.Observability.AlloyEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Start infrastructure metrics collection
	metrics.RecordInfrastructureMetrics()

	// Refresh history is optional; migrations run separately via cmd/migrate
	history, closeHistory, err := newHistoryRecorder(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize refresh history database", zap.Error(err))
	}
	defer closeHistory()

	archive, err := newCaptchaArchive(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize captcha archive", zap.Error(err))
	}

	// Portal pipeline
	portalClient, err := portal.NewClient(portal.ClientOptions{
		BaseURL:    cfg.Portal.BaseURL,
		Timeout:    cfg.Portal.RequestTimeout(),
		Retries:    cfg.Portal.TransportRetries,
		RetryDelay: cfg.Portal.RetryDelay(),
	})
	if err != nil {
		logger.Fatal("Failed to initialize portal client", zap.Error(err))
	}

	solver := anticaptcha.NewClient(cfg.AntiCaptcha.APIKey, httpclient.NewClientWithTimeout(solverHTTPTimeout))
	sessionStore := session.NewStore(nil)

	authenticator := portal.NewAuthenticator(portalClient, sessionStore, solver, portal.AuthOptions{
		Username:            cfg.Portal.Username,
		Password:            cfg.Portal.Password,
		MinBalance:          cfg.AntiCaptcha.MinBalance,
		SessionTTL:          cfg.Timetable.SessionTTL(),
		PuzzleMaxIterations: cfg.AntiCaptcha.PuzzleMaxIterations,
		Verbose:             cfg.Logging.Verbose,
		Archive:             archive,
	})

	var fetcher cache.TimetableFetcher = portal.NewFetcher(portalClient, sessionStore, authenticator, cfg.Portal.TermID, cfg.Timetable.MaxRetries)
	if history != nil {
		fetcher = services.NewHistoryFetcher(fetcher, history, nil)
	}

	timetableCache := cache.NewTimetableCache(fetcher, cfg.Timetable.CacheTTL(), nil)
	timetableService := services.NewTimetableService(timetableCache)

	// Initialize handlers
	timetableHandler := handlers.NewTimetableHandler(timetableService)
	healthHandler := handlers.NewHealthHandler(cfg.Server.AppEnv)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := []string{cfg.Server.FrontendURL}
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:5173", "http://127.0.0.1:5173")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RefreshTokenHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	apiRateLimiter := middleware.NewRateLimiter(20, 40)    // 20 req/sec, burst of 40
	refreshRateLimiter := middleware.NewRateLimiter(0.1, 3) // 1 req/10s, burst of 3; the cache gate does the real limiting
	defer apiRateLimiter.Stop()
	defer refreshRateLimiter.Stop()

	registerRoutes(router, cfg, apiRateLimiter, refreshRateLimiter, timetableHandler, healthHandler)

	// Portal logins can take a while (captcha solving plus retries), so the
	// write timeout has to cover a full refresh
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
