// Command server starts the AlgoPrep HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ai "github.com/algoprep/algoprep-api/internal/adapter/ai"
	aiopenai "github.com/algoprep/algoprep-api/internal/adapter/ai/openai"
	"github.com/algoprep/algoprep-api/internal/adapter/events"
	"github.com/algoprep/algoprep-api/internal/adapter/httpserver"
	"github.com/algoprep/algoprep-api/internal/adapter/jobsearch"
	"github.com/algoprep/algoprep-api/internal/adapter/lock"
	"github.com/algoprep/algoprep-api/internal/adapter/observability"
	"github.com/algoprep/algoprep-api/internal/adapter/repo/postgres"
	"github.com/algoprep/algoprep-api/internal/adapter/sandbox"
	"github.com/algoprep/algoprep-api/internal/app"
	"github.com/algoprep/algoprep-api/internal/config"
	"github.com/algoprep/algoprep-api/internal/domain"
	"github.com/algoprep/algoprep-api/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	analysisRepo := postgres.NewAnalysisRepo(pool)
	userRepo := postgres.NewUserRepo(pool)
	interviewRepo := postgres.NewInterviewRepo(pool)

	checks := []app.Check{app.DBCheck(pool)}

	// Per-fingerprint write lease; optional, the upsert stays atomic without it.
	var locker domain.Locker = lock.NoopLocker{}
	if cfg.RedisURL != "" {
		redisLocker, err := lock.NewRedisLocker(cfg.RedisURL)
		if err != nil {
			slog.Error("redis connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = redisLocker.Close() }()
		locker = redisLocker
		checks = append(checks, app.Check{Name: "redis", Probe: redisLocker.Ping})
	}

	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.EventsEnabled() {
		kafkaPub, err := events.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			slog.Error("kafka connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = kafkaPub.Close() }()
		publisher = kafkaPub
	}

	model := aiopenai.New(cfg)

	analysisSvc := usecase.NewAnalysisService(analysisRepo, model, ai.NewNormalizer(), locker, publisher, cfg.AnalysisLockTTL)
	authSvc := usecase.NewAuthService(userRepo, httpserver.Argon2Hasher{})
	interviewSvc := usecase.NewInterviewService(interviewRepo)

	jobs := jobsearch.New(cfg.JobSearchBaseURL, cfg.JobSearchAPIKey, 15*time.Second)
	sb := sandbox.New(cfg.SandboxBaseURL, cfg.SandboxTimeout)

	tokens := httpserver.TokenIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}
	srv := httpserver.NewServer(authSvc, analysisSvc, interviewSvc, tokens, jobs, sb)

	checks = append(checks, app.HTTPCheck("sandbox", cfg.SandboxBaseURL+"/about"))
	ready := &app.Readiness{Checks: checks}
	handler := app.BuildRouter(cfg, srv, ready)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
