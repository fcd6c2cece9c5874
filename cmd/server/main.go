package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/api"
	"github.com/lid-trainer/backend/internal/app"
	"github.com/lid-trainer/backend/internal/infrastructure/config"
	"github.com/lid-trainer/backend/internal/infrastructure/logger"
	"github.com/lid-trainer/backend/internal/service"

	_ "github.com/lid-trainer/backend/docs" // swagger docs
)

// @title           Leben in Deutschland Trainer API
// @version         1.0
// @description     Exam sessions, results and mistake practice for the Leben in Deutschland test.

// @host      localhost:8080
// @BasePath  /

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Dependencies ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("failed to initialise", zap.Error(err))
	}
	defer a.Close()

	if n, err := a.Manager.AbandonStaleSessions(ctx); err != nil {
		log.Warn("startup stale-session sweep failed", zap.Error(err))
	} else if n > 0 {
		log.Info("abandoned stale sessions", zap.Int("count", n))
	}
	go service.NewJanitor(a.Manager, cfg.JanitorInterval, log).Run(ctx)

	handler := api.NewHandler(api.Deps{
		Manager:     a.Manager,
		Results:     a.Results,
		Preferences: a.Preferences,
		Mistakes:    a.Mistakes,
		Content:     a.Content,
		Metrics:     a.Metrics,
		Logger:      log,
	})

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Logging → CORS → RateLimit → mux ──────────
	chain := api.Logging(log, a.Metrics)(
		api.CORS(cfg.AllowedOrigins)(
			api.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)(mux),
		),
	)

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	log.Info("starting server",
		zap.String("address", cfg.ServerAddress),
		zap.String("storage", cfg.Storage.Backend),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed to start", zap.Error(err))
		return
	}
}
