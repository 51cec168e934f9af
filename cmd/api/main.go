package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/adapters/audio"
	"github.com/ewilliams-labs/rubato/backend/internal/adapters/onset"
	"github.com/ewilliams-labs/rubato/backend/internal/adapters/rest"
	"github.com/ewilliams-labs/rubato/backend/internal/adapters/sqlite"
	"github.com/ewilliams-labs/rubato/backend/internal/config"
	"github.com/ewilliams-labs/rubato/backend/internal/core/analysis"
	"github.com/ewilliams-labs/rubato/backend/internal/core/services"
	"github.com/ewilliams-labs/rubato/backend/internal/logging"
	"github.com/ewilliams-labs/rubato/backend/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "rubato-api")
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		logger.Fatal("failed to load tuning", zap.Error(err))
	}

	// Driven adapters.
	repo, err := sqlite.NewAdapter(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer repo.Close()

	decoder := audio.NewDecoder()
	detector := onset.NewDetector()

	// Core.
	analyzer := analysis.New(detector, tuning, logger.Named("analysis"))

	pool := worker.NewPool(repo, analyzer, cfg.QueueSize, logger.Named("worker"))
	pool.Start(cfg.Workers)
	defer pool.Stop()

	svc := services.NewOrchestrator(repo, decoder, pool, analyzer, logger.Named("service"))

	// Driving adapter.
	handler := rest.NewHandler(svc, logger.Named("rest"))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Addr), zap.Int("workers", cfg.Workers))
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}
