package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"botforge/internal/api"
	"botforge/internal/common/config"
	"botforge/internal/common/logger"
	"botforge/internal/common/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": cfg.App.Name})

	log.Info("starting chat server", map[string]interface{}{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	})

	obs := observability.New(cfg.Observability, log)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	app, err := build(ctx, cfg, obs, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}

	app.startWorkers(cfg, log)

	server := api.NewServer(app.service, cfg.Server, config.GetDuration(cfg.Pipeline.RequestTimeout), log)
	for name, check := range app.readiness {
		server.AddReadinessCheck(name, check)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil {
			log.Error("http server failed", map[string]interface{}{"error": err})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err})
	}
	app.close(shutdownCtx, log)

	log.Info("chat server stopped gracefully", nil)
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
