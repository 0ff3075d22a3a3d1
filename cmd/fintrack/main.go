// Command fintrack serves the finance and report HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("Server error", log.FieldError, err, log.FieldOperation, log.OpStartup)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	storeRes, _, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Warn("Store close failed", log.FieldError, err)
		}
	}()
	store := storeRes.Store

	reports := services.NewReportService(store, cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(reports.Cleaner())
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	// Events are optional: the API keeps serving when the broker is down.
	var publisher services.EventPublisher
	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Warn("Continuing without events", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
	} else if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	finance := services.NewFinanceService(store, publisher, reports, logger)
	feedback := services.NewFeedbackService(store, logger)
	srv := apphttp.NewServer(":"+cfg.Port, finance, reports, feedback, store, apphttp.Options{
		RateLimitPerMinute:         cfg.RateLimitPerMinute,
		FeedbackRateLimitPerMinute: cfg.FeedbackRateLimitPerMinute,
		Logger:                     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
