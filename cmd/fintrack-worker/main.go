// Command fintrack-worker exports transactions to Google Sheets from the
// event queue and periodically reconciles goal totals.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

const stopTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	storeRes, bcfg, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Warn("Store close failed", log.FieldError, err)
		}
	}()
	store := storeRes.Store

	ledger, err := backend.NewFactory(logger).CreateLedger(ctx, bcfg)
	if err != nil {
		return err
	}
	exporter := worker.NewExportWorker(store, ledger)

	// The ledger may have missed events while the worker was down.
	year := time.Now().Year()
	if n, err := exporter.BackfillYear(ctx, year); err != nil {
		logger.Error("Startup backfill failed", log.FieldError, err, log.FieldOperation, log.OpExport)
	} else {
		logger.Info("Startup backfill complete", "year", year, "exported", n)
	}

	// The API process owns the report cache; its TTL absorbs repairs made here.
	reconciler := services.NewGoalReconciler(store, cfg.ReconcileRepair, nil)
	scheduler := services.NewReconcileScheduler(reconciler, cfg.ReconcileSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	logger.Info("Goal reconciler scheduled",
		"schedule", cfg.ReconcileSchedule,
		"repair", cfg.ReconcileRepair)

	g, gctx := errgroup.WithContext(ctx)

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		return err
	}
	if amqpClient != nil {
		defer amqpClient.Close()
		g.Go(func() error {
			return amqpClient.Consume(gctx, exporter.HandleEvent)
		})
	} else {
		logger.Info("Skipping event consumption - no AMQP client available")
	}

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
