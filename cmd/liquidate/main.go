package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"liquidate/internal/amqp"
	"liquidate/internal/cli"
	apphttp "liquidate/internal/http"
	"liquidate/internal/ledger/memory"
	applog "liquidate/internal/log"
	"liquidate/internal/reconcile"
	"liquidate/internal/services"
	"liquidate/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	logger.Info("Starting liquidate server")

	cfg := cli.LoadAndValidateConfig(logger)

	var store apphttp.Ledger
	switch cfg.DataBackend {
	case "sqlite":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		store = repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Initialized memory backend")
	}

	// AMQP is optional; without it deletions cascade locally only and
	// report exports are skipped.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPDeleteQueue, cfg.AMQPExportQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without messaging", "error", err)
			amqpClient = nil
		}
	}

	engine := reconcile.New(store, store)
	service := services.NewLiquidationService(engine, store, store, amqpClient)
	defer service.Close()

	srv := apphttp.NewServer(":"+cfg.Port, service, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if amqpClient != nil {
		cascade := worker.NewCascadeWorker(service)
		g.Go(func() error {
			err := amqpClient.ConsumeReceiptDeleted(gctx, cascade.HandleDeleteMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
