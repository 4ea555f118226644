package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/amqp"
	"github.com/ndegwamoche/budget-tracker/internal/cli"
	"github.com/ndegwamoche/budget-tracker/internal/config"
	"github.com/ndegwamoche/budget-tracker/internal/log"
	"github.com/ndegwamoche/budget-tracker/internal/store/mongo"
	"github.com/ndegwamoche/budget-tracker/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(log.ComponentWorker, cfg.LogJSON)

	logger.Info("Starting budget-worker")

	cli.MustValidateConfig(logger, cfg)

	if cfg.MongoURI == "" {
		logger.Error("MONGO_URI is required: the worker pushes local writes to the remote store")
		os.Exit(1)
	}

	// Local SQLite store holding the outbound sync queue
	localStore := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer localStore.Close()

	// Remote store the queue drains into
	remoteStore, cleanup, err := mongo.Connect(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Error("Failed to connect to remote store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Remote store cleanup failed", "error", err)
		}
	}()

	// AMQP client for consuming wake-up messages
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(localStore, remoteStore, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// On startup, drain anything that accumulated while the worker was down
	logger.Info("Performing startup sync check...")
	if n, err := syncWorker.ProcessBatch(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
		// Don't exit - continue with normal operation
	} else if n > 0 {
		logger.Info("Startup sync check complete", "synced", n)
	}

	// Consume wake-up messages published by the API server
	go func() {
		handler := func(msg *amqp.RecordSyncMessage) error {
			return syncWorker.HandleSyncMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeRecordSync(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}
	}()

	// Periodic polling backs up the message path in case messages are lost
	go func() {
		if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Periodic sync loop failed", "error", err)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
