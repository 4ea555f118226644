package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/amqp"
	"github.com/ndegwamoche/budget-tracker/internal/backend"
	"github.com/ndegwamoche/budget-tracker/internal/cli"
	"github.com/ndegwamoche/budget-tracker/internal/config"
	apphttp "github.com/ndegwamoche/budget-tracker/internal/http"
	"github.com/ndegwamoche/budget-tracker/internal/log"
	"github.com/ndegwamoche/budget-tracker/internal/services"
	"github.com/ndegwamoche/budget-tracker/internal/session"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(log.ComponentApp, cfg.LogJSON)
	cli.MustValidateConfig(logger, cfg)

	ctx := context.Background()

	// Choose data backend (default: memory).
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}
	be := result.Backend
	logger.Info("Initialized data backend", "backend", cfg.DataBackend)

	// Session cache: shared Redis when configured, in-process LRU otherwise.
	var sessionCache session.Cache
	if cfg.RedisURL != "" {
		redisCache, err := session.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		sessionCache = redisCache
		logger.Info("Session cache using Redis")
	} else {
		sessionCache = session.NewLocalCache(1024, 10*time.Minute)
		logger.Info("Session cache using in-process LRU")
	}
	verifier, err := session.NewVerifier(cfg.SessionSecret, sessionCache)
	if err != nil {
		logger.Error("Failed to initialize session verifier", "error", err)
		os.Exit(1)
	}

	// When running offline-first on SQLite, published messages wake the
	// sync worker so local writes reach the remote store promptly.
	var publisher services.Publisher
	if cfg.DataBackend == "sqlite" && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	records := services.NewRecordService(be, publisher)
	categories := services.NewCategoryService(be)
	reports := services.NewReportService(be, be, cfg.RecentLimit)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:       ":" + cfg.Port,
		Records:    records,
		Categories: categories,
		Reports:    reports,
		Watcher:    be,
		Verifier:   verifier,
		Ready: func(ctx context.Context) error {
			_, err := be.Categories(ctx, "healthcheck")
			return err
		},
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting budget-tracker server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-runCtx.Done()
	logger.Info("Server stopped gracefully")
}
