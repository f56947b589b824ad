package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kassa/internal/cli"
	apphttp "kassa/internal/http"
	klog "kassa/internal/log"
	"kassa/internal/localstore"
	"kassa/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, klog.ComponentApp)

	ctx := context.Background()
	backend, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err, "backend", cfg.DataBackend)
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		cli.Fatal(logger, "Failed to open local store", err, "path", cfg.LocalStorePath)
	}

	// a typed nil client must not reach WithEvents
	var events services.EventPublisher
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		events = amqpClient
	}

	app := cli.NewApp(backend.Store, local, events, cfg.CacheTTL)
	app.Caches.StartCleanup(cfg.CacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Shifts:             app.Shifts,
		Ledger:             app.Ledger,
		Categories:         app.Categories,
		Dashboard:          app.Dashboard,
		Local:              app.Local,
		Store:              backend.Store,
		DefaultAccountID:   cfg.DefaultAccountID,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(klog.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		app.Caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	})

	logger.Info("Starting kassa server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"default_account", cfg.DefaultAccountID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
