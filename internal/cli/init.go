// Package cli holds the start-up steps shared by cmd/kassa,
// cmd/kassa-worker and cmd/kassactl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kassa/internal/amqp"
	"kassa/internal/backend"
	"kassa/internal/config"
	klog "kassa/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *klog.Logger {
	lc := klog.DefaultConfig()
	if level, err := klog.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	if cfg.LogFormat != "" {
		lc.Format = cfg.LogFormat
	}
	lc.Component = component
	logger := klog.New(lc)
	klog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits the process when it
// is invalid. Logging is not configured yet, so failures go to stderr.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured persistent store.
func OpenStore(ctx context.Context, logger *klog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(klog.ComponentBackend).Logger).CreateBackend(ctx, bc)
}

// ConnectAMQP returns nil when AMQP_URL is unset or the broker cannot be
// reached; the server runs without ledger events in that case.
func ConnectAMQP(logger *klog.Logger, cfg *config.Config) *amqp.Client {
	l := logger.WithComponent(klog.ComponentAMQP)
	if cfg.AMQPURL == "" {
		l.Info("AMQP disabled, ledger events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		l.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	l.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown cancels the returned context on SIGINT or SIGTERM, then
// runs cleanup bounded by timeout. done is closed once cleanup returns.
func GracefulShutdown(logger *klog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// Fatal logs msg with err and exits.
func Fatal(logger *klog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append([]any{slog.Any(klog.FieldError, err)}, args...)...)
	os.Exit(1)
}
