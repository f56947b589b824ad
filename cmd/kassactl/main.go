package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kassa/internal/amqp"
	"kassa/internal/backend"
	"kassa/internal/cli"
	"kassa/internal/config"
	klog "kassa/internal/log"
	"kassa/internal/localstore"
	"kassa/internal/services"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:               "kassactl",
		Short:             "Operate kassa shifts and ledgers from the terminal",
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/kassa/config.yaml)")
	rootCmd.PersistentFlags().String("account", "", "account id (default: DEFAULT_ACCOUNT_ID)")
	rootCmd.PersistentFlags().String("backend", "", "data backend (memory, sqlite, postgres)")
	rootCmd.PersistentFlags().String("db", "", "sqlite database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error; default: LOG_LEVEL)")

	_ = viper.BindPFlag("account", rootCmd.PersistentFlags().Lookup("account"))
	_ = viper.BindPFlag("data_backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("sqlite_db_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(shiftCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(fmt.Sprintf("%s/.config/kassa", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KASSA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadConfig overlays viper values (flags, KASSA_* env, config file) on the
// process environment configuration.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load()
	overrides := []struct {
		key string
		dst *string
	}{
		{"account", &cfg.DefaultAccountID},
		{"data_backend", &cfg.DataBackend},
		{"sqlite_db_path", &cfg.SQLiteDBPath},
		{"database_url", &cfg.DatabaseURL},
		{"local_store_path", &cfg.LocalStorePath},
		{"amqp_url", &cfg.AMQPURL},
		{"google_spreadsheet_id", &cfg.GoogleSpreadsheetID},
		{"google_service_account_file", &cfg.GoogleServiceAccountFile},
		{"log_level", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if s := v.GetString(o.key); s != "" {
			*o.dst = s
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is what every subcommand works with.
type app struct {
	*cli.App
	cfg     *config.Config
	account string
	close   func()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, klog.ComponentCLI)

	store, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		store.Cleanup()
		return nil, fmt.Errorf("open local store: %w", err)
	}

	var events services.EventPublisher
	client := cli.ConnectAMQP(logger, cfg)
	if client != nil {
		events = client
	}

	return &app{
		App:     cli.NewApp(store.Store, local, events, cfg.CacheTTL),
		cfg:     cfg,
		account: cfg.DefaultAccountID,
		close:   closer(logger, store, client),
	}, nil
}

func closer(logger *klog.Logger, store *backend.BackendResult, client *amqp.Client) func() {
	return func() {
		if client != nil {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kassactl", version)
		},
	}
}
