package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lueurxax/telegram-relay/internal/app"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/storage"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay unique messages from Telegram channels to one user",
	Long: `relay collects new posts from configured Telegram channels, drops uninformative
and redundant ones, and delivers the rest to a single user through a bot.

Without a subcommand it runs the whole pipeline once.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cfg = loaded
		logger = newLogger(cfg.AppEnv)

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// withApp opens the artifact store for the duration of fn.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	store, err := storage.Open(ctx, cfg, &logger)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	defer store.Close()

	return fn(ctx, app.New(cfg, store, &logger))
}
