package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lueurxax/telegram-relay/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download, analyze and send once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Collect messages posted since the last run into new_messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Download(ctx)
		})
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Filter new_messages into informative_messages and unique_messages",
	Long: `analyze reads new_messages, keeps informative posts, collapses near-duplicates
and asks the semantic service which of the rest carry unique information.
With LLM_ENABLED=false only the near-duplicate collapse is applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Analyze(ctx)
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver unique_messages to TARGET_USER_ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Send(ctx)
		})
	},
}

var (
	withHealth bool

	loopCmd = &cobra.Command{
		Use:   "loop",
		Short: "Run the whole pipeline every RUN_INTERVAL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if withHealth {
					go func() {
						if err := a.StartHealthServer(ctx); err != nil {
							logger.Error().Err(err).Msg("health check server error")
						}
					}()
				}

				return a.Loop(ctx)
			})
		},
	}
)

func init() {
	loopCmd.Flags().BoolVar(&withHealth, "health", true, "serve /healthz, /readyz and /metrics on HEALTH_PORT")

	rootCmd.AddCommand(runCmd, downloadCmd, analyzeCmd, sendCmd, loopCmd)
}
