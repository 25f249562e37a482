package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lueurxax/telegram-relay/internal/app"
	"github.com/lueurxax/telegram-relay/internal/ingest/reader"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels and groups available to the user account",
	Long:  `Print the IDs to put into CHANNEL_IDS, in the order of the account's dialogs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dialogs, err := app.New(cfg, nil, &logger).Channels(cmd.Context())
		if err != nil {
			return err
		}

		printDialogs(dialogs)

		return nil
	},
}

func printDialogs(dialogs []reader.Dialog) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Channels and groups ==="))
	fmt.Printf("%-20s %-11s %s\n", "ID", "TYPE", "TITLE")

	if len(dialogs) == 0 {
		fmt.Printf("  %s\n", gray("No channels or groups found"))
		return
	}

	for _, d := range dialogs {
		fmt.Printf("%s %s %s\n", yellow(fmt.Sprintf("%-20d", d.ID)), gray(fmt.Sprintf("%-11s", d.Kind)), d.Title)
	}

	fmt.Println()
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}
