package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "notapilot",
	Short:        "WhatsApp job dispatch pipeline",
	Long:         `notapilot spawns jobs from schedules and dispatches pending WhatsApp messages with retries.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, dispatchCmd, migrateCmd, tokenCmd)

	serveCmd.Flags().Duration("poll-interval", 0, "run dispatch in-process on this interval (0 disables, overrides DISPATCH_POLL_INTERVAL)")
	dispatchCmd.Flags().String("source", "manual", "source label recorded on the dispatch run")
	tokenCmd.Flags().String("tenant", "", "tenant id the admin token is scoped to")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default 7 days)")
	_ = tokenCmd.MarkFlagRequired("tenant")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
