// assetwatch tracks expiring servers, domains, phone numbers and accounts and
// reminds you before they lapse.
//
// Usage:
//
//	assetwatch serve
//	assetwatch sweep
//	assetwatch export -o yaml -f resources.yaml
//	assetwatch import -f resources.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "assetwatch",
		Short: "Expiry reminders for servers, domains and accounts",
		Long: `assetwatch stores the resources you pay for and sends reminders
over Telegram, email and webhooks before they expire.

Configuration is read from the environment and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running without a subcommand serves, so containers need no arguments.
		RunE: runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
