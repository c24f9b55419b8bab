package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cofly",
		Short: "A local messaging-platform emulator for bot development",
		Long: `Cofly emulates a messaging platform's open API and real-time event
channel so bots can be developed and tested entirely offline.

It serves the REST surface (registration, tokens, messages, contacts,
media, reactions) and a binary-framed WebSocket channel compatible with
platform SDK clients, backed by a local SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
