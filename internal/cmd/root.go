// Package cmd is the sessionvault command line: ingest, search, delete.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionvault/sessionvault/internal/app"
	"github.com/sessionvault/sessionvault/internal/config"
	"github.com/sessionvault/sessionvault/internal/log"
)

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "Owner id for every operation")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(deleteCmd)
}

var rootCmd = &cobra.Command{
	Use:   "sessionvault",
	Short: "Store and search AI coding sessions",
	Long: `Sessionvault ingests session and message payloads from coding-agent
plugins, keeps per-session aggregates and a searchable text projection, embeds
session content, and serves lexical, semantic, and hybrid search over it.`,
	Example: `
  # Ingest payloads for a user
  sessionvault ingest --user alice payloads.jsonl

  # Lexical search
  sessionvault search --user alice "context cancellation"

  # Hybrid search, semantic-leaning
  sessionvault search --user alice --mode hybrid --weight 0.7 "flaky test"

  # Delete a session and everything under it
  sessionvault delete --user alice 2f6ae3e8-...
  `,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, initializes logging, and wires the services.
func setup(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %q: %w", cfg.DataDir, err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	log.Setup(cfg.LogFile, debug || cfg.Debug)

	return app.New(cmd.Context(), cfg)
}

func requireUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}
