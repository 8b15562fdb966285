package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gtoken/internal/instrumentation"
	"github.com/teemow/gtoken/internal/logging"
)

// rootCmd represents the base command for the gtoken application
var rootCmd = &cobra.Command{
	Use:   "gtoken",
	Short: "Generate and load Google OAuth2 token files",
	Long: `gtoken obtains Google OAuth2 user credentials and hands them to plugin hosts.

It can run as:
  - A token generator: "gtoken generate" runs the browser consent flow once
    and writes token.json
  - A token loader: "gtoken load" validates, refreshes and prints a token file
  - An MCP (Model Context Protocol) server exposing the loader as a tool`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := logging.New(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// version will be set by main
var version = "dev"

var (
	logLevel  string
	logFormat string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gtoken version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gtoken version %s\n", version)
		},
	}
}

// startInstrumentation creates the telemetry provider configured through the
// environment.
func startInstrumentation(ctx context.Context) (*instrumentation.Provider, error) {
	config := instrumentation.DefaultConfig()
	config.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}

func shutdownInstrumentation(provider *instrumentation.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		slog.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}
