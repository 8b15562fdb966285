package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gtoken/internal/host"
	"github.com/teemow/gtoken/internal/instrumentation"
	"github.com/teemow/gtoken/internal/logging"
	"github.com/teemow/gtoken/internal/server"
	"github.com/teemow/gtoken/internal/tokenloader"
)

func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol (MCP) server on stdio exposing the
GoogleOAuthToken component as the tool "google_oauth_token".

The tool takes the component inputs (scopes, oauth_credentials, token_file)
and returns the credential record as JSON. Failures are returned as tool
errors prefixed with their kind, e.g. "MissingCredentialError: ...".

With --metrics-addr a dedicated HTTP listener serves Prometheus metrics on
/metrics and health probes on /healthz and /readyz. Instrumentation is
configured through the environment (see METRICS_EXPORTER, TRACING_EXPORTER,
OTEL_EXPORTER_OTLP_ENDPOINT, AUDIT_LOGGING_ENABLED).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsAddr = addr
				}
			}
			return runServe(metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address, e.g. :9090 (disabled when empty). Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(metricsAddr string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := startInstrumentation(shutdownCtx)
	if err != nil {
		return err
	}
	defer shutdownInstrumentation(provider)

	logger := slog.Default()

	if metricsAddr != "" {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	component := tokenloader.New(tokenloader.Options{
		Logger:  logger,
		Metrics: provider.Metrics(),
	})
	h := host.New(component, host.Options{
		Metrics: provider.Metrics(),
		Audit:   instrumentation.NewAuditLogger(logger, provider.AuditLogging()),
		Logger:  logger,
	})

	logger.Info("serving MCP on stdio", logging.Tool(host.ToolName))
	return runStdioServer(shutdownCtx, h.NewServer(version))
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
