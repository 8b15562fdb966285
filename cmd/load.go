package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/gtoken/internal/scopes"
	"github.com/teemow/gtoken/internal/tokengen"
	"github.com/teemow/gtoken/internal/tokenloader"
)

func newLoadCmd() *cobra.Command {
	var in tokenloader.Inputs

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a token file and print the credential record",
		Long: `Run the GoogleOAuthToken component once, as a plugin host would.

The token file is restricted to the given scopes and refreshed once if it has
expired. The record is printed to stdout; the token file is never modified.
No browser is opened: without a usable token file the command fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadInputEnv(cmd, &in, os.LookupEnv)
			return runLoad(cmd, in)
		},
	}

	cmd.Flags().StringVar(&in.Scopes, "scopes", scopes.Defaults, "Comma-separated scopes the credential is restricted to. Can also use GTOKEN_SCOPES env var.")
	cmd.Flags().StringVar(&in.ClientSecretFile, "client-secret", "", "Path to the OAuth client secret JSON (required, not read when the token file is usable). Can also use GTOKEN_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&in.TokenFile, "token-file", "", "Path to a token file written by 'gtoken generate'. Can also use GTOKEN_TOKEN_FILE env var.")

	return cmd
}

// loadInputEnv fills inputs whose flags were not set from the environment.
func loadInputEnv(cmd *cobra.Command, in *tokenloader.Inputs, lookupEnv func(string) (string, bool)) {
	flags := cmd.Flags()
	if v, ok := lookupEnv(tokengen.EnvScopes); ok && !flags.Changed("scopes") {
		in.Scopes = v
	}
	if v, ok := lookupEnv(tokengen.EnvClientSecret); ok && !flags.Changed("client-secret") {
		in.ClientSecretFile = v
	}
	if v, ok := lookupEnv(tokengen.EnvTokenFile); ok && !flags.Changed("token-file") {
		in.TokenFile = v
	}
}

func runLoad(cmd *cobra.Command, in tokenloader.Inputs) error {
	ctx := context.Background()

	provider, err := startInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer shutdownInstrumentation(provider)

	component := tokenloader.New(tokenloader.Options{Metrics: provider.Metrics()})
	record, err := component.Build(ctx, in)
	if err != nil {
		return fmt.Errorf("%s: %w", tokenloader.Kind(err), err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
