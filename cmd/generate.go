package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gtoken/internal/scopes"
	"github.com/teemow/gtoken/internal/tokengen"
)

// generateFlags holds the flag values of the generate command.
type generateFlags struct {
	configFile   string
	clientSecret string
	tokenFile    string
	scopes       string
	callbackHost string
	callbackPort int
	noBrowser    bool
	noAccount    bool
	timeout      time.Duration
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the OAuth consent flow and write a token file",
		Long: `Generate a token file for the GoogleOAuthToken component.

An existing token file is reused when it is still valid and refreshed when it
has expired and holds a refresh token. Otherwise the consent screen is opened
in the system browser and the authorization code is received on a local
callback port.

Configuration sources, lowest to highest precedence:
  - built-in defaults
  - the TOML file given with --config
  - GTOKEN_CLIENT_SECRET, GTOKEN_TOKEN_FILE and GTOKEN_SCOPES
  - flags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := tokengen.LoadConfig(f.configFile, os.LookupEnv)
			if err != nil {
				return err
			}
			if err := applyGenerateFlags(cmd, &cfg, f); err != nil {
				return err
			}
			return runGenerate(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&f.configFile, "config", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", "", "Path to the OAuth client secret JSON (Desktop app). Can also use GTOKEN_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&f.tokenFile, "token-file", tokengen.DefaultTokenFile, "Path of the token file to write. Can also use GTOKEN_TOKEN_FILE env var.")
	cmd.Flags().StringVar(&f.scopes, "scopes", "", "Comma-separated scopes to request (default: https://www.googleapis.com/auth/drive). Can also use GTOKEN_SCOPES env var.")
	cmd.Flags().StringVar(&f.callbackHost, "callback-host", "127.0.0.1", "Address the OAuth callback receiver binds to")
	cmd.Flags().IntVar(&f.callbackPort, "callback-port", 0, "Port of the OAuth callback receiver (0 picks a free port)")
	cmd.Flags().BoolVar(&f.noBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	cmd.Flags().BoolVar(&f.noAccount, "no-account", false, "Do not resolve the account email through the userinfo endpoint")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "How long to wait for the browser redirect (0 waits forever)")

	return cmd
}

// applyGenerateFlags overrides cfg with the flags set on the command line.
func applyGenerateFlags(cmd *cobra.Command, cfg *tokengen.Config, f generateFlags) error {
	flags := cmd.Flags()
	if flags.Changed("client-secret") {
		cfg.ClientSecretFile = f.clientSecret
	}
	if flags.Changed("token-file") {
		cfg.TokenFile = f.tokenFile
	}
	if flags.Changed("scopes") {
		list, err := scopes.Parse(f.scopes)
		if err != nil {
			return fmt.Errorf("invalid --scopes: %w", err)
		}
		cfg.Scopes = list
	}
	if flags.Changed("callback-host") {
		cfg.CallbackHost = f.callbackHost
	}
	if flags.Changed("callback-port") {
		cfg.CallbackPort = f.callbackPort
	}
	if flags.Changed("no-browser") {
		cfg.OpenBrowser = !f.noBrowser
	}
	if flags.Changed("no-account") {
		cfg.FetchAccount = !f.noAccount
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	return nil
}

func runGenerate(cmd *cobra.Command, cfg tokengen.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := startInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer shutdownInstrumentation(provider)

	g, err := tokengen.New(cfg, tokengen.Options{
		Out:     cmd.OutOrStdout(),
		Prompt:  cmd.ErrOrStderr(),
		Metrics: provider.Metrics(),
	})
	if err != nil {
		return err
	}

	res, err := g.Run(ctx)
	if err != nil {
		return err
	}
	if res.Written {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nToken saved to '%s'.\n", cfg.TokenFile)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "A valid token already exists in '%s'.\n", cfg.TokenFile)
	}
	return nil
}
