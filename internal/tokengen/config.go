package tokengen

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/teemow/gtoken/internal/callback"
	"github.com/teemow/gtoken/internal/google"
	"github.com/teemow/gtoken/internal/scopes"
)

// Environment variables read by LoadConfig.
const (
	EnvClientSecret = "GTOKEN_CLIENT_SECRET"
	EnvTokenFile    = "GTOKEN_TOKEN_FILE"
	EnvScopes       = "GTOKEN_SCOPES"
)

// DefaultTokenFile is written when no token file is configured.
const DefaultTokenFile = "token.json"

// Config is the fixed configuration of one generator run.
type Config struct {
	// ClientSecretFile is the "Desktop app" client JSON from the Google
	// Cloud console.
	ClientSecretFile string

	// Scopes are requested from the user.
	Scopes []string

	// TokenFile is read at start and overwritten with the result.
	TokenFile string

	// CallbackHost and CallbackPort bind the redirect receiver. Port 0
	// selects an ephemeral port.
	CallbackHost string
	CallbackPort int

	// OpenBrowser launches the system browser; otherwise the consent URL is
	// only printed.
	OpenBrowser bool

	// FetchAccount resolves the account email after authorization and
	// requests the userinfo.email scope for it.
	FetchAccount bool

	// Timeout bounds the wait for the browser redirect. Zero waits forever.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Scopes:       slices.Clone(google.DefaultScopes),
		TokenFile:    DefaultTokenFile,
		CallbackHost: callback.DefaultHost,
		OpenBrowser:  true,
		FetchAccount: true,
	}
}

// fileConfig is the TOML shape of a config file. Pointers tell unset keys
// apart from zero values.
type fileConfig struct {
	ClientSecretFile *string  `toml:"client_secret_file"`
	Scopes           []string `toml:"scopes"`
	TokenFile        *string  `toml:"token_file"`
	CallbackHost     *string  `toml:"callback_host"`
	CallbackPort     *int     `toml:"callback_port"`
	OpenBrowser      *bool    `toml:"open_browser"`
	FetchAccount     *bool    `toml:"fetch_account"`
	Timeout          *string  `toml:"timeout"`
}

// LoadConfig builds a Config from the defaults, the TOML file at path (if
// path is not empty) and the environment, in increasing precedence. lookupEnv
// defaults to os.LookupEnv.
func LoadConfig(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := fc.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	if v, ok := lookupEnv(EnvClientSecret); ok && v != "" {
		cfg.ClientSecretFile = v
	}
	if v, ok := lookupEnv(EnvTokenFile); ok && v != "" {
		cfg.TokenFile = v
	}
	if v, ok := lookupEnv(EnvScopes); ok && v != "" {
		list, err := scopes.Parse(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvScopes, err)
		}
		cfg.Scopes = list
	}

	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if fc.ClientSecretFile != nil {
		cfg.ClientSecretFile = *fc.ClientSecretFile
	}
	if fc.Scopes != nil {
		cfg.Scopes = fc.Scopes
	}
	if fc.TokenFile != nil {
		cfg.TokenFile = *fc.TokenFile
	}
	if fc.CallbackHost != nil {
		cfg.CallbackHost = *fc.CallbackHost
	}
	if fc.CallbackPort != nil {
		cfg.CallbackPort = *fc.CallbackPort
	}
	if fc.OpenBrowser != nil {
		cfg.OpenBrowser = *fc.OpenBrowser
	}
	if fc.FetchAccount != nil {
		cfg.FetchAccount = *fc.FetchAccount
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}

// Validate checks cfg before a run.
func (c Config) Validate() error {
	if c.ClientSecretFile == "" {
		return fmt.Errorf("client secret file is required (flag --client-secret or %s)", EnvClientSecret)
	}
	if c.TokenFile == "" {
		return errors.New("token file path must not be empty")
	}
	if len(c.Scopes) == 0 {
		return scopes.ErrEmpty
	}
	if err := scopes.Validate(scopes.Join(c.Scopes)); err != nil {
		return err
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("callback port %d out of range", c.CallbackPort)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// RequestedScopes returns the scopes put into the authorization request.
func (c Config) RequestedScopes() []string {
	out := slices.Clone(c.Scopes)
	if c.FetchAccount && !slices.Contains(out, google.UserinfoEmailScope) {
		out = append(out, google.UserinfoEmailScope)
	}
	return out
}
