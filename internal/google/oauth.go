package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/instrumentation"
)

// LoadClientConfig parses a client-secret file ("installed" or "web"
// application) and returns the OAuth2 configuration for scopes.
func LoadClientConfig(path string, scopes []string) (*oauth2.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("client secret file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid client secret file %s: %w", path, err)
	}
	return conf, nil
}

// AuthCodeURL returns the consent screen URL for an installed-application
// flow. Offline access is always requested so that the provider issues a
// refresh token; verifier is the PKCE code verifier.
func AuthCodeURL(conf *oauth2.Config, state, verifier string) string {
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange trades an authorization code for a Credential Set.
func Exchange(ctx context.Context, conf *oauth2.Config, code, verifier string, httpClient *http.Client) (_ *credential.Set, err error) {
	ctx, span := instrumentation.StartClientSpan(ctx, "oauth.exchange")
	defer func() { instrumentation.EndSpan(span, err) }()

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	base := &credential.Set{
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       conf.Scopes,
		Type:         credential.TypeAuthorizedUser,
	}
	return credential.WithToken(base, tok), nil
}
