package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/instrumentation"
)

// ErrNoRefreshToken is returned when a refresh is requested for a set that
// carries no refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Refresher performs refresh exchanges.
type Refresher interface {
	// Refresh trades the refresh token of set for a new access token. The
	// returned set is a copy; set is not modified.
	Refresh(ctx context.Context, set *credential.Set) (*credential.Set, error)
}

// TokenRefresher refreshes Credential Sets against the token endpoint named in
// the set itself.
type TokenRefresher struct {
	// HTTPClient is used for the exchange when non-nil.
	HTTPClient *http.Client
}

// NewTokenRefresher creates a refresher using httpClient, or the default
// client when nil.
func NewTokenRefresher(httpClient *http.Client) *TokenRefresher {
	return &TokenRefresher{HTTPClient: httpClient}
}

// Refresh performs exactly one refresh exchange.
func (r *TokenRefresher) Refresh(ctx context.Context, set *credential.Set) (_ *credential.Set, err error) {
	if !set.CanRefresh() {
		return nil, ErrNoRefreshToken
	}
	ctx, span := instrumentation.StartClientSpan(ctx, "oauth.refresh")
	defer func() { instrumentation.EndSpan(span, err) }()


	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}

	// Passing only the refresh token forces the token source to hit the
	// endpoint regardless of the stored expiry.
	ts := set.OAuth2Config().TokenSource(ctx, &oauth2.Token{RefreshToken: set.RefreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	return credential.WithToken(set, tok), nil
}
