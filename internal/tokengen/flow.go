package tokengen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/gtoken/internal/callback"
	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/google"
	"github.com/teemow/gtoken/internal/logging"
)

// InteractiveFlow is the installed-application authorization flow.
type InteractiveFlow struct {
	// Config is the client configuration loaded from the client-secret file.
	Config *oauth2.Config

	Host string
	Port int

	// OpenBrowser is called with the consent URL. Nil only prints the URL.
	OpenBrowser func(url string) error

	// Prompt receives the consent URL for the operator.
	Prompt io.Writer

	// Timeout bounds the wait for the redirect. Zero waits forever.
	Timeout time.Duration

	// HTTPClient is used for the code exchange when non-nil.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Authorize runs the flow and returns the exchanged Credential Set.
func (f *InteractiveFlow) Authorize(ctx context.Context) (*credential.Set, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	srv := callback.NewServer(f.Host, f.Port, state, logger)
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			logger.Debug("callback server shutdown failed", logging.Err(err))
		}
	}()

	conf := *f.Config
	conf.RedirectURL = srv.RedirectURI()
	authURL := google.AuthCodeURL(&conf, state, verifier)

	if f.Prompt != nil {
		fmt.Fprintf(f.Prompt, "Please visit this URL to authorize this application: %s\n", authURL)
	}
	if f.OpenBrowser != nil {
		if err := f.OpenBrowser(authURL); err != nil {
			logger.Warn("failed to open browser, open the URL manually", logging.Err(err))
		}
	}

	waitCtx := ctx
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	code, err := srv.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	logger.Debug("authorization code received")

	return google.Exchange(ctx, &conf, code, verifier, f.HTTPClient)
}
