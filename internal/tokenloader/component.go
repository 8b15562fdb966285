package tokenloader

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/google"
	"github.com/teemow/gtoken/internal/instrumentation"
	"github.com/teemow/gtoken/internal/logging"
	"github.com/teemow/gtoken/internal/scopes"
)

// Inputs are the values a plugin host passes to one invocation.
type Inputs struct {
	// Scopes is the comma-separated scope list, possibly spanning lines.
	Scopes string

	// ClientSecretFile references the OAuth client credentials. It is
	// required but not read when a usable token file is supplied.
	ClientSecretFile string

	// TokenFile is the path of a token file written by the generator.
	TokenFile string
}

// Record is the structured credential record handed to the host pipeline.
type Record map[string]any

// Options configure a Component. Zero values select production defaults.
type Options struct {
	Clock     clockwork.Clock
	Refresher google.Refresher
	Logger    *slog.Logger
	Metrics   *instrumentation.Metrics
}

// Component loads, validates and refreshes token files.
type Component struct {
	clock     clockwork.Clock
	refresher google.Refresher
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// New creates a Component.
func New(opts Options) *Component {
	c := &Component{
		clock:     opts.Clock,
		refresher: opts.Refresher,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.refresher == nil {
		c.refresher = google.NewTokenRefresher(nil)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = &instrumentation.Metrics{}
	}
	c.logger = logging.WithComponent(c.logger, "tokenloader")
	return c
}

// Build runs one invocation: validate the inputs, load the token file,
// refresh it once if it has expired and return its record. The token file is
// never modified.
func (c *Component) Build(ctx context.Context, in Inputs) (Record, error) {
	start := c.clock.Now()
	ctx, span := instrumentation.StartSpan(ctx, "tokenloader.build")

	record, err := c.build(ctx, in)

	result := instrumentation.StatusSuccess
	if err != nil {
		result = Kind(err)
		c.logger.WarnContext(ctx, "token load failed",
			slog.String("kind", result),
			logging.Path(in.TokenFile),
			logging.Err(err))
	}
	span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, result))
	instrumentation.EndSpan(span, err)
	c.metrics.RecordTokenLoad(ctx, result, c.clock.Since(start))

	return record, err
}

func (c *Component) build(ctx context.Context, in Inputs) (Record, error) {
	if err := scopes.Validate(in.Scopes); err != nil {
		return nil, &ValidationError{Field: InputScopes, Err: err}
	}
	declared, err := scopes.Parse(in.Scopes)
	if err != nil {
		return nil, &ValidationError{Field: InputScopes, Err: err}
	}
	if strings.TrimSpace(in.ClientSecretFile) == "" {
		return nil, &ValidationError{Field: InputOAuthCredentials, Err: errors.New("a credentials file is required")}
	}

	if in.TokenFile == "" {
		return nil, &MissingCredentialError{}
	}

	set, err := credential.ReadFile(in.TokenFile, declared)
	if err != nil {
		return nil, &CredentialLoadError{Path: in.TokenFile, Err: err}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(instrumentation.SpanAttrScopes, len(declared)))
	c.logger.DebugContext(ctx, "token file loaded",
		logging.Path(in.TokenFile),
		logging.Scopes(declared),
		slog.Time("expiry", set.Expiry))

	if set.Expired(c.clock.Now()) && set.CanRefresh() {
		set, err = c.refresh(ctx, set)
		if err != nil {
			return nil, &CredentialRefreshError{Err: err}
		}
	}

	if !set.Valid(c.clock.Now()) {
		return nil, &MissingCredentialError{Reason: "the token file holds no valid access token"}
	}

	record, err := set.Record()
	if err != nil {
		return nil, &CredentialLoadError{Path: in.TokenFile, Err: err}
	}
	return Record(record), nil
}

func (c *Component) refresh(ctx context.Context, set *credential.Set) (*credential.Set, error) {
	start := c.clock.Now()
	refreshed, err := c.refresher.Refresh(ctx, set)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordTokenRefresh(ctx, status, c.clock.Since(start))
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "expired token refreshed",
		logging.UserHash(refreshed.Account),
		slog.Time("expiry", refreshed.Expiry),
		slog.Duration(logging.KeyDuration, c.clock.Since(start)))
	return refreshed, nil
}
