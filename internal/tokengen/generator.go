package tokengen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/gtoken/internal/callback"
	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/google"
	"github.com/teemow/gtoken/internal/instrumentation"
	"github.com/teemow/gtoken/internal/logging"
)

// Options inject the collaborators of a Generator. Zero values select
// production defaults.
type Options struct {
	Clock     clockwork.Clock
	Refresher google.Refresher

	// Authorizer replaces the interactive flow built from the config.
	Authorizer Authorizer

	// OpenBrowser replaces the system browser launcher.
	OpenBrowser func(url string) error

	// HTTPClient is used for token endpoint and userinfo traffic.
	HTTPClient *http.Client

	// UserinfoOptions are passed to the userinfo client.
	UserinfoOptions []option.ClientOption

	// Out receives the resulting token record. Defaults to os.Stdout.
	Out io.Writer

	// Prompt receives operator instructions. Defaults to os.Stderr.
	Prompt io.Writer

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Result describes a completed run.
type Result struct {
	// Path is how the credential was obtained: reuse, refresh or authorize.
	Path    string
	State   State
	Set     *credential.Set
	Written bool
}

// Generator produces token files.
type Generator struct {
	cfg  Config
	opts Options
}

// New validates cfg and creates a Generator.
func New(cfg Config, opts Options) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Refresher == nil {
		opts.Refresher = google.NewTokenRefresher(opts.HTTPClient)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}
	opts.Logger = logging.WithComponent(opts.Logger, "tokengen")
	return &Generator{cfg: cfg, opts: opts}, nil
}

// Run loads, refreshes or authorizes a Credential Set, writes it to the token
// file unless the existing one was still valid, and echoes the record.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	start := g.opts.Clock.Now()
	ctx, span := instrumentation.StartSpan(ctx, "tokengen.run")

	res, err := g.run(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	span.SetAttributes(
		attribute.String(instrumentation.SpanAttrOperation, res.Path),
		attribute.String(instrumentation.SpanAttrState, res.State.String()),
	)
	instrumentation.EndSpan(span, err)
	g.opts.Metrics.RecordTokenGeneration(ctx, res.Path, status, g.opts.Clock.Since(start))

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (g *Generator) run(ctx context.Context) (*Result, error) {
	logger := g.opts.Logger
	requested := g.cfg.RequestedScopes()
	m := NewMachine(g.opts.Clock)
	res := &Result{}

	if err := m.Load(g.cfg.TokenFile, requested); err != nil {
		logger.Warn("existing token file is unusable, starting authorization",
			logging.Path(g.cfg.TokenFile), logging.Err(err))
	}
	logger.Debug("token file loaded", logging.Path(g.cfg.TokenFile), logging.State(m.State()))

	switch {
	case m.State() == LoadedValid:
		res.Path = instrumentation.PathReuse

	case m.CanRefresh():
		res.Path = instrumentation.PathRefresh
		if err := g.refresh(ctx, m); err != nil {
			res.State = m.State()
			return res, fmt.Errorf("failed to refresh token: %w", err)
		}

	default:
		res.Path = instrumentation.PathAuthorize
		authorizer, err := g.authorizer(requested)
		if err != nil {
			res.State = Failed
			return res, err
		}
		if err := m.Authorize(ctx, authorizer); err != nil {
			res.State = m.State()
			return res, err
		}
	}

	res.State = m.State()
	res.Set = m.Set()
	logger.Info("credential ready", logging.State(res.State), logging.Scopes(res.Set.Scopes))

	if res.Path == instrumentation.PathReuse {
		logger.Info("a valid token already exists", logging.Path(g.cfg.TokenFile))
	} else {
		if g.cfg.FetchAccount {
			g.lookupAccount(ctx, res.Set)
		}
		if err := credential.WriteFile(g.cfg.TokenFile, res.Set); err != nil {
			return res, err
		}
		res.Written = true
		logger.Info("token saved", logging.Path(g.cfg.TokenFile))
	}

	data, err := res.Set.Marshal()
	if err != nil {
		return res, fmt.Errorf("failed to encode credential: %w", err)
	}
	if _, err := fmt.Fprintln(g.opts.Out, string(data)); err != nil {
		return res, fmt.Errorf("failed to write record: %w", err)
	}
	return res, nil
}

func (g *Generator) refresh(ctx context.Context, m *Machine) error {
	start := g.opts.Clock.Now()
	err := m.Refresh(ctx, g.opts.Refresher)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	g.opts.Metrics.RecordTokenRefresh(ctx, status, g.opts.Clock.Since(start))
	return err
}

func (g *Generator) authorizer(requested []string) (Authorizer, error) {
	if g.opts.Authorizer != nil {
		return g.opts.Authorizer, nil
	}

	conf, err := google.LoadClientConfig(g.cfg.ClientSecretFile, requested)
	if err != nil {
		return nil, err
	}

	flow := &InteractiveFlow{
		Config:     conf,
		Host:       g.cfg.CallbackHost,
		Port:       g.cfg.CallbackPort,
		Prompt:     g.opts.Prompt,
		Timeout:    g.cfg.Timeout,
		HTTPClient: g.opts.HTTPClient,
		Logger:     g.opts.Logger,
	}
	if g.cfg.OpenBrowser {
		flow.OpenBrowser = g.opts.OpenBrowser
		if flow.OpenBrowser == nil {
			flow.OpenBrowser = callback.OpenBrowser
		}
	}
	return flow, nil
}

// lookupAccount fills set.Account from the userinfo endpoint. Failures are
// logged and leave the account empty.
func (g *Generator) lookupAccount(ctx context.Context, set *credential.Set) {
	start := g.opts.Clock.Now()
	ts := oauth2.StaticTokenSource(set.OAuth2Token())

	opts := g.opts.UserinfoOptions
	if len(opts) == 0 && g.opts.HTTPClient != nil {
		clientCtx := context.WithValue(ctx, oauth2.HTTPClient, g.opts.HTTPClient)
		opts = []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(clientCtx, ts))}
	}

	email, err := google.FetchAccountEmail(ctx, ts, opts...)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	g.opts.Metrics.RecordUserinfoLookup(ctx, status, g.opts.Clock.Since(start))

	if err != nil {
		g.opts.Logger.Warn("could not resolve account email", logging.Err(err))
		return
	}
	set.Account = email
	g.opts.Logger.Info("account resolved", logging.UserHash(email), logging.Domain(email))
}
