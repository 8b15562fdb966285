// Package callback implements the loopback redirect receiver of the OAuth
// installed-application flow and the system browser launcher.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultHost is the loopback address the receiver binds to.
const DefaultHost = "127.0.0.1"

// ErrStateMismatch is returned when the redirect carries a state value other
// than the one the flow was started with.
var ErrStateMismatch = errors.New("state mismatch")

// ProviderError is an error reported by the authorization server through the
// redirect (for example access_denied when the user cancels consent).
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "oauth error: " + e.Code
	}
	return fmt.Sprintf("oauth error: %s - %s", e.Code, e.Description)
}

// Server receives the authorization redirect on a local port.
type Server struct {
	mu            sync.Mutex
	host          string
	port          int
	expectedState string
	codeChan      chan string
	errChan       chan error
	server        *http.Server
	listener      net.Listener
	logger        *slog.Logger
}

// NewServer creates a receiver bound to host:port. Port 0 selects an ephemeral
// port; an empty host uses DefaultHost.
func NewServer(host string, port int, expectedState string, logger *slog.Logger) *Server {
	if host == "" {
		host = DefaultHost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		host:          host,
		port:          port,
		expectedState: expectedState,
		codeChan:      make(chan string, 1),
		errChan:       make(chan error, 1),
		logger:        logger,
	}
}

// Start binds the listener and serves redirects in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deliverErr(err)
		}
	}()

	s.logger.Debug("callback server listening", "addr", listener.Addr().String())
	return nil
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		perr := &ProviderError{Code: code, Description: q.Get("error_description")}
		s.deliverErr(perr)
		writePage(w, http.StatusOK, "Authorization failed", perr.Error())
		return
	}

	if state := q.Get("state"); state != s.expectedState {
		s.deliverErr(ErrStateMismatch)
		writePage(w, http.StatusBadRequest, "Authorization failed", "Invalid state parameter.")
		return
	}

	code := q.Get("code")
	if code == "" {
		s.deliverErr(errors.New("no authorization code received"))
		writePage(w, http.StatusBadRequest, "Authorization failed", "No authorization code received.")
		return
	}

	select {
	case s.codeChan <- code:
	default:
	}

	writePage(w, http.StatusOK, "Authorization successful", "The authentication flow has completed. You may close this window.")
}

func (s *Server) deliverErr(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

// Wait blocks until an authorization code or an error arrives, or ctx is
// done.
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the receiver down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Port returns the bound port; valid after Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// RedirectURI is the redirect URL to register in the authorization request.
func (s *Server) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/", s.Port())
}
