package callback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *Server {
	t.Helper()
	s := NewServer("", 0, state, nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func get(t *testing.T, s *Server, query string) *http.Response {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/%s", s.Port(), query))
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServer_Success(t *testing.T) {
	s := startServer(t, "xyz")
	assert.NotZero(t, s.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/", s.Port()), s.RedirectURI())

	resp := get(t, s, "?state=xyz&code=auth-code")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "auth-code", code)
}

func TestServer_StateMismatch(t *testing.T) {
	s := startServer(t, "expected")

	resp := get(t, s, "?state=other&code=auth-code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := s.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestServer_ProviderError(t *testing.T) {
	s := startServer(t, "xyz")

	get(t, s, "?error=access_denied&error_description=user+cancelled")

	_, err := s.Wait(waitCtx(t))
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "access_denied", perr.Code)
	assert.Equal(t, "user cancelled", perr.Description)
}

func TestServer_MissingCode(t *testing.T) {
	s := startServer(t, "xyz")

	resp := get(t, s, "?state=xyz")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := s.Wait(waitCtx(t))
	assert.Error(t, err)
}

func TestServer_UnknownPath(t *testing.T) {
	s := startServer(t, "xyz")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/favicon.ico", s.Port()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WaitContextDone(t *testing.T) {
	s := startServer(t, "xyz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer("", 0, "xyz", nil)
	assert.NoError(t, s.Stop())
}

func TestProviderError_Error(t *testing.T) {
	assert.Equal(t, "oauth error: access_denied", (&ProviderError{Code: "access_denied"}).Error())
	assert.Equal(t, "oauth error: a - b", (&ProviderError{Code: "a", Description: "b"}).Error())
}
