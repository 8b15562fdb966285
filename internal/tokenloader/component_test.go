package tokenloader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gtoken/internal/credential"
	"github.com/teemow/gtoken/internal/google"
	"github.com/teemow/gtoken/internal/scopes"
)

const (
	driveReadonly = "https://www.googleapis.com/auth/drive.readonly"
	driveActivity = "https://www.googleapis.com/auth/drive.activity.readonly"
)

var now = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeRefresher counts refresh calls and returns a fixed result.
type fakeRefresher struct {
	calls int
	token string
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, set *credential.Set) (*credential.Set, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := set.Clone()
	out.Token = f.token
	out.Expiry = now.Add(time.Hour)
	return out, nil
}

func tokenFile(t *testing.T, fields map[string]any) string {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func baseFields(expiry time.Time) map[string]any {
	return map[string]any{
		"token":         "ya29.current",
		"refresh_token": "1//refresh",
		"token_uri":     "https://oauth2.googleapis.com/token",
		"client_id":     "client.apps.googleusercontent.com",
		"client_secret": "secret",
		"scopes":        []string{driveReadonly, driveActivity},
		"expiry":        expiry.Format(time.RFC3339),
	}
}

func newComponent(r google.Refresher) *Component {
	return New(Options{Clock: clockwork.NewFakeClockAt(now), Refresher: r})
}

func inputs(tokenPath string) Inputs {
	return Inputs{
		Scopes:           scopes.Defaults,
		ClientSecretFile: "client_secret.json",
		TokenFile:        tokenPath,
	}
}

func TestBuild_ValidToken(t *testing.T) {
	fields := baseFields(now.Add(time.Hour))
	path := tokenFile(t, fields)
	refresher := &fakeRefresher{}

	record, err := newComponent(refresher).Build(context.Background(), inputs(path))
	require.NoError(t, err)
	assert.Zero(t, refresher.calls, "a valid token must not be refreshed")

	var want map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &want))
	want["type"] = credential.TypeAuthorizedUser

	assert.Equal(t, Record(want), record)
}

func TestBuild_KeepsExistingType(t *testing.T) {
	fields := baseFields(now.Add(time.Hour))
	fields["type"] = credential.TypeAuthorizedUser
	record, err := newComponent(&fakeRefresher{}).Build(context.Background(), inputs(tokenFile(t, fields)))
	require.NoError(t, err)
	assert.Equal(t, credential.TypeAuthorizedUser, record["type"])
}

func TestBuild_RestrictsToDeclaredScopes(t *testing.T) {
	fields := baseFields(now.Add(time.Hour))
	fields["scopes"] = []string{"https://www.googleapis.com/auth/drive"}
	in := inputs(tokenFile(t, fields))
	in.Scopes = driveReadonly

	record, err := newComponent(&fakeRefresher{}).Build(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []any{driveReadonly}, record["scopes"])
}

func TestBuild_ExpiredTokenRefreshed(t *testing.T) {
	path := tokenFile(t, baseFields(now.Add(-time.Hour)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	refresher := &fakeRefresher{token: "ya29.refreshed"}

	record, err := newComponent(refresher).Build(context.Background(), inputs(path))
	require.NoError(t, err)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, "ya29.refreshed", record["token"])
	assert.Equal(t, now.Add(time.Hour).Format(time.RFC3339Nano), record["expiry"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "the token file must not be rewritten")
}

func TestBuild_ExpiredTokenRefreshedAgainstEndpoint(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	// The endpoint derives expiry from the wall clock, so this test uses a real clock.
	fields := baseFields(time.Now().Add(-time.Minute))
	fields["token_uri"] = srv.URL
	path := tokenFile(t, fields)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	c := New(Options{Refresher: google.NewTokenRefresher(srv.Client())})

	record, err := c.Build(context.Background(), inputs(path))
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
	assert.Equal(t, "ya29.fresh", record["token"])
	assert.Equal(t, "1//refresh", record["refresh_token"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuild_RefreshFails(t *testing.T) {
	path := tokenFile(t, baseFields(now.Add(-time.Hour)))
	refresher := &fakeRefresher{err: errors.New("invalid_grant")}

	record, err := newComponent(refresher).Build(context.Background(), inputs(path))
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, refresher.calls, "refresh must not be retried")

	var refreshErr *CredentialRefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Contains(t, err.Error(), "invalid_grant")
	assert.Equal(t, KindCredentialRefresh, Kind(err))
}

func TestBuild_ExpiredWithoutRefreshToken(t *testing.T) {
	fields := baseFields(now.Add(-time.Hour))
	delete(fields, "refresh_token")
	refresher := &fakeRefresher{}

	_, err := newComponent(refresher).Build(context.Background(), inputs(tokenFile(t, fields)))
	var missing *MissingCredentialError
	require.ErrorAs(t, err, &missing)
	assert.Zero(t, refresher.calls)
}

func TestBuild_NoTokenFile(t *testing.T) {
	refresher := &fakeRefresher{}

	record, err := newComponent(refresher).Build(context.Background(), inputs(""))
	assert.Nil(t, record)
	var missing *MissingCredentialError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), "gtoken generate")
	assert.Zero(t, refresher.calls, "no network calls without a token file")
}

func TestBuild_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "malformed.json")
	require.NoError(t, os.WriteFile(malformed, []byte("{not json"), 0600))

	noClient := baseFields(now.Add(time.Hour))
	delete(noClient, "client_id")

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"malformed json", malformed},
		{"missing client id", tokenFile(t, noClient)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newComponent(&fakeRefresher{}).Build(context.Background(), inputs(tt.path))
			var loadErr *CredentialLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.path, loadErr.Path)
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestBuild_ValidationErrors(t *testing.T) {
	path := tokenFile(t, baseFields(now.Add(time.Hour)))

	tests := []struct {
		name  string
		in    Inputs
		field string
	}{
		{"quoted scopes", Inputs{Scopes: `"` + driveReadonly + `"`, ClientSecretFile: "cs.json", TokenFile: path}, InputScopes},
		{"unknown host", Inputs{Scopes: "https://example.com/auth/drive", ClientSecretFile: "cs.json", TokenFile: path}, InputScopes},
		{"empty scopes", Inputs{Scopes: "", ClientSecretFile: "cs.json", TokenFile: path}, InputScopes},
		{"missing client secret", Inputs{Scopes: driveReadonly, TokenFile: path}, InputOAuthCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &fakeRefresher{}
			_, err := newComponent(refresher).Build(context.Background(), tt.in)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
			assert.Equal(t, KindValidation, Kind(err))
			assert.Zero(t, refresher.calls)
		})
	}
}

func TestBuild_ValidationPrecedesMissingToken(t *testing.T) {
	_, err := newComponent(&fakeRefresher{}).Build(context.Background(), Inputs{Scopes: "bogus"})
	assert.Equal(t, KindValidation, Kind(err))
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindMissingCredential, Kind(&MissingCredentialError{}))
	assert.Equal(t, KindCredentialLoad, Kind(&CredentialLoadError{Err: errors.New("x")}))
	assert.Equal(t, KindUnknown, Kind(errors.New("other")))
	assert.Equal(t, KindUnknown, Kind(nil))
}

func TestDescribe(t *testing.T) {
	d := Describe()
	assert.Equal(t, "GoogleOAuthToken", d.Name)
	assert.Equal(t, "output", d.Output.Name)
	require.Len(t, d.Inputs, 3)

	assert.Equal(t, InputScopes, d.Inputs[0].Name)
	assert.Equal(t, InputMultiline, d.Inputs[0].Kind)
	assert.True(t, d.Inputs[0].Required)
	assert.Equal(t, scopes.Defaults, d.Inputs[0].Default)

	assert.Equal(t, InputOAuthCredentials, d.Inputs[1].Name)
	assert.True(t, d.Inputs[1].Required)
	assert.Equal(t, []string{"json"}, d.Inputs[1].FileTypes)

	assert.Equal(t, InputTokenFile, d.Inputs[2].Name)
	assert.False(t, d.Inputs[2].Required)
}
