package credential

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const sampleFile = `{
  "token": "ya29.access",
  "refresh_token": "1//refresh",
  "token_uri": "https://oauth2.googleapis.com/token",
  "client_id": "client.apps.googleusercontent.com",
  "client_secret": "secret",
  "scopes": ["https://www.googleapis.com/auth/drive"],
  "universe_domain": "googleapis.com",
  "account": "",
  "expiry": "2030-01-02T03:04:05.123456Z"
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleFile), nil)
	require.NoError(t, err)

	assert.Equal(t, "ya29.access", s.Token)
	assert.Equal(t, "1//refresh", s.RefreshToken)
	assert.Equal(t, "https://oauth2.googleapis.com/token", s.TokenURI)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/drive"}, s.Scopes)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 123456000, time.UTC), s.Expiry)
	assert.Empty(t, s.Type)
}

func TestParse_DeclaredScopesReplaceFileScopes(t *testing.T) {
	declared := []string{"https://mail.google.com/", "https://www.googleapis.com/auth/tasks"}
	s, err := Parse([]byte(sampleFile), declared)
	require.NoError(t, err)
	assert.Equal(t, declared, s.Scopes)

	declared[0] = "mutated"
	assert.Equal(t, "https://mail.google.com/", s.Scopes[0], "Parse must copy the declared scopes")
}

func TestParse_Compatibility(t *testing.T) {
	data := `{"access_token":"at","client_id":"id","client_secret":"sec","scopes":["s"],"expiry":"2030-01-02T03:04:05"}`
	s, err := Parse([]byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, "at", s.Token)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), s.Expiry)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		scopes []string
	}{
		{"not json", "not json", nil},
		{"missing client id", `{"token":"t","client_secret":"s","scopes":["x"]}`, nil},
		{"missing client secret", `{"token":"t","client_id":"c","scopes":["x"]}`, nil},
		{"no tokens", `{"client_id":"c","client_secret":"s","scopes":["x"]}`, nil},
		{"no scopes", `{"token":"t","client_id":"c","client_secret":"s"}`, nil},
		{"bad expiry", `{"token":"t","client_id":"c","client_secret":"s","scopes":["x"],"expiry":"tomorrow"}`, nil},
		{"service account", `{"type":"service_account","token":"t","client_id":"c","client_secret":"s","scopes":["x"]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.scopes)
			assert.Error(t, err)
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"no expiry", time.Time{}, false},
		{"far future", now.Add(time.Hour), false},
		{"within skew", now.Add(5 * time.Second), true},
		{"past", now.Add(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Set{Token: "t", Expiry: tt.expiry}
			assert.Equal(t, tt.want, s.Expired(now))
			assert.Equal(t, !tt.want, s.Valid(now))
		})
	}
}

func TestValid_RequiresAccessToken(t *testing.T) {
	s := &Set{RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	assert.False(t, s.Valid(time.Now()))
	assert.True(t, s.CanRefresh())
}

func TestRoundTrip(t *testing.T) {
	scopes := []string{"https://www.googleapis.com/auth/drive"}
	original, err := Parse([]byte(sampleFile), scopes)
	require.NoError(t, err)

	data, err := original.Marshal()
	require.NoError(t, err)

	reparsed, err := Parse(data, scopes)
	require.NoError(t, err)

	assert.Equal(t, original.Token, reparsed.Token)
	assert.Equal(t, original.RefreshToken, reparsed.RefreshToken)
	assert.True(t, original.Expiry.Equal(reparsed.Expiry))
	assert.Equal(t, original.Scopes, reparsed.Scopes)
	assert.Equal(t, TypeAuthorizedUser, reparsed.Type)
}

func TestRecord(t *testing.T) {
	s, err := Parse([]byte(sampleFile), nil)
	require.NoError(t, err)

	record, err := s.Record()
	require.NoError(t, err)

	var file map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleFile), &file))
	delete(file, "account") // empty values are not serialized
	file["type"] = TypeAuthorizedUser

	assert.Equal(t, file, record)
}

func TestWithToken(t *testing.T) {
	base, err := Parse([]byte(sampleFile), nil)
	require.NoError(t, err)

	expiry := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := WithToken(base, &oauth2.Token{AccessToken: "new", Expiry: expiry})

	assert.Equal(t, "new", updated.Token)
	assert.Equal(t, expiry, updated.Expiry)
	assert.Equal(t, "1//refresh", updated.RefreshToken, "refresh token kept when not rotated")
	assert.Equal(t, "ya29.access", base.Token, "base must not be mutated")

	rotated := WithToken(base, &oauth2.Token{AccessToken: "new", RefreshToken: "rotated", Expiry: expiry})
	assert.Equal(t, "rotated", rotated.RefreshToken)
}

func TestOAuth2Config(t *testing.T) {
	s := &Set{ClientID: "id", ClientSecret: "sec", Scopes: []string{"a"}}
	conf := s.OAuth2Config()
	assert.Equal(t, DefaultTokenURI, conf.Endpoint.TokenURL)
	assert.Equal(t, "id", conf.ClientID)

	s.TokenURI = "http://127.0.0.1/token"
	assert.Equal(t, "http://127.0.0.1/token", s.OAuth2Config().Endpoint.TokenURL)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "token.json")

	s, err := Parse([]byte(sampleFile), nil)
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, s))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Overwrite with a different token.
	s.Token = "second"
	require.NoError(t, WriteFile(path, s))

	got, err := ReadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Token)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
