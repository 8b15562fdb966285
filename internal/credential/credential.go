package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TypeAuthorizedUser is the discriminator of user-authorized credentials, as
// opposed to service-account keys.
const TypeAuthorizedUser = "authorized_user"

// DefaultTokenURI is used for refresh exchanges when a file does not name one.
var DefaultTokenURI = google.Endpoint.TokenURL

// expiryDelta matches the early-expiry margin of golang.org/x/oauth2 so that a
// token is never handed out seconds before it stops working.
const expiryDelta = 10 * time.Second

// Set is a Credential Set: everything needed to call Google APIs on behalf of
// a user and to renew that access.
type Set struct {
	Token          string
	RefreshToken   string
	TokenURI       string
	ClientID       string
	ClientSecret   string
	Scopes         []string
	Expiry         time.Time
	Type           string
	Account        string
	UniverseDomain string
	RaptToken      string
}

// fileSet is the JSON shape of a token file.
type fileSet struct {
	Token          string   `json:"token,omitempty"`
	AccessToken    string   `json:"access_token,omitempty"`
	RefreshToken   string   `json:"refresh_token,omitempty"`
	TokenURI       string   `json:"token_uri,omitempty"`
	ClientID       string   `json:"client_id,omitempty"`
	ClientSecret   string   `json:"client_secret,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
	Expiry         string   `json:"expiry,omitempty"`
	Type           string   `json:"type,omitempty"`
	Account        string   `json:"account,omitempty"`
	UniverseDomain string   `json:"universe_domain,omitempty"`
	RaptToken      string   `json:"rapt_token,omitempty"`
}

// Parse decodes a token file. When scopes is non-empty it replaces the scopes
// stored in the file, restricting the set to what the caller declared.
func Parse(data []byte, scopes []string) (*Set, error) {
	var f fileSet
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}

	expiry, err := parseExpiry(f.Expiry)
	if err != nil {
		return nil, err
	}

	s := &Set{
		Token:          f.Token,
		RefreshToken:   f.RefreshToken,
		TokenURI:       f.TokenURI,
		ClientID:       f.ClientID,
		ClientSecret:   f.ClientSecret,
		Scopes:         f.Scopes,
		Expiry:         expiry,
		Type:           f.Type,
		Account:        f.Account,
		UniverseDomain: f.UniverseDomain,
		RaptToken:      f.RaptToken,
	}
	if s.Token == "" {
		s.Token = f.AccessToken
	}
	if len(scopes) > 0 {
		s.Scopes = slices.Clone(scopes)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Set) validate() error {
	var missing []string
	if s.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if s.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if s.Token == "" && s.RefreshToken == "" {
		missing = append(missing, "token or refresh_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("token file is missing fields: %v", missing)
	}
	if s.Type != "" && s.Type != TypeAuthorizedUser {
		return fmt.Errorf("unsupported credential type %q, want %q", s.Type, TypeAuthorizedUser)
	}
	if len(s.Scopes) == 0 {
		return errors.New("credential has no scopes")
	}
	return nil
}

// Layouts accepted for the expiry field, most specific first.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseExpiry(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range expiryLayouts {
		// Zone-less timestamps are UTC.
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid expiry %q", v)
}

// ReadFile reads and parses the token file at path.
func ReadFile(path string, scopes []string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return Parse(data, scopes)
}

// Expired reports whether the access token is expired at now. A set without
// an expiry never expires.
func (s *Set) Expired(now time.Time) bool {
	if s.Expiry.IsZero() {
		return false
	}
	return now.Add(expiryDelta).After(s.Expiry)
}

// Valid reports whether the set holds a usable access token at now.
func (s *Set) Valid(now time.Time) bool {
	return s.Token != "" && !s.Expired(now)
}

// CanRefresh reports whether a refresh exchange is possible.
func (s *Set) CanRefresh() bool {
	return s.RefreshToken != ""
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	c := *s
	c.Scopes = slices.Clone(s.Scopes)
	return &c
}

// OAuth2Config returns the client configuration for refresh exchanges.
func (s *Set) OAuth2Config() *oauth2.Config {
	tokenURI := s.TokenURI
	if tokenURI == "" {
		tokenURI = DefaultTokenURI
	}
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  tokenURI,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: slices.Clone(s.Scopes),
	}
}

// OAuth2Token converts the set to an oauth2 token.
func (s *Set) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.Token,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// WithToken returns a copy of base carrying the access token, expiry and, when
// the provider rotated it, the refresh token from tok.
func WithToken(base *Set, tok *oauth2.Token) *Set {
	s := base.Clone()
	s.Token = tok.AccessToken
	s.Expiry = tok.Expiry.UTC()
	if tok.RefreshToken != "" {
		s.RefreshToken = tok.RefreshToken
	}
	return s
}

// Marshal renders the set in token file format. The type field is always
// present.
func (s *Set) Marshal() ([]byte, error) {
	return json.MarshalIndent(s.file(), "", "  ")
}

func (s *Set) file() fileSet {
	f := fileSet{
		Token:          s.Token,
		RefreshToken:   s.RefreshToken,
		TokenURI:       s.TokenURI,
		ClientID:       s.ClientID,
		ClientSecret:   s.ClientSecret,
		Scopes:         s.Scopes,
		Type:           s.Type,
		Account:        s.Account,
		UniverseDomain: s.UniverseDomain,
		RaptToken:      s.RaptToken,
	}
	if f.Type == "" {
		f.Type = TypeAuthorizedUser
	}
	if f.TokenURI == "" {
		f.TokenURI = DefaultTokenURI
	}
	if !s.Expiry.IsZero() {
		f.Expiry = s.Expiry.UTC().Format(time.RFC3339Nano)
	}
	return f
}

// Record returns the set as a generic structured record, the form handed to
// plugin host pipelines.
func (s *Set) Record() (map[string]any, error) {
	data, err := json.Marshal(s.file())
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode credential record: %w", err)
	}
	if _, ok := record["type"]; !ok {
		record["type"] = TypeAuthorizedUser
	}
	return record, nil
}

// WriteFile atomically replaces the token file at path with s.
func WriteFile(path string, s *Set) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
