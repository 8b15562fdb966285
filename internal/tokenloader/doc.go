// Package tokenloader implements the GoogleOAuthToken plugin component.
//
// The component loads a token file produced by "gtoken generate", restricts
// it to the declared scopes, refreshes it once when it has expired and hands
// the resulting credential record to the plugin host. It never opens a
// browser and never writes to the token file: a refreshed access token lives
// only in the record returned for the current invocation.
//
// Failures are reported as one of four error kinds (ValidationError,
// MissingCredentialError, CredentialLoadError, CredentialRefreshError); Kind
// maps any error returned by Build to its kind name.
package tokenloader
