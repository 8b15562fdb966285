// Package google provides the Google OAuth2 plumbing shared by the token
// generator and the token loader.
//
// It parses client-secret files downloaded from the Google Cloud console,
// builds the installed-application authorization request, exchanges
// authorization codes, performs refresh exchanges and resolves the account
// email through the userinfo endpoint.
//
// The Refresher interface allows the refresh exchange to be replaced in tests
// and by hosts that route token traffic through their own HTTP client.
package google
