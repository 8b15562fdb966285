// Package credential defines the Credential Set shared by the token generator
// and the token loader, and its on-disk JSON format.
//
// The format is Google's "authorized user" token file: the access token is
// stored under "token", the expiry is an RFC 3339 timestamp and the set
// carries the OAuth client identity needed for refresh exchanges. Files
// written by other tools with "access_token" or zone-less expiry timestamps
// are accepted on read.
package credential
