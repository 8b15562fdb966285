// Package host exposes the GoogleOAuthToken component to plugin hosts.
//
// Hosts speak the Model Context Protocol: the component descriptor becomes
// the MCP tool "google_oauth_token" whose arguments are the component inputs
// and whose result is the credential record as JSON text. Component failures
// become tool error results prefixed with the error kind, so a host can tell
// a malformed scope list from an expired token without parsing prose.
package host
