// Package logging provides structured logging utilities for gtoken.
//
// All logging goes through log/slog. This package builds the process logger
// from CLI flags and centralizes attribute names so that the generator, the
// loader component and the plugin hosts log consistently.
//
// # Security Considerations
//
// Credential material must never reach the logs:
//   - Access and refresh tokens are logged only through SanitizeToken
//   - Account emails are hashed with UserHash
//
// Logs are written to stderr. Stdout is reserved for the credential record
// and for the MCP stdio transport.
package logging
