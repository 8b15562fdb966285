// Package cmd implements the command-line interface for gtoken.
//
// This package provides the following commands:
//   - generate: Run the interactive OAuth flow and write a token file
//   - load: Run the GoogleOAuthToken component once and print its record
//   - serve: Expose the component as an MCP tool over stdio
//   - generate-docs: Generate markdown documentation for the MCP tool
//   - version: Display version information
//
// Logs are written to stderr; stdout carries records and the MCP transport.
package cmd
