// Package server provides the HTTP side of "gtoken serve": a dedicated
// metrics listener exposing the Prometheus registry and health endpoints,
// kept separate from the MCP stdio transport.
package server
