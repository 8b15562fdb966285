// Package instrumentation provides OpenTelemetry metrics and tracing for
// gtoken.
//
// # Metrics
//
//   - gtoken_token_loads_total: token loader invocations by result kind
//   - gtoken_token_refresh_total: refresh exchanges by result
//   - gtoken_token_generations_total: generator runs by path and result
//   - gtoken_userinfo_lookups_total: account email lookups by result
//   - gtoken_operation_duration_seconds: duration of the above by operation
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: plugin host tool calls
//
// # Tracing
//
// Spans are created for loader builds (tokenloader.build), refresh and code
// exchanges (oauth.refresh, oauth.exchange), userinfo lookups
// (google.userinfo.get) and MCP tool calls (tool.<name>).
//
// # Configuration
//
// Instrumentation is configured from the environment:
//
//	INSTRUMENTATION_ENABLED        enable metrics and tracing (default: true)
//	METRICS_EXPORTER               prometheus, otlp or stdout (default: prometheus)
//	TRACING_EXPORTER               otlp, stdout or none (default: none)
//	OTEL_EXPORTER_OTLP_ENDPOINT    collector endpoint for otlp exporters
//	OTEL_EXPORTER_OTLP_INSECURE    use plain HTTP for otlp (default: false)
//	OTEL_TRACES_SAMPLER_ARG        trace sampling ratio (default: 0.1)
//	AUDIT_LOGGING_ENABLED          log every tool invocation (default: true)
//
// A disabled provider hands out a no-op Metrics value, so callers never need
// nil checks.
package instrumentation
