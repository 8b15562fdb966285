package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrPath      = "path"
	attrTool      = "tool"
)

// Operation names used for the duration histogram.
const (
	OperationLoad     = "load"
	OperationRefresh  = "refresh"
	OperationGenerate = "generate"
	OperationUserinfo = "userinfo"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a no-op recorder.
type Metrics struct {
	tokenLoadsTotal       metric.Int64Counter
	tokenRefreshTotal     metric.Int64Counter
	tokenGenerationsTotal metric.Int64Counter
	userinfoLookupsTotal  metric.Int64Counter
	operationDuration     metric.Float64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments created on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.tokenLoadsTotal, err = meter.Int64Counter(
		"gtoken_token_loads_total",
		metric.WithDescription("Total number of token loader invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtoken_token_loads_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"gtoken_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh exchanges"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtoken_token_refresh_total counter: %w", err)
	}

	m.tokenGenerationsTotal, err = meter.Int64Counter(
		"gtoken_token_generations_total",
		metric.WithDescription("Total number of token generator runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtoken_token_generations_total counter: %w", err)
	}

	m.userinfoLookupsTotal, err = meter.Int64Counter(
		"gtoken_userinfo_lookups_total",
		metric.WithDescription("Total number of account email lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtoken_userinfo_lookups_total counter: %w", err)
	}

	m.operationDuration, err = meter.Float64Histogram(
		"gtoken_operation_duration_seconds",
		metric.WithDescription("Duration of token operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gtoken_operation_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) recordDuration(ctx context.Context, operation string, duration time.Duration) {
	if m.operationDuration == nil {
		return
	}
	m.operationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordTokenLoad records a loader invocation. result is "success" or the
// error kind that ended the invocation.
func (m *Metrics) RecordTokenLoad(ctx context.Context, result string, duration time.Duration) {
	if m.tokenLoadsTotal == nil {
		return
	}
	m.tokenLoadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
	m.recordDuration(ctx, OperationLoad, duration)
}

// RecordTokenRefresh records a refresh exchange with status "success" or "error".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, status string, duration time.Duration) {
	if m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, status)))
	m.recordDuration(ctx, OperationRefresh, duration)
}

// RecordTokenGeneration records a generator run.
//
// Parameters:
//   - path: how the credential was obtained (reuse, refresh, authorize)
//   - status: "success" or "error"
//   - duration: wall time of the run, including the browser wait
func (m *Metrics) RecordTokenGeneration(ctx context.Context, path, status string, duration time.Duration) {
	if m.tokenGenerationsTotal == nil {
		return
	}
	m.tokenGenerationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrPath, path),
		attribute.String(attrResult, status),
	))
	m.recordDuration(ctx, OperationGenerate, duration)
}

// RecordUserinfoLookup records an account email lookup.
func (m *Metrics) RecordUserinfoLookup(ctx context.Context, status string, duration time.Duration) {
	if m.userinfoLookupsTotal == nil {
		return
	}
	m.userinfoLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, status)))
	m.recordDuration(ctx, OperationUserinfo, duration)
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
