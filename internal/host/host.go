package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/gtoken/internal/instrumentation"
	"github.com/teemow/gtoken/internal/logging"
	"github.com/teemow/gtoken/internal/tokenloader"
)

// ToolName is the MCP tool name of the component.
const ToolName = "google_oauth_token"

// Builder runs the component once.
type Builder interface {
	Build(ctx context.Context, in tokenloader.Inputs) (tokenloader.Record, error)
}

// Options configure a Host. Nil fields disable the matching concern.
type Options struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Host adapts a Builder to MCP tool calls.
type Host struct {
	builder    Builder
	descriptor tokenloader.Descriptor
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	logger     *slog.Logger
}

// New creates a Host for b.
func New(b Builder, opts Options) *Host {
	h := &Host{
		builder:    b,
		descriptor: tokenloader.Describe(),
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		logger:     opts.Logger,
	}
	if h.metrics == nil {
		h.metrics = &instrumentation.Metrics{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Tool returns the MCP declaration of the component.
func (h *Host) Tool() mcp.Tool {
	d := h.descriptor
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.DisplayName + ". " + d.Description),
	}
	for _, in := range d.Inputs {
		props := []mcp.PropertyOption{mcp.Description(inputDescription(in))}
		if in.Required {
			props = append(props, mcp.Required())
		}
		if in.Default != "" {
			props = append(props, mcp.DefaultString(in.Default))
		}
		opts = append(opts, mcp.WithString(in.Name, props...))
	}
	return mcp.NewTool(ToolName, opts...)
}

func inputDescription(in tokenloader.Input) string {
	switch in.Kind {
	case tokenloader.InputFile:
		return fmt.Sprintf("%s: %s Path to a %v file.", in.DisplayName, in.Info, in.FileTypes)
	default:
		return fmt.Sprintf("%s: %s", in.DisplayName, in.Info)
	}
}

// Register adds the component tool to s.
func (h *Host) Register(s *mcpserver.MCPServer) {
	s.AddTool(h.Tool(), h.Handle)
}

// NewServer creates an MCP server exposing the component.
func (h *Host) NewServer(version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("gtoken", version,
		mcpserver.WithToolCapabilities(true),
	)
	h.Register(s)
	return s
}

// Handle serves one tool call.
func (h *Host) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := instrumentation.StartToolSpan(ctx, ToolName)
	defer span.End()

	invocation := instrumentation.NewToolInvocation(ToolName).WithSpanContext(ctx)

	args := request.GetArguments()
	in := tokenloader.Inputs{
		Scopes:           stringArg(args, tokenloader.InputScopes),
		ClientSecretFile: stringArg(args, tokenloader.InputOAuthCredentials),
		TokenFile:        stringArg(args, tokenloader.InputTokenFile),
	}
	// Hosts fill in declared defaults for omitted inputs.
	if _, ok := args[tokenloader.InputScopes]; !ok {
		in.Scopes = defaultString(h.descriptor, tokenloader.InputScopes)
	}

	result, kind, err := h.build(ctx, in)

	invocation.Complete(kind, err)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrResult, invocation.Status()))
	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	h.metrics.RecordToolInvocation(ctx, ToolName, invocation.Status(), invocation.Duration)
	h.audit.LogToolInvocation(invocation)

	return result, nil
}

func (h *Host) build(ctx context.Context, in tokenloader.Inputs) (*mcp.CallToolResult, string, error) {
	record, err := h.builder.Build(ctx, in)
	if err != nil {
		kind := tokenloader.Kind(err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err)), kind, err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode credential record", logging.Err(err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode credential record: %v", err)), tokenloader.KindUnknown, err
	}
	return mcp.NewToolResultText(string(data)), "", nil
}

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func defaultString(d tokenloader.Descriptor, name string) string {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in.Default
		}
	}
	return ""
}
