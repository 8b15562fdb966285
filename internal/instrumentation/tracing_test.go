package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartToolSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartToolSpan(context.Background(), "google_oauth_token",
		attribute.String(SpanAttrResult, StatusSuccess))
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID in the span context")
	}
	EndSpan(span, nil)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	got := ended[0]
	if got.Name() != "tool.google_oauth_token" {
		t.Errorf("expected span name 'tool.google_oauth_token', got %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindServer {
		t.Errorf("expected server span kind, got %v", got.SpanKind())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", got.Status().Code)
	}

	attrs := make(map[attribute.Key]string)
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs[SpanAttrTool] != "google_oauth_token" {
		t.Errorf("expected tool attribute, got %q", attrs[SpanAttrTool])
	}
	if attrs[SpanAttrResult] != StatusSuccess {
		t.Errorf("expected result attribute %q, got %q", StatusSuccess, attrs[SpanAttrResult])
	}
}

func TestStartClientSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartClientSpan(context.Background(), "oauth.refresh")
	EndSpan(span, errors.New("invalid_grant"))

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	got := ended[0]
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span kind, got %v", got.SpanKind())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("expected status Error, got %v", got.Status().Code)
	}
	if got.Status().Description != "invalid_grant" {
		t.Errorf("expected status description 'invalid_grant', got %q", got.Status().Description)
	}
	if len(got.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID, got %q", id)
	}
}
