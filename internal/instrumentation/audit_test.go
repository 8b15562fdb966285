package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), true)

	ti := NewToolInvocation("google_oauth_token").Complete("CredentialLoadError", errors.New("bad file"))
	al.LogToolInvocation(ti)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool_failed", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "google_oauth_token", entry["tool"])
	assert.Equal(t, "CredentialLoadError", entry["kind"])
	assert.Equal(t, "bad file", entry["error"])
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, StatusError, ti.Status())
}

func TestAuditLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), true)

	ti := NewToolInvocation("google_oauth_token").Complete("", nil)
	al.LogToolInvocation(ti)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool_executed", entry["msg"])
	assert.NotContains(t, entry, "kind")
	assert.NotContains(t, entry, "error")
	assert.Equal(t, StatusSuccess, ti.Status())
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), false)
	al.LogToolInvocation(NewToolInvocation("t").Complete("", nil))
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() { nilLogger.LogToolInvocation(NewToolInvocation("t")) })
}
