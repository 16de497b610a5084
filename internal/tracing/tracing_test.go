package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_NoopWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop")
	span.SetAttributes(map[string]string{"k": "v"})
	EndSpan(span, nil)

	assert.Empty(t, TraceID(ctx))
}

func TestNilSpanIsSafe(t *testing.T) {
	var span *Span
	span.SetAttributes(map[string]string{"k": "v"})
	span.SetStatusFromHTTPCode(500)
	span.End()
	EndSpan(span, errors.New("ignored"))
}

func TestInit_WritesSpansToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spans.json")

	shutdown, err := Init("namereg", "test", out)
	require.NoError(t, err)

	ctx, parent := StartServerSpan(context.Background(), "GET /{name}")
	require.NotEmpty(t, TraceID(ctx))

	_, child := StartSpan(ctx, "registry.register")
	child.SetAttributes(map[string]string{"record.id": "abc"})
	EndSpan(child, errors.New("insert failed"))
	parent.SetStatusFromHTTPCode(500)
	parent.End()

	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "registry.register"), "child span missing")
	assert.True(t, strings.Contains(text, "GET /{name}"), "server span missing")
	assert.True(t, strings.Contains(text, "insert failed"), "error status missing")

	// provider is gone after shutdown
	ctx, span := StartSpan(context.Background(), "after")
	EndSpan(span, nil)
	assert.Empty(t, TraceID(ctx))
}

func TestInit_BadOutputPath(t *testing.T) {
	_, err := Init("namereg", "test", filepath.Join(t.TempDir(), "missing", "dir", "spans.json"))
	assert.Error(t, err)
}
