package ownref

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// testLogHandler captures log records for testing.
type testLogHandler struct {
	buf *bytes.Buffer
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{buf: &bytes.Buffer{}}
}

func (h *testLogHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{"msg": r.Message}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testLogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *testLogHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *testLogHandler) messages() []string {
	var msgs []string
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			if s, ok := m["msg"].(string); ok {
				msgs = append(msgs, s)
			}
		}
	}
	return msgs
}

// TestOwner_WithLogger verifies the lifecycle events an instrumented
// owner emits.
func TestOwner_WithLogger(t *testing.T) {
	h := newTestLogHandler()
	owner := OwnerOf(intp(1), WithLogger(slog.New(h)), WithName("logged"))

	reader := owner.Reader()
	owner.Reset(intp(2))
	reader.Close()
	owner.Close()

	msgs := h.messages()
	assert.Contains(t, msgs, "reader attached")
	assert.Contains(t, msgs, "value reset")
	assert.Contains(t, msgs, "reader detached")
	assert.Contains(t, msgs, "owner closed")
}

// TestOwner_WithLogger_AttachRejected verifies the closed-owner warning
// reaches the log.
func TestOwner_WithLogger_AttachRejected(t *testing.T) {
	h := newTestLogHandler()
	owner := OwnerOf(intp(1), WithLogger(slog.New(h)))
	owner.Close()

	owner.Attach(NewReader[int]())
	assert.Contains(t, h.messages(), "attach to closed owner")
}

// TestOwner_WithMetrics verifies an instrumented owner reaches the
// global meter provider end to end.
func TestOwner_WithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}()

	owner := OwnerOf(intp(3), WithMetrics(true), WithName("measured"))
	r := owner.Reader()

	v, ok := r.Lock()
	require.True(t, ok)
	assert.Equal(t, 3, *v)
	r.Unlock()

	owner.Reset(intp(7))
	owner.Close()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["ownref.reader.locks"], "Expected lock counter")
	assert.True(t, names["ownref.owner.readers"], "Expected reader gauge")
	assert.True(t, names["ownref.owner.reclaim_wait_ms"], "Expected reclaim histogram")
}
