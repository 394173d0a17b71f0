package log_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/decimal-ipc/dscipc/pkg/log"
)

type recordedEvent struct {
	name  string
	kv    []any
	error bool
}

type mockRecorder struct {
	events []recordedEvent
}

func (m *mockRecorder) TraceID() string { return "trace-1" }
func (m *mockRecorder) SpanID() string  { return "span-1" }

func (m *mockRecorder) RecordEvent(name string, keysAndValues ...any) {
	m.events = append(m.events, recordedEvent{name: name, kv: keysAndValues})
}

func (m *mockRecorder) RecordError(name string, keysAndValues ...any) {
	m.events = append(m.events, recordedEvent{name: name, kv: keysAndValues, error: true})
}

func TestSpanLogger(t *testing.T) {
	t.Parallel()

	tws := &testWriteSyncer{}
	rec := &mockRecorder{}
	base := log.NewZapLogger(log.Config{Format: "json", Level: log.LevelDebug, Output: "stdout"}, tws).
		WithName("client").
		WithKV("walletId", "w-1")

	lg := log.NewSpanLogger(base, rec)

	lg.Info("request sent", "action", "get_balance")
	tws.AssertEntry(t, log.LevelInfo, "client", "request sent",
		"traceId", "trace-1", "spanId", "span-1", "walletId", "w-1", "action", "get_balance")

	lg.Error("request failed", "action", "send_del")

	if assert.Len(t, rec.events, 2) {
		assert.Equal(t, "request sent", rec.events[0].name)
		assert.False(t, rec.events[0].error)
		assert.Equal(t, []any{"level", "info", "component", "client", "walletId", "w-1", "action", "get_balance"}, rec.events[0].kv)

		assert.Equal(t, "request failed", rec.events[1].name)
		assert.True(t, rec.events[1].error)
	}

	child := lg.WithKV("attempt", 2).WithName("transport")
	assert.IsType(t, &log.SpanLogger{}, child)
	assert.Equal(t, "client.transport", child.Name())
	assert.Equal(t, []any{"walletId", "w-1", "attempt", 2}, child.GetAllKV())
}
