package telemetry

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := data.logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { data.logger = previous })
	return logs
}

func TestError_LogsAndCounts(t *testing.T) {
	logs := observe(t)
	before := GetCounter("errors")

	Error(errors.New("boom"), "parsing %s", "document")

	assert.Equal(t, before+1, GetCounter("errors"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "parsing document", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["error"])
}

func TestIncrement_MirrorsPrometheus(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("test_events"))
	Increment("test_events", 2)
	Increment("test_events", 1)
	assert.Equal(t, before+3, testutil.ToFloat64(eventsTotal.WithLabelValues("test_events")))
	assert.Equal(t, 3, GetCounter("test_events"))
}

func TestTrace_Disabled(t *testing.T) {
	logs := observe(t)
	SetTrace(false)
	defer SetTrace(true)

	Trace("hidden %d", 1)
	Leveled{}.Debug("hidden too")
	assert.Equal(t, 0, logs.Len())

	Log("shown")
	assert.Equal(t, 1, logs.Len())
}

func TestRequest(t *testing.T) {
	logs := observe(t)
	r := httptest.NewRequest("GET", "/a/alice", nil)
	Request(r, "actor %s", "alice")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "GET", logs.All()[0].ContextMap()["method"])
	assert.Equal(t, "/a/alice", logs.All()[0].ContextMap()["url"])
}

func TestHandler_ExposesCounters(t *testing.T) {
	Increment("handler_events", 1)
	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, recorder.Body.String(), `activitystreams_events_total{name="handler_events"}`)
}
