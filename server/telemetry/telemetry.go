// Package telemetry carries the logger and event counters shared by the
// server. Log lines go through zap; counters are kept in process for
// LogCounters and mirrored into prometheus for /metrics.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type TelemetryData struct {
	logger *zap.SugaredLogger

	counterLock sync.Mutex
	counters    map[string]int

	trace bool
}

var data = TelemetryData{
	counters: make(map[string]int),
	trace:    true,
}

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "activitystreams_events_total",
	Help: "Number of server events by name",
}, []string{"name"})

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.WithClock(utcClock{}))
	if err != nil {
		l = zap.NewNop()
	}
	data.logger = l.Sugar()
}

// SetLogger replaces the process logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger) {
	data.logger = l.Sugar()
}

// SetTrace turns Trace output on or off.
func SetTrace(on bool) {
	data.trace = on
}

func Sync() error {
	return data.logger.Sync()
}

func Log(format string, args ...any) {
	data.logger.Infof(format, args...)
}

func Trace(format string, args ...any) {
	if data.trace {
		data.logger.Debugf(format, args...)
	}
}

func Error(err error, format string, args ...any) {
	data.logger.Errorw(fmt.Sprintf(format, args...), "error", err)
	Increment("errors", 1)
}

// Request logs essential information about an HTTP request
func Request(r *http.Request, format string, args ...any) {
	data.logger.Infow(fmt.Sprintf(format, args...), "method", r.Method, "url", r.URL.String())
}

// Increment increases a count, thread-safe
func Increment(name string, n int) {
	data.counterLock.Lock()
	data.counters[name] += n
	data.counterLock.Unlock()
	eventsTotal.WithLabelValues(name).Add(float64(n))
}

func GetCounter(name string) int {
	data.counterLock.Lock()
	defer data.counterLock.Unlock()
	return data.counters[name]
}

func LogCounters() {
	s := make([]string, 0)
	data.counterLock.Lock()
	for k, v := range data.counters {
		s = append(s, fmt.Sprintf("%s=%d", k, v))
	}
	data.counterLock.Unlock()
	if len(s) == 0 {
		s = append(s, "no counters were recorded")
	}
	sort.Strings(s)
	Log("%s", strings.Join(s, ", "))
}

// Handler serves the prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
