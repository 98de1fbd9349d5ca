package telemetry

import (
	"time"
)

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

func (utcClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// Printer writes Printf style library output to the log, e.g. for gorm.
type Printer struct{}

func (Printer) Printf(format string, args ...any) {
	data.logger.Infof(format, args...)
}

// Leveled adapts the logger to key/value leveled interfaces such as the
// one used by go-retryablehttp. Errors there are reported before a retry,
// so they are logged as warnings.
type Leveled struct{}

func (Leveled) Error(msg string, keysAndValues ...any) {
	data.logger.Warnw(msg, keysAndValues...)
}

func (Leveled) Warn(msg string, keysAndValues ...any) {
	data.logger.Warnw(msg, keysAndValues...)
}

func (Leveled) Info(msg string, keysAndValues ...any) {
	data.logger.Infow(msg, keysAndValues...)
}

func (Leveled) Debug(msg string, keysAndValues ...any) {
	if data.trace {
		data.logger.Debugw(msg, keysAndValues...)
	}
}
