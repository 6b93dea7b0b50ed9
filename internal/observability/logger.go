package observability

import (
	"io"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// CoreLogger wraps slog with error capture.
//
// Captured errors are logged and, when a reporter is installed (see
// [InitSentry]), forwarded to the error tracker. The logger must never
// write to the TTY while the TUI owns it; callers pass a file handle.
type CoreLogger struct {
	*slog.Logger

	capture func(error)
}

// Params configures a CoreLogger.
type Params struct {
	// Out is where log lines go. Required.
	Out io.Writer

	// Level is the minimum level to log. Defaults to Info.
	Level slog.Level

	// Capture receives errors passed to CaptureError, in addition to
	// logging. Optional.
	Capture func(error)
}

// NewCoreLogger creates a logger writing text lines to params.Out.
func NewCoreLogger(params Params) *CoreLogger {
	handler := slog.NewTextHandler(
		params.Out,
		&slog.HandlerOptions{Level: params.Level},
	)
	return &CoreLogger{
		Logger:  slog.New(handler),
		capture: params.Capture,
	}
}

// NewNoOpLogger returns a logger that discards everything.
//
// Intended for tests.
func NewNoOpLogger() *CoreLogger {
	return NewCoreLogger(Params{Out: io.Discard, Level: slog.Level(1000)})
}

// CaptureError logs the error and forwards it to the reporter, if any.
func (l *CoreLogger) CaptureError(err error, args ...any) {
	if err == nil {
		return
	}
	l.Error(err.Error(), args...)
	if l.capture != nil {
		l.capture(err)
	}
}

// CaptureWarn logs at warn level without forwarding.
func (l *CoreLogger) CaptureWarn(msg string, args ...any) {
	l.Warn(msg, args...)
}

// InitSentry initializes the Sentry client and returns a capture function
// suitable for [Params.Capture]. Returns nil when dsn is empty, which
// disables forwarding entirely.
func InitSentry(dsn, release string) func(error) {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
	if err != nil {
		return nil
	}

	return func(captured error) {
		sentry.CaptureException(captured)
		sentry.Flush(2 * time.Second)
	}
}

// Reraise logs a panic value before re-panicking. Use in a deferred call
// at goroutine entry points.
func (l *CoreLogger) Reraise() {
	if p := recover(); p != nil {
		l.Error("panic", "value", p)
		panic(p)
	}
}
