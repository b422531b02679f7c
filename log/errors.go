package log

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Sentinel errors returned by constructors and reported by appender internals.
var (
	// ErrInvalidCapacity indicates a cyclic buffer was created with a
	// capacity below one.
	ErrInvalidCapacity = errors.New("log: buffer capacity must be at least 1")

	// ErrAppenderClosed indicates an append was attempted after Close.
	ErrAppenderClosed = errors.New("log: appender is closed")

	// ErrLockNotHeld indicates ReleaseLock was called without a matching
	// AcquireLock. The caller broke the locking protocol.
	ErrLockNotHeld = errors.New("log: release without matching acquire")

	// ErrAppenderDisabled indicates the appender shut itself down after a
	// configuration error and is discarding events.
	ErrAppenderDisabled = errors.New("log: appender disabled by configuration error")
)

// ErrorHandler receives failures from inside appenders. Logging calls never
// propagate sink errors back to the caller; they land here instead. Handler
// implementations must not log through the framework, or a failing appender
// would recurse into itself.
type ErrorHandler interface {
	Error(msg string, err error)
}

// OnlyOnceErrorHandler writes the first error to stderr and silently counts
// every subsequent one. A wedged sink then costs one diagnostic line instead
// of a line per dropped event. The suppressed count is still observable for
// tests and metrics.
type OnlyOnceErrorHandler struct {
	prefix     string
	once       sync.Once
	suppressed atomic.Uint64
}

// NewOnlyOnceErrorHandler creates a handler whose single diagnostic line is
// tagged with prefix, typically the owning appender's name.
func NewOnlyOnceErrorHandler(prefix string) *OnlyOnceErrorHandler {
	return &OnlyOnceErrorHandler{prefix: prefix}
}

// Error reports err with context msg. Only the first call produces output.
func (h *OnlyOnceErrorHandler) Error(msg string, err error) {
	reported := false
	h.once.Do(func() {
		reported = true
		if err != nil {
			fmt.Fprintf(os.Stderr, "tyto/log [%s]: %s: %v\n", h.prefix, msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "tyto/log [%s]: %s\n", h.prefix, msg)
		}
	})
	if !reported {
		h.suppressed.Add(1)
	}
}

// Suppressed returns how many errors were swallowed after the first report.
func (h *OnlyOnceErrorHandler) Suppressed() uint64 {
	return h.suppressed.Load()
}

// errorHandlerFunc adapts a plain function to the ErrorHandler interface.
type errorHandlerFunc func(msg string, err error)

func (f errorHandlerFunc) Error(msg string, err error) { f(msg, err) }

// ErrorHandlerFunc wraps fn as an ErrorHandler. Handy for tests and for
// callers that forward appender failures to their own diagnostics.
func ErrorHandlerFunc(fn func(msg string, err error)) ErrorHandler {
	return errorHandlerFunc(fn)
}
