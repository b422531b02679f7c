package log

import (
	"strings"
	"sync"
)

// Logger is the logging front-end contract: leveled event constructors plus
// the appender management and delivery hooks the events call back into.
type Logger interface {
	Trace() *LogEvent
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent

	// SetLevel changes the minimum emitted severity at runtime.
	SetLevel(level Level)

	// IgnoreCheckLevel reports whether level filtering is bypassed.
	IgnoreCheckLevel() bool

	GetAppender() []LogAppender
	AddAppender(appender LogAppender)

	// OnEventEnd receives every finished event for delivery and recycling.
	// LogEvent.End calls it; user code does not.
	OnEventEnd(e *LogEvent)
}

var (
	_defaultLogger *CoreLogger

	_registryMu sync.Mutex
	_named      map[string]*CoreLogger
	_overrides  map[string]string
)

func init() {
	// A usable logger exists before any configuration is loaded; Initialize
	// replaces it.
	_defaultLogger = NewLogger(getDefaultCfg())
	_named = make(map[string]*CoreLogger)
}

// Initialize configures the default logger. A nil cfg selects defaults.
// Named loggers handed out earlier keep delivering through the previous
// root; call GetLogger again after Initialize to pick up the new one.
// Call once at application startup, before logging from other goroutines.
func Initialize(cfg *LogCfg) error {
	if cfg == nil {
		cfg = getDefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_registryMu.Lock()
	defer _registryMu.Unlock()
	_defaultLogger = NewLogger(cfg)
	_named = make(map[string]*CoreLogger)
	_overrides = cfg.LevelOverrides
	return nil
}

// SetDefaultLogger replaces the default logger with a custom instance and
// resets the named-logger registry.
func SetDefaultLogger(logger *CoreLogger) {
	_registryMu.Lock()
	defer _registryMu.Unlock()
	_defaultLogger = logger
	_named = make(map[string]*CoreLogger)
}

// DefaultLogger returns the package-level logger.
func DefaultLogger() Logger {
	return _defaultLogger
}

// GetLogger returns the named logger, creating it on first use. Dotted
// names inherit the nearest configured override: with levelOverrides
// {"net": "debug"}, "net.client" starts at debug while unrelated loggers
// keep the root level. An empty name returns the default logger.
func GetLogger(name string) Logger {
	if name == "" {
		return _defaultLogger
	}
	_registryMu.Lock()
	defer _registryMu.Unlock()
	if l, ok := _named[name]; ok {
		return l
	}
	root := _defaultLogger
	l := newNamedLogger(root, name, namedLevelLocked(name, root))
	_named[name] = l
	return l
}

// namedLevelLocked resolves the starting threshold for a named logger by
// walking the name up one dot at a time. Callers hold _registryMu.
func namedLevelLocked(name string, root *CoreLogger) Level {
	for n := name; n != ""; {
		if lv, ok := _overrides[n]; ok {
			return ParseLevel(lv)
		}
		if i := strings.LastIndexByte(n, '.'); i >= 0 {
			n = n[:i]
		} else {
			n = ""
		}
	}
	return root.GetLevel()
}

// AddAppender adds an appender to the default logger.
func AddAppender(appender LogAppender) {
	_defaultLogger.AddAppender(appender)
}

// Refresh flushes all appenders of the default logger.
func Refresh() error {
	return _defaultLogger.Refresh()
}

// Close flushes and closes the default logger's appenders. Call at
// application shutdown so nothing buffered is lost.
func Close() error {
	return _defaultLogger.Close()
}

// SetLevel changes the default logger's threshold.
func SetLevel(level Level) {
	_defaultLogger.SetLevel(level)
}

// Trace creates a trace-level event on the default logger.
func Trace() *LogEvent {
	return _defaultLogger.Trace()
}

// Debug creates a debug-level event on the default logger.
func Debug() *LogEvent {
	return _defaultLogger.Debug()
}

// Info creates an info-level event on the default logger.
func Info() *LogEvent {
	return _defaultLogger.Info()
}

// Warn creates a warn-level event on the default logger.
func Warn() *LogEvent {
	return _defaultLogger.Warn()
}

// Error creates an error-level event on the default logger.
func Error() *LogEvent {
	return _defaultLogger.Error()
}

// Fatal creates a fatal-level event on the default logger. The terminal
// Msg/End call panics after delivery.
func Fatal() *LogEvent {
	return _defaultLogger.Fatal()
}
