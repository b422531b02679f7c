package log

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/linchenxuan/tyto/utils/pool"
)

// Stack frames between the public level methods and runtime.Caller: the
// caller of Info() sits three frames above resolve.
const _internalFrames = 3

// CoreLogger is the standard Logger implementation: a leveled front-end
// fanned out to a set of appenders. The logging fast path is lock free.
// The level check is one atomic load, events come from an instrumented
// pool, and call sites resolve through a bounded cache.
//
// Named loggers obtained through GetLogger share the root's appenders,
// caller cache and event pool; they differ only in name and threshold, so
// a per-subsystem override costs nothing on the shared path.
//
// Appenders are attached during startup. AddAppender is not synchronized
// against in-flight logging.
type CoreLogger struct {
	name              string
	parent            *CoreLogger // set on named loggers; nil for the root
	appenders         []LogAppender
	minLevel          atomic.Uint32
	resolver          *callerResolver
	levels            *levelChange
	eventPool         *pool.Pool
	enabledCallerInfo bool
}

// NewLogger creates a root logger from cfg. A nil cfg selects the default
// configuration. The configuration is expected to be validated; Initialize
// does so before calling here.
func NewLogger(cfg *LogCfg) *CoreLogger {
	if cfg == nil {
		cfg = getDefaultCfg()
	}

	x := &CoreLogger{
		resolver:          newCallerResolver(cfg.CallerSkip),
		levels:            newLevelChange(cfg.LevelChange),
		enabledCallerInfo: cfg.EnabledCallerInfo,
	}
	x.minLevel.Store(uint32(ParseLevel(cfg.Level)))
	x.eventPool = pool.NewPool("log.event", func() any {
		return newEvent(x)
	})
	return x
}

// newNamedLogger creates a child that shares everything with root except
// its name and threshold.
func newNamedLogger(root *CoreLogger, name string, level Level) *CoreLogger {
	child := &CoreLogger{
		name:              name,
		parent:            root,
		resolver:          root.resolver,
		levels:            root.levels,
		enabledCallerInfo: root.enabledCallerInfo,
	}
	child.minLevel.Store(uint32(level))
	return child
}

func getDefaultCfg() *LogCfg {
	return &LogCfg{Level: InfoLevel.String()}
}

// root returns the logger owning the appenders and the event pool.
func (x *CoreLogger) root() *CoreLogger {
	if x.parent != nil {
		return x.parent
	}
	return x
}

// Name reports the logger name, empty for the root.
func (x *CoreLogger) Name() string { return x.name }

// SetLevel changes the minimum emitted severity. Safe to call while other
// goroutines are logging; in-flight events keep the old threshold.
func (x *CoreLogger) SetLevel(level Level) {
	x.minLevel.Store(uint32(level))
}

// GetLevel reports the current threshold.
func (x *CoreLogger) GetLevel() Level {
	return Level(x.minLevel.Load())
}

func (x *CoreLogger) checkLevel(level Level) bool {
	return Level(x.minLevel.Load()) <= level
}

// IgnoreCheckLevel reports whether level filtering is bypassed. Always
// false here; the interface hook exists for wrappers that pre-filter.
func (x *CoreLogger) IgnoreCheckLevel() bool {
	return false
}

// AddAppender registers a delivery destination. On a named logger the
// appender lands on the root; all loggers of a process share one fan-out.
func (x *CoreLogger) AddAppender(appender LogAppender) {
	r := x.root()
	r.appenders = append(r.appenders, appender)
}

// GetAppender returns the shared appender list.
func (x *CoreLogger) GetAppender() []LogAppender {
	return x.root().appenders
}

// Refresh flushes every appender, joining their errors.
func (x *CoreLogger) Refresh() error {
	var errs []error
	for _, appender := range x.root().appenders {
		if err := appender.Refresh(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every appender, joining their errors. The logger must not
// be used afterwards.
func (x *CoreLogger) Close() error {
	var errs []error
	for _, appender := range x.root().appenders {
		if err := appender.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newEvent takes a clean event from the pool.
func (x *CoreLogger) newEvent() *LogEvent {
	e := x.eventPool.Get().(*LogEvent)
	e.Reset()
	return e
}

// OnEventEnd delivers a finished event to every appender, then recycles it
// unless an appender fixed it for retention. A fatal event panics after
// delivery.
func (x *CoreLogger) OnEventEnd(e *LogEvent) {
	if e == nil {
		return
	}
	r := x.root()
	for _, appender := range r.appenders {
		appender.Append(e)
	}

	level := e.Level()
	if !e.Detached() {
		r.eventPool.Put(e)
	}
	if level == FatalLevel {
		panic("log: fatal event")
	}
}

// Trace creates a trace-level event, nil when the level is filtered.
func (x *CoreLogger) Trace() *LogEvent { return x.log(TraceLevel) }

// Debug creates a debug-level event, nil when the level is filtered.
func (x *CoreLogger) Debug() *LogEvent { return x.log(DebugLevel) }

// Info creates an info-level event, nil when the level is filtered.
func (x *CoreLogger) Info() *LogEvent { return x.log(InfoLevel) }

// Warn creates a warn-level event, nil when the level is filtered.
func (x *CoreLogger) Warn() *LogEvent { return x.log(WarnLevel) }

// Error creates an error-level event, nil when the level is filtered.
func (x *CoreLogger) Error() *LogEvent { return x.log(ErrorLevel) }

// Fatal creates a fatal-level event. The terminal Msg/End call panics after
// delivery.
func (x *CoreLogger) Fatal() *LogEvent { return x.log(FatalLevel) }

// log builds an event carrying the common fields. Filtered levels return
// nil, which every LogEvent method tolerates, so a suppressed call site
// costs one atomic load and nothing else.
func (x *CoreLogger) log(level Level) *LogEvent {
	var info *callerInfo
	if !x.IgnoreCheckLevel() && !x.checkLevel(level) {
		if x.levels.Empty() {
			return nil
		}
		// A per-site override may raise this call above the threshold.
		info = x.resolver.resolve(_internalFrames)
		level = x.levels.GetLevel(info.file, info.line, level)
		if !x.checkLevel(level) {
			return nil
		}
	}

	e := x.root().newEvent()
	e.level = level

	t := time.Now()
	e.time = t
	e.Time("time", &t)
	e.Str("level", level.String())
	if x.name != "" {
		e.Str("logger", x.name)
	}
	if x.enabledCallerInfo {
		if info == nil {
			info = x.resolver.resolve(_internalFrames)
		}
		e.Caller(info.file, info.function, info.line)
	}
	return e
}
