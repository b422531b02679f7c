package log

import (
	"time"

	"golang.org/x/time/rate"
)

// TriggeringEventEvaluator decides whether an event is important enough to
// force a buffering appender to deliver early. A nil evaluator on an appender
// means "never triggers".
type TriggeringEventEvaluator interface {
	IsTriggeringEvent(e *LogEvent) bool
}

// LevelEvaluator triggers on events at or above a severity threshold.
type LevelEvaluator struct {
	Threshold Level
}

// NewLevelEvaluator creates a LevelEvaluator. A zero threshold falls back to
// ErrorLevel, the conventional "flush on errors" policy.
func NewLevelEvaluator(threshold Level) *LevelEvaluator {
	if threshold == 0 {
		threshold = ErrorLevel
	}
	return &LevelEvaluator{Threshold: threshold}
}

// IsTriggeringEvent reports whether e is at or above the threshold.
func (ev *LevelEvaluator) IsTriggeringEvent(e *LogEvent) bool {
	return e != nil && e.level >= ev.Threshold
}

// IntervalEvaluator triggers at most once per interval, regardless of event
// contents. Paired with a buffering appender it turns the buffer into a
// periodic batch: quiet periods accumulate, the next event after the interval
// flushes.
//
// The token gate comes from x/time/rate with a burst of one; the initial
// token is consumed at construction so the first interval must actually
// elapse before the first trigger.
type IntervalEvaluator struct {
	limiter *rate.Limiter
}

// NewIntervalEvaluator creates an evaluator with the given minimum spacing
// between triggers. A non-positive interval triggers on every event.
func NewIntervalEvaluator(interval time.Duration) *IntervalEvaluator {
	if interval <= 0 {
		return &IntervalEvaluator{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return &IntervalEvaluator{limiter: l}
}

// IsTriggeringEvent reports whether the interval has elapsed since the last
// trigger. Each true return restarts the interval.
func (ev *IntervalEvaluator) IsTriggeringEvent(e *LogEvent) bool {
	if e == nil {
		return false
	}
	return ev.limiter.Allow()
}
