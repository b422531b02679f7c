package log

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linchenxuan/tyto/metrics"
)

const (
	_defaultAsyncQueueSize = 4096

	// How long Close waits for the worker to drain the queue before
	// abandoning it.
	_asyncCloseTimeout = 5 * time.Second
)

// AsyncCfg configures an AsyncAppender.
type AsyncCfg struct {
	// Name identifies the appender in diagnostics and metrics. Defaults to
	// "async".
	Name string `mapstructure:"name"`

	// QueueSize bounds the event queue. A full queue drops new events
	// rather than blocking the logging call. Defaults to 4096.
	QueueSize int `mapstructure:"queueSize"`

	// Fix names the volatile-field snapshot taken before an event crosses
	// into the worker goroutine. Empty means all.
	Fix string `mapstructure:"fix"`
}

// Validate checks the configuration and fills defaults in place.
func (cfg *AsyncCfg) Validate() error {
	if cfg.Name == "" {
		cfg.Name = "async"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = _defaultAsyncQueueSize
	}
	if _, err := ParseFixFlags(cfg.Fix); err != nil {
		return err
	}
	return nil
}

// asyncItem is one queue entry: an event, a flush barrier carrying its ack
// channel, or the shutdown marker.
type asyncItem struct {
	event  *LogEvent
	flush  chan error
	poison bool
}

// AsyncAppender decouples the logging call from a slow target: Append fixes
// the event and enqueues it, a single worker goroutine delivers in order.
// When the queue is full events are dropped and counted, so a wedged target
// degrades throughput but never blocks the caller.
//
// Refresh enqueues a barrier and waits for it, so everything accepted
// before the call reaches the target before Refresh returns. Close drains
// the queue, bounded by a timeout, then closes the target; the appender
// owns its target, unlike ForwardingAppender which leaves children open.
type AsyncAppender struct {
	name    string
	target  LogAppender
	queue   chan asyncItem
	fix     FixFlags
	handler ErrorHandler

	closeOnce sync.Once
	closed    chan struct{} // sealed by Close before the poison is queued
	done      chan struct{} // closed when the worker exits
}

// NewAsyncAppender wraps target behind a queue. A nil cfg selects defaults.
func NewAsyncAppender(cfg *AsyncCfg, target LogAppender) (*AsyncAppender, error) {
	if target == nil {
		return nil, errors.New("log: async appender requires a target")
	}
	if cfg == nil {
		cfg = &AsyncCfg{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fix, err := ParseFixFlags(cfg.Fix)
	if err != nil {
		return nil, err
	}

	a := &AsyncAppender{
		name:    cfg.Name,
		target:  target,
		queue:   make(chan asyncItem, cfg.QueueSize),
		fix:     fix,
		handler: NewOnlyOnceErrorHandler(cfg.Name),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a, nil
}

// Name reports the configured appender name.
func (a *AsyncAppender) Name() string { return a.name }

// SetErrorHandler replaces the failure destination.
func (a *AsyncAppender) SetErrorHandler(h ErrorHandler) {
	a.handler = h
}

// Append fixes the event and enqueues it. A full queue or a closed
// appender drops the event; the logging call never blocks here.
func (a *AsyncAppender) Append(e *LogEvent) {
	if e == nil {
		return
	}
	if a.isClosed() {
		a.handler.Error("append after close", ErrAppenderClosed)
		a.drop("closed", 1)
		return
	}
	e.Fix(a.fix)
	select {
	case a.queue <- asyncItem{event: e}:
		a.gauge()
	default:
		a.drop("queue_full", 1)
	}
}

// AppendBatch enqueues events in order, subject to the same drop policy.
func (a *AsyncAppender) AppendBatch(events []*LogEvent) {
	for _, e := range events {
		a.Append(e)
	}
}

// Refresh waits until everything accepted before the call has reached the
// target, then flushes the target itself.
func (a *AsyncAppender) Refresh() error {
	if a.isClosed() {
		return ErrAppenderClosed
	}
	ack := make(chan error, 1)
	select {
	case a.queue <- asyncItem{flush: ack}:
	case <-a.done:
		return ErrAppenderClosed
	}
	select {
	case err := <-ack:
		return err
	case <-a.done:
		return ErrAppenderClosed
	}
}

// Close drains the queue, stops the worker and closes the target. A worker
// that cannot drain within the timeout is abandoned with an error; later
// Close calls wait for the worker but never run the shutdown again.
func (a *AsyncAppender) Close() error {
	var err error
	ran := false
	a.closeOnce.Do(func() {
		ran = true
		close(a.closed)
		err = a.shutdown()
	})
	if !ran {
		select {
		case <-a.done:
		case <-time.After(_asyncCloseTimeout):
		}
	}
	return err
}

// shutdown queues the poison, waits out the drain and closes the target.
// One deadline covers both phases.
func (a *AsyncAppender) shutdown() error {
	timeout := time.After(_asyncCloseTimeout)
	select {
	case a.queue <- asyncItem{poison: true}:
	case <-timeout:
		err := fmt.Errorf("log: async appender %s: close timed out with the queue full", a.name)
		a.handler.Error("close timed out", err)
		return err
	}
	select {
	case <-a.done:
	case <-timeout:
		err := fmt.Errorf("log: async appender %s: close timed out draining", a.name)
		a.handler.Error("close timed out", err)
		return err
	}
	return a.target.Close()
}

func (a *AsyncAppender) isClosed() bool {
	select {
	case <-a.closed:
		return true
	default:
		return false
	}
}

// run is the worker loop. Items are handled strictly in order; the poison
// item is always last because Append rejects events once closed is sealed.
func (a *AsyncAppender) run() {
	defer close(a.done)
	for item := range a.queue {
		switch {
		case item.poison:
			return
		case item.flush != nil:
			item.flush <- a.target.Refresh()
		default:
			a.deliver(item.event)
			a.gauge()
		}
	}
}

// deliver hands one event to the target, isolating the worker from target
// panics so one bad sink does not kill the queue.
func (a *AsyncAppender) deliver(e *LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			a.handler.Error("target panicked", fmt.Errorf("log: target panicked: %v", r))
		}
	}()
	a.target.Append(e)
}

func (a *AsyncAppender) gauge() {
	metrics.UpdateGaugeWithDimGroup(metrics.NameAsyncQueueLenGauge, metrics.GroupTyto,
		metrics.Value(len(a.queue)), metrics.Dimension{metrics.DimAppender: a.name})
}

func (a *AsyncAppender) drop(reason string, n int) {
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderDropTotal, metrics.GroupTyto, metrics.Value(n),
		metrics.Dimension{metrics.DimAppender: a.name, metrics.DimReason: reason})
}
