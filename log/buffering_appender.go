package log

import (
	"fmt"
	"sync"

	"github.com/linchenxuan/tyto/metrics"
)

// _defaultBufferSize is how many events a buffering appender holds when the
// configuration does not say otherwise.
const _defaultBufferSize = 512

// BufferSink receives the batches a BufferingAppender decides to deliver.
// Batches arrive ordered oldest to newest and are never empty. A sink must
// not append back into the appender that feeds it.
type BufferSink interface {
	SendBatch(events []*LogEvent) error
}

// BufferSinkFunc adapts a plain function to the BufferSink interface.
type BufferSinkFunc func(events []*LogEvent) error

// SendBatch calls f.
func (f BufferSinkFunc) SendBatch(events []*LogEvent) error { return f(events) }

// BufferingOptions configures a BufferingAppender.
type BufferingOptions struct {
	// BufferSize caps how many events are held before a delivery is forced.
	// Zero means the 512-event default; one or a negative value disables
	// buffering so every event passes straight through.
	BufferSize int

	// Lossy turns the buffer into a sliding window: once it wraps, the
	// overwritten event is kept only if LossyEvaluator considers it worth
	// keeping, and regular deliveries happen only when Evaluator fires.
	Lossy bool

	// Evaluator forces early delivery of the whole buffer when an incoming
	// event triggers it. Nil means no event ever triggers.
	Evaluator TriggeringEventEvaluator

	// LossyEvaluator decides which overwritten or flushed events survive in
	// lossy mode. Nil means none survive.
	LossyEvaluator TriggeringEventEvaluator

	// Fix selects which volatile event fields are snapshotted before an
	// event enters the buffer. Zero means FixAll; use FixDetachOnly to pin
	// the builder storage instead of copying the line.
	Fix FixFlags
}

// BufferingAppender accumulates events in a fixed-size cyclic buffer and
// hands them to its sink in batches: when the buffer wraps, when an event
// triggers the evaluator, or on an explicit flush.
//
// In lossy mode the buffer holds the most recent BufferSize events and older
// ones are dropped unless the lossy evaluator saves them. A lossy appender
// without an evaluator never delivers on its own; that configuration is
// reported at construction and the buffer contents are discarded on Close.
//
// All methods are safe for concurrent use. Batches reach the sink in event
// order; the appender's lock is held across delivery so batches never
// interleave.
type BufferingAppender struct {
	mu             sync.Mutex
	name           string
	sink           BufferSink
	cb             *CyclicBuffer
	lossy          bool
	evaluator      TriggeringEventEvaluator
	lossyEvaluator TriggeringEventEvaluator
	fix            FixFlags
	handler        ErrorHandler
	appendDims     metrics.Dimension
	closed         bool
}

// NewBufferingAppender creates a buffering appender delivering to sink.
// The name tags diagnostics and metrics.
func NewBufferingAppender(name string, sink BufferSink, opts BufferingOptions) (*BufferingAppender, error) {
	if sink == nil {
		return nil, fmt.Errorf("log: buffering appender %q needs a sink", name)
	}
	if name == "" {
		name = "buffered"
	}

	size := opts.BufferSize
	if size == 0 {
		size = _defaultBufferSize
	}
	fix := opts.Fix
	if fix == FixNone {
		fix = FixAll
	}

	a := &BufferingAppender{
		name:           name,
		sink:           sink,
		lossy:          opts.Lossy,
		evaluator:      opts.Evaluator,
		lossyEvaluator: opts.LossyEvaluator,
		fix:            fix,
		handler:        NewOnlyOnceErrorHandler(name),
		appendDims:     metrics.Dimension{metrics.DimAppender: name},
	}

	if size > 1 {
		cb, err := NewCyclicBuffer(size)
		if err != nil {
			return nil, err
		}
		a.cb = cb
	}

	if a.lossy && a.evaluator == nil {
		a.handler.Error("lossy appender has no evaluator, buffered events will never be delivered", nil)
	}

	return a, nil
}

// Name returns the configured appender name.
func (a *BufferingAppender) Name() string {
	return a.name
}

// SetErrorHandler replaces the handler receiving sink failures. It must be
// called before the appender is shared between goroutines.
func (a *BufferingAppender) SetErrorHandler(h ErrorHandler) {
	if h != nil {
		a.handler = h
	}
}

// Length reports how many events are currently buffered.
func (a *BufferingAppender) Length() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cb == nil {
		return 0
	}
	return a.cb.Length()
}

// Append accepts one event. With buffering disabled the event goes straight
// to the sink, except that a lossy appender silently drops non-triggering
// events. With buffering enabled the event is fixed and buffered; overflow
// and evaluator triggers decide when the buffer is delivered.
func (a *BufferingAppender) Append(e *LogEvent) {
	if e == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendLocked(e)
}

// AppendBatch accepts an ordered batch under one lock acquisition. Each
// event runs through the same buffering decisions as a single Append, so a
// batch spanning the buffer capacity delivers mid-batch.
func (a *BufferingAppender) AppendBatch(events []*LogEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range events {
		if e != nil {
			a.appendLocked(e)
		}
	}
}

func (a *BufferingAppender) appendLocked(e *LogEvent) {
	if a.closed {
		a.handler.Error("append after close", ErrAppenderClosed)
		a.drop("closed", 1)
		return
	}

	metrics.IncrCounterWithDimGroup(metrics.NameAppenderAppendTotal, metrics.GroupTyto, 1, a.appendDims)

	if a.cb == nil {
		// Pass-through mode. Only fix what actually leaves.
		if !a.lossy || triggers(a.evaluator, e) || triggers(a.lossyEvaluator, e) {
			e.Fix(a.fix)
			a.deliver([]*LogEvent{e})
			return
		}
		a.drop("lossy", 1)
		return
	}

	e.Fix(a.fix)
	evicted := a.cb.Append(e)

	if evicted != nil {
		if !a.lossy {
			a.sendFromBuffer(evicted)
			return
		}

		// Lossy overflow: the overwritten event survives only if the lossy
		// evaluator vouches for it.
		if !triggers(a.lossyEvaluator, evicted) {
			evicted = nil
			a.drop("lossy", 1)
		}
		if triggers(a.evaluator, e) {
			a.sendFromBuffer(evicted)
		} else if evicted != nil {
			a.deliver([]*LogEvent{evicted})
		}
		return
	}

	if triggers(a.evaluator, e) {
		a.sendFromBuffer(nil)
	}
}

// Flush delivers buffered events to the sink. A non-lossy buffer is always
// delivered in full. A lossy buffer is only touched when flushLossy is set:
// events its evaluator vouches for are delivered, the rest are discarded,
// and without a lossy evaluator the whole buffer is discarded.
func (a *BufferingAppender) Flush(flushLossy bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(flushLossy)
}

// Refresh delivers a non-lossy buffer; a lossy buffer stays put.
func (a *BufferingAppender) Refresh() error {
	return a.Flush(false)
}

// Close flushes per the lossy contract, marks the appender closed and
// reports any further appends. The sink is not closed; it belongs to
// whoever created it.
func (a *BufferingAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	err := a.flushLocked(true)
	a.closed = true
	return err
}

func (a *BufferingAppender) flushLocked(flushLossy bool) error {
	if a.cb == nil || a.cb.Length() == 0 {
		return nil
	}

	if !a.lossy {
		return a.sendFromBuffer(nil)
	}
	if !flushLossy {
		return nil
	}

	if a.lossyEvaluator == nil {
		// Nothing can vouch for the buffered events, so the lossy contract
		// says they are discarded, not delivered.
		a.drop("lossy_flush", a.cb.Length())
		a.cb.Clear()
		return nil
	}

	events := a.cb.PopAll()
	kept := events[:0]
	for _, e := range events {
		if a.lossyEvaluator.IsTriggeringEvent(e) {
			kept = append(kept, e)
		}
	}
	if d := len(events) - len(kept); d > 0 {
		a.drop("lossy_flush", d)
	}
	if len(kept) == 0 {
		return nil
	}
	return a.deliver(kept)
}

// sendFromBuffer drains the buffer and delivers it as one batch with first,
// when non-nil, prepended as the oldest element.
func (a *BufferingAppender) sendFromBuffer(first *LogEvent) error {
	events := a.cb.PopAll()
	if first != nil {
		if len(events) == 0 {
			events = []*LogEvent{first}
		} else {
			events = append([]*LogEvent{first}, events...)
		}
	}
	if len(events) == 0 {
		return nil
	}
	return a.deliver(events)
}

// deliver hands a batch to the sink, isolating the appender from sink
// panics. Failures are reported to the handler and returned.
func (a *BufferingAppender) deliver(events []*LogEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("log: sink panicked: %v", r)
			a.handler.Error("sink panicked", err)
		}
	}()

	metrics.IncrCounterWithDimGroup(metrics.NameAppenderFlushTotal, metrics.GroupTyto, 1, a.appendDims)
	metrics.UpdateAvgGaugeWithDimGroup(metrics.NameAppenderFlushSizeAvg, metrics.GroupTyto,
		metrics.Value(len(events)), a.appendDims)

	if err = a.sink.SendBatch(events); err != nil {
		metrics.IncrCounterWithDimGroup(metrics.NameAppenderWriteErrorTotal, metrics.GroupTyto, 1, a.appendDims)
		a.handler.Error("sink delivery failed", err)
	}
	return err
}

func (a *BufferingAppender) drop(reason string, n int) {
	metrics.IncrCounterWithDimGroup(metrics.NameAppenderDropTotal, metrics.GroupTyto, metrics.Value(n),
		metrics.Dimension{metrics.DimAppender: a.name, metrics.DimReason: reason})
}

// triggers reports whether ev considers e a triggering event. A nil
// evaluator never triggers.
func triggers(ev TriggeringEventEvaluator, e *LogEvent) bool {
	return ev != nil && ev.IsTriggeringEvent(e)
}
