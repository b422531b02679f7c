package log

// LogAppender is the destination contract of the framework. Appenders receive
// finished events from a logger (or from a parent appender) and deliver them
// to a sink: a file, the console, a downstream appender chain.
//
// Append must never panic because the sink failed; appenders report sink
// trouble through their ErrorHandler and drop or retry per their own policy.
// Implementations serialize their own internals; callers may invoke Append
// from multiple goroutines.
type LogAppender interface {
	// Append delivers a single event. The event is only valid for the
	// duration of the call unless the appender fixes it.
	Append(e *LogEvent)

	// Refresh forces buffered state out to the sink. For buffering
	// appenders this is the explicit flush; lossy-held events stay put.
	// It should block until pending output reaches the underlying sink.
	Refresh() error

	// Close flushes everything flushable, releases resources and marks the
	// appender unusable. Further appends are reported and discarded.
	Close() error
}

// BulkAppender is implemented by appenders that can accept an ordered batch
// in one call. Batch senders probe for it and fall back to per-event Append
// when the target does not implement it.
type BulkAppender interface {
	LogAppender

	// AppendBatch delivers events in order. The batch is never empty.
	AppendBatch(events []*LogEvent)
}

// NamedAppender is implemented by appenders that carry an instance name for
// diagnostics and metrics. Names come from configuration.
type NamedAppender interface {
	Name() string
}

// appendAll delivers a batch to an appender, using the bulk path when the
// target supports it.
func appendAll(a LogAppender, events []*LogEvent) {
	if ba, ok := a.(BulkAppender); ok {
		ba.AppendBatch(events)
		return
	}
	for _, e := range events {
		a.Append(e)
	}
}
