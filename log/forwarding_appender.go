package log

import (
	"sync"
)

// ForwardingAppender fans events out to a set of child appenders, optionally
// through a cyclic buffer so children receive batches instead of single
// events. Children are attached, not owned: Close flushes and detaches them
// but never closes them, so a child can safely be shared with other chains.
type ForwardingAppender struct {
	name     string
	buf      *BufferingAppender
	mu       sync.RWMutex
	children []LogAppender
}

// NewForwardingAppender creates a pass-through fan-out: every event is
// forwarded to all children immediately.
func NewForwardingAppender(name string, children ...LogAppender) (*ForwardingAppender, error) {
	return NewBufferingForwardingAppender(name, BufferingOptions{BufferSize: 1}, children...)
}

// NewBufferingForwardingAppender creates a fan-out behind a buffer. Buffer
// sizing, lossiness and evaluators follow BufferingOptions.
func NewBufferingForwardingAppender(name string, opts BufferingOptions, children ...LogAppender) (*ForwardingAppender, error) {
	if name == "" {
		name = "forwarding"
	}
	f := &ForwardingAppender{
		name:     name,
		children: append([]LogAppender(nil), children...),
	}
	buf, err := NewBufferingAppender(name, BufferSinkFunc(f.fanOut), opts)
	if err != nil {
		return nil, err
	}
	f.buf = buf
	return f, nil
}

// Name returns the configured appender name.
func (f *ForwardingAppender) Name() string {
	return f.name
}

// AddAppender attaches a child. Nil children are ignored.
func (f *ForwardingAppender) AddAppender(a LogAppender) {
	if a == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children = append(f.children, a)
}

// RemoveAppender detaches a child by identity and reports whether it was
// attached.
func (f *ForwardingAppender) RemoveAppender(a LogAppender) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.children {
		if c == a {
			f.children = append(f.children[:i], f.children[i+1:]...)
			return true
		}
	}
	return false
}

// Append buffers or forwards one event per the buffering options.
func (f *ForwardingAppender) Append(e *LogEvent) {
	f.buf.Append(e)
}

// AppendBatch feeds an already-batched run of events through the buffer.
func (f *ForwardingAppender) AppendBatch(events []*LogEvent) {
	f.buf.AppendBatch(events)
}

// Refresh flushes the non-lossy buffer and then refreshes every child so
// pending output reaches the final sinks.
func (f *ForwardingAppender) Refresh() error {
	err := f.buf.Refresh()

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.children {
		if cerr := c.Refresh(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Close flushes per the lossy contract and detaches all children. The
// children themselves stay open.
func (f *ForwardingAppender) Close() error {
	err := f.buf.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.children = nil
	return err
}

// SetErrorHandler replaces the handler receiving delivery failures.
func (f *ForwardingAppender) SetErrorHandler(h ErrorHandler) {
	f.buf.SetErrorHandler(h)
}

// fanOut is the buffer's sink: one ordered batch to every child, using the
// bulk path when a child supports it.
func (f *ForwardingAppender) fanOut(events []*LogEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.children {
		appendAll(c, events)
	}
	return nil
}
