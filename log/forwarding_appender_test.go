package log

import (
	"sync"
	"testing"
)

// recordingAppender tracks per-event and bulk deliveries separately so tests
// can tell which path the forwarder took.
type recordingAppender struct {
	mu      sync.Mutex
	single  []*LogEvent
	batches [][]*LogEvent
}

func (r *recordingAppender) Append(e *LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.single = append(r.single, e)
}

func (r *recordingAppender) AppendBatch(events []*LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]*LogEvent(nil), events...))
}

func (r *recordingAppender) Refresh() error { return nil }
func (r *recordingAppender) Close() error   { return nil }

func TestForwardingAppenderFansOutToAllChildren(t *testing.T) {
	c1 := &recordingAppender{}
	c2 := &recordingAppender{}
	f, err := NewForwardingAppender("fan", c1, c2)
	if err != nil {
		t.Fatal(err)
	}

	e := rawEvent(InfoLevel, "hello")
	f.Append(e)

	for i, c := range []*recordingAppender{c1, c2} {
		if len(c.batches) != 1 || len(c.batches[0]) != 1 || c.batches[0][0] != e {
			t.Errorf("child %d did not receive the event batch", i)
		}
	}
}

func TestForwardingAppenderBuffersIntoBatches(t *testing.T) {
	child := &recordingAppender{}
	f, err := NewBufferingForwardingAppender("fan", BufferingOptions{BufferSize: 3}, child)
	if err != nil {
		t.Fatal(err)
	}

	e1 := rawEvent(InfoLevel, "1")
	e2 := rawEvent(InfoLevel, "2")
	e3 := rawEvent(InfoLevel, "3")
	e4 := rawEvent(InfoLevel, "4")
	f.Append(e1)
	f.Append(e2)
	f.Append(e3)
	if len(child.batches) != 0 {
		t.Fatal("children should see nothing until the buffer wraps")
	}

	f.Append(e4)
	if len(child.batches) != 1 {
		t.Fatalf("expected one batch after overflow, got %d", len(child.batches))
	}
	assertBatch(t, child.batches[0], e1, e2, e3, e4)
}

func TestForwardingAppenderUsesBulkPathWhenAvailable(t *testing.T) {
	bulk := &recordingAppender{}
	plain := LogAppender(&onlySingleAppender{})
	f, err := NewForwardingAppender("fan", bulk, plain)
	if err != nil {
		t.Fatal(err)
	}

	e := rawEvent(InfoLevel, "x")
	f.Append(e)

	if len(bulk.batches) != 1 {
		t.Error("bulk-capable child should receive AppendBatch")
	}
	if got := plain.(*onlySingleAppender).count; got != 1 {
		t.Errorf("plain child should receive per-event Append, got %d", got)
	}
}

// onlySingleAppender implements just LogAppender.
type onlySingleAppender struct {
	count int
}

func (o *onlySingleAppender) Append(e *LogEvent) { o.count++ }
func (o *onlySingleAppender) Refresh() error     { return nil }
func (o *onlySingleAppender) Close() error       { return nil }

func TestForwardingAppenderAttachDetach(t *testing.T) {
	c1 := &recordingAppender{}
	f, err := NewForwardingAppender("fan")
	if err != nil {
		t.Fatal(err)
	}

	f.AddAppender(c1)
	f.Append(rawEvent(InfoLevel, "a"))
	if len(c1.batches) != 1 {
		t.Fatal("attached child should receive events")
	}

	if !f.RemoveAppender(c1) {
		t.Fatal("expected RemoveAppender to find the child")
	}
	f.Append(rawEvent(InfoLevel, "b"))
	if len(c1.batches) != 1 {
		t.Error("detached child must not receive further events")
	}
	if f.RemoveAppender(c1) {
		t.Error("removing twice should report false")
	}
}

func TestForwardingAppenderCloseFlushesButLeavesChildrenOpen(t *testing.T) {
	child := &closeTrackingAppender{}
	f, err := NewBufferingForwardingAppender("fan", BufferingOptions{BufferSize: 8}, child)
	if err != nil {
		t.Fatal(err)
	}

	e := rawEvent(InfoLevel, "pending")
	f.Append(e)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if len(child.batches) != 1 {
		t.Fatal("close should flush buffered events to children first")
	}
	if child.closed {
		t.Error("close must not close attached children")
	}
}

type closeTrackingAppender struct {
	recordingAppender
	closed bool
}

func (c *closeTrackingAppender) Close() error {
	c.closed = true
	return nil
}
