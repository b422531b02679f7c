package log

// CyclicBuffer is a fixed-capacity ring of events. When full, Append
// overwrites the oldest entry and hands it back so the owner can decide its
// fate. Capacity is fixed at construction.
//
// The buffer is not synchronized. The owning appender serializes access
// under its own mutex; a second layer of locking here would only hide
// protocol mistakes.
type CyclicBuffer struct {
	events   []*LogEvent
	first    int // index of the oldest event
	last     int // index one past the newest event
	count    int
	capacity int
}

// NewCyclicBuffer creates a buffer holding at most capacity events.
// Capacity below one is a configuration error.
func NewCyclicBuffer(capacity int) (*CyclicBuffer, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &CyclicBuffer{
		events:   make([]*LogEvent, capacity),
		capacity: capacity,
	}, nil
}

// Append adds e to the buffer. When the buffer is full the oldest event is
// overwritten and returned; otherwise the return value is nil. The count
// never exceeds capacity.
func (cb *CyclicBuffer) Append(e *LogEvent) *LogEvent {
	var evicted *LogEvent

	if cb.count == cb.capacity {
		evicted = cb.events[cb.first]
		cb.first = (cb.first + 1) % cb.capacity
		cb.count--
	}

	cb.events[cb.last] = e
	cb.last = (cb.last + 1) % cb.capacity
	cb.count++

	return evicted
}

// PopOldest removes and returns the oldest event, or nil when empty.
func (cb *CyclicBuffer) PopOldest() *LogEvent {
	if cb.count == 0 {
		return nil
	}
	e := cb.events[cb.first]
	cb.events[cb.first] = nil
	cb.first = (cb.first + 1) % cb.capacity
	cb.count--
	return e
}

// PopAll removes every buffered event in one step and returns them ordered
// oldest to newest. The buffer is empty afterwards. Drain and reset happen
// together so a flush observes a consistent snapshot.
func (cb *CyclicBuffer) PopAll() []*LogEvent {
	if cb.count == 0 {
		return nil
	}

	out := make([]*LogEvent, cb.count)
	for i := 0; i < cb.count; i++ {
		idx := (cb.first + i) % cb.capacity
		out[i] = cb.events[idx]
		cb.events[idx] = nil
	}

	cb.first = 0
	cb.last = 0
	cb.count = 0

	return out
}

// Clear discards all buffered events without delivering them.
func (cb *CyclicBuffer) Clear() {
	for i := range cb.events {
		cb.events[i] = nil
	}
	cb.first = 0
	cb.last = 0
	cb.count = 0
}

// Length reports how many events are currently buffered.
func (cb *CyclicBuffer) Length() int {
	return cb.count
}

// MaxSize reports the fixed capacity.
func (cb *CyclicBuffer) MaxSize() int {
	return cb.capacity
}
