package log

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// FixFlags selects which volatile parts of a LogEvent are snapshotted by Fix.
// Appenders that keep events past the logging call (buffered, async) must fix
// them first; an unfixed event is backed by pooled storage that is recycled
// as soon as the call returns.
type FixFlags uint8

const (
	// FixNone captures nothing.
	FixNone FixFlags = 0

	// FixTimestamp stamps the event time if it has not been set yet.
	FixTimestamp FixFlags = 1 << iota

	// FixCaller preserves the resolved call-site string. The call stack is
	// gone by the time an appender runs, so this keeps what the logger
	// already captured rather than resolving anything new.
	FixCaller

	// FixMessage copies the rendered line out of the pooled builder buffer
	// into storage owned by the event.
	FixMessage

	// FixDetachOnly snapshots nothing but still detaches the event from the
	// builder pool. The rendered line stays pinned in the builder buffer for
	// the life of the event. Cheaper than FixMessage when retention is short
	// and memory is plentiful.
	FixDetachOnly

	// FixAll captures every volatile field. This is the default for
	// buffering appenders.
	FixAll = FixTimestamp | FixCaller | FixMessage
)

// LogEvent is a single structured log entry. It is both the fluent builder
// used at the call site (Str/Int/.../Msg) and the record handed to appenders.
//
// Events come from a per-logger pool. After the terminal Msg/End call the
// logger returns the event to the pool unless some appender fixed it, so an
// appender must call Fix before retaining a reference.
type LogEvent struct {
	buf    *bytes.Buffer // builder storage, pooled; nil once the line is fixed
	logger Logger
	level  Level
	time   time.Time
	caller string
	line   []byte // owned copy of the rendered line, set by FixMessage
	fixed  FixFlags
}

// newEvent creates a fresh pooled builder bound to l.
func newEvent(l Logger) *LogEvent {
	e := &LogEvent{
		logger: l,
		level:  DebugLevel,
	}

	if e.buf == nil {
		e.buf = &bytes.Buffer{}
	}

	// Pre-grow so typical lines render without reallocating.
	if e.buf.Cap() == 0 {
		e.buf.Grow(1024)
	}
	return e
}

// NewEvent builds a standalone, fully fixed event that is not owned by any
// pool. It is intended for tests and for code that feeds appenders directly
// without going through a logger front-end.
func NewEvent(level Level, msg string) *LogEvent {
	e := newEvent(nil)
	e.Reset()
	e.level = level
	e.time = time.Now()
	e.Str("level", level.String())
	e.Str("msg", msg)
	AppendEndMarker(e.buf)
	AppendLineBreak(e.buf)
	e.Fix(FixAll)
	return e
}

// Reset prepares a pooled event for reuse: the buffer is cleared, oversized
// buffers are dropped so one huge entry does not pin memory forever, and the
// begin marker is written so field methods can append immediately.
func (e *LogEvent) Reset() {
	if e.buf == nil {
		e.buf = &bytes.Buffer{}
		e.buf.Grow(1024)
	}
	e.buf.Reset()
	if e.buf.Cap() > 4096 {
		e.buf = &bytes.Buffer{}
		e.buf.Grow(1024)
	}
	e.level = DebugLevel
	e.time = time.Time{}
	e.caller = ""
	e.line = nil
	e.fixed = FixNone

	AppendBeginMarker(e.buf)
}

// Level reports the severity the event was created with.
func (e *LogEvent) Level() Level {
	return e.level
}

// Timestamp reports the event creation time. Zero until the logger stamps it
// or FixTimestamp runs.
func (e *LogEvent) Timestamp() time.Time {
	return e.time
}

// CallerInfo reports the resolved call site, empty when caller capture was
// disabled on the logger.
func (e *LogEvent) CallerInfo() string {
	return e.caller
}

// Fixed reports which volatile fields have been snapshotted.
func (e *LogEvent) Fixed() FixFlags {
	return e.fixed
}

// Detached reports whether some appender fixed the event. A detached event
// is never returned to the builder pool.
func (e *LogEvent) Detached() bool {
	return e.fixed != FixNone
}

// Bytes returns the rendered line, terminated by a newline. The slice aliases
// pooled storage unless FixMessage has run; callers keeping it past the
// logging call must fix the event first.
func (e *LogEvent) Bytes() []byte {
	if e.line != nil {
		return e.line
	}
	if e.buf == nil {
		return nil
	}
	return e.buf.Bytes()
}

// Fix snapshots the requested volatile fields so the event stays valid after
// the logging call returns. Fixing detaches the event from the builder pool;
// FixMessage additionally copies the rendered line into owned storage and
// seals the event against further field appends. Fix is idempotent.
func (e *LogEvent) Fix(flags FixFlags) {
	if e == nil || flags == FixNone {
		return
	}
	if flags&FixTimestamp != 0 && e.time.IsZero() {
		e.time = time.Now()
	}
	if flags&FixMessage != 0 && e.line == nil && e.buf != nil {
		e.line = append([]byte(nil), e.buf.Bytes()...)
		e.buf = nil
	}
	e.fixed |= flags
}

// Time appends a time value formatted as 'YYYY-MM-DD HH:MM:SS.mmm'. The
// fixed-width digits are written into a stack array in one pass so the hot
// path stays allocation free.
func (e *LogEvent) Time(k string, v *time.Time) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}

	AppendKey(e.buf, k)

	y := v.Year()
	mo := int(v.Month())
	d := v.Day()
	h := v.Hour()
	m := v.Minute()
	s := v.Second()
	ms := v.Nanosecond() / 1000000

	const timeLen = 23
	var timeBuf [timeLen]byte

	timeBuf[0] = byte('0' + y/1000)
	timeBuf[1] = byte('0' + (y/100)%10)
	timeBuf[2] = byte('0' + (y/10)%10)
	timeBuf[3] = byte('0' + y%10)
	timeBuf[4] = '-'
	timeBuf[5] = byte('0' + mo/10)
	timeBuf[6] = byte('0' + mo%10)
	timeBuf[7] = '-'
	timeBuf[8] = byte('0' + d/10)
	timeBuf[9] = byte('0' + d%10)
	timeBuf[10] = ' '
	timeBuf[11] = byte('0' + h/10)
	timeBuf[12] = byte('0' + h%10)
	timeBuf[13] = ':'
	timeBuf[14] = byte('0' + m/10)
	timeBuf[15] = byte('0' + m%10)
	timeBuf[16] = ':'
	timeBuf[17] = byte('0' + s/10)
	timeBuf[18] = byte('0' + s%10)
	timeBuf[19] = '.'
	timeBuf[20] = byte('0' + ms/100)
	timeBuf[21] = byte('0' + (ms/10)%10)
	timeBuf[22] = byte('0' + ms%10)

	e.buf.WriteByte('"')
	e.buf.Write(timeBuf[:])
	e.buf.WriteByte('"')

	return e
}

// Str appends a string field.
func (e *LogEvent) Str(k string, s string) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendString(e.buf, s)
	return e
}

// Strs appends a string array field.
func (e *LogEvent) Strs(k string, v []string) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendStrings(e.buf, v)
	return e
}

// Int appends an integer field.
func (e *LogEvent) Int(k string, v int) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendInt(e.buf, v)
	return e
}

// Ints appends an integer array field.
func (e *LogEvent) Ints(k string, v []int) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendInts(e.buf, v)
	return e
}

// Int64 appends an int64 field.
func (e *LogEvent) Int64(k string, v int64) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendInt64(e.buf, v)
	return e
}

// Uint64 appends a uint64 field.
func (e *LogEvent) Uint64(k string, v uint64) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendUint64(e.buf, v)
	return e
}

// Float64 appends a float64 field.
func (e *LogEvent) Float64(k string, v float64) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendFloat64(e.buf, v)
	return e
}

// Bool appends a bool field.
func (e *LogEvent) Bool(k string, v bool) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendBool(e.buf, v)
	return e
}

// Dur appends a duration field rendered with time.Duration formatting.
func (e *LogEvent) Dur(k string, v time.Duration) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, k)
	AppendString(e.buf, v.String())
	return e
}

// Err appends an error field under the key "error". A nil error renders as
// null rather than being skipped, so its absence is visible in the output.
func (e *LogEvent) Err(v error) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}
	AppendKey(e.buf, "error")
	if v != nil {
		AppendString(e.buf, v.Error())
	} else {
		AppendNil(e.buf)
	}
	return e
}

// Caller appends a call-site field and records it on the event for appenders
// that inspect call sites after delivery.
func (e *LogEvent) Caller(file string, function string, line int) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}

	e.caller = file + "." + function + ":" + strconv.Itoa(line)
	AppendKey(e.buf, "caller")
	AppendString(e.buf, e.caller)

	return e
}

// LogObjectMarshaler lets custom types control their own rendering. Types
// implementing it can be passed to Obj and write fields directly.
type LogObjectMarshaler interface {
	MarshalLogObj(e *LogEvent)
}

// Obj appends a custom object using its own marshaling logic.
func (e *LogEvent) Obj(k string, v LogObjectMarshaler) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}

	AppendKey(e.buf, k)
	if v == nil {
		AppendNil(e.buf)
	} else {
		v.MarshalLogObj(e)
	}
	return e
}

// Any appends an arbitrary value via encoding/json. Marshal failures render
// the error text in place of the value so the entry still emits.
func (e *LogEvent) Any(k string, v any) *LogEvent {
	if e == nil || e.buf == nil {
		return e
	}

	AppendKey(e.buf, k)

	b, err := json.Marshal(v)
	if err != nil {
		AppendString(e.buf, err.Error())
	} else {
		e.buf.Write(b)
	}

	return e
}

// Msg adds the final message field and completes the entry. This is the
// terminal call of the fluent chain.
func (e *LogEvent) Msg(v string) {
	if e == nil {
		return
	}
	e.Str("msg", v)
	e.End()
}

// End finalizes the entry and hands it to the owning logger for delivery.
// Msg calls it automatically; use it directly when the message field is not
// wanted.
func (e *LogEvent) End() {
	if e == nil {
		return
	}

	if e.buf != nil {
		AppendEndMarker(e.buf)
		AppendLineBreak(e.buf)
	}

	if e.logger != nil {
		e.logger.OnEventEnd(e)
	}
}
