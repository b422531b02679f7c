package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleCfg configures a ConsoleAppender instance.
type ConsoleCfg struct {
	// Stderr routes output to standard error instead of standard out.
	Stderr bool `mapstructure:"stderr"`
}

// ConsoleAppender writes events straight to a writer, stdout unless told
// otherwise. Writes are unbuffered so output shows up immediately, which is
// what development and containerized deployments want from a console sink.
type ConsoleAppender struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleAppender creates a console appender writing to stdout.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{out: os.Stdout}
}

// NewConsoleAppenderTo creates a console appender writing to w. Used by
// tests and by callers redirecting console output.
func NewConsoleAppenderTo(w io.Writer) *ConsoleAppender {
	return &ConsoleAppender{out: w}
}

// Append writes the rendered event line. Write errors on a console are not
// recoverable and are silently dropped.
func (ca *ConsoleAppender) Append(e *LogEvent) {
	if e == nil {
		return
	}
	ca.mu.Lock()
	defer ca.mu.Unlock()
	ca.out.Write(e.Bytes())
}

// Refresh is a no-op; writes are unbuffered.
func (ca *ConsoleAppender) Refresh() error {
	return nil
}

// Close is a no-op; the writer is not owned by the appender.
func (ca *ConsoleAppender) Close() error {
	return nil
}
