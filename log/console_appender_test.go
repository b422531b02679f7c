package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleAppenderWrites(t *testing.T) {
	var buf bytes.Buffer
	ca := NewConsoleAppenderTo(&buf)

	ca.Append(rawEvent(InfoLevel, "to the console"))
	ca.Append(nil)

	out := buf.String()
	if !strings.Contains(out, "to the console") {
		t.Fatalf("output = %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}

	if err := ca.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := ca.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The writer is not owned, so Close leaves it usable.
	ca.Append(rawEvent(InfoLevel, "still writable"))
	if !strings.Contains(buf.String(), "still writable") {
		t.Fatal("console appender should keep writing after Close")
	}
}

func TestConsoleAppenderDefaultsToStdout(t *testing.T) {
	ca := NewConsoleAppender()
	if ca.out == nil {
		t.Fatal("stdout writer missing")
	}
}
