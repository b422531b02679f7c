package log

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no appender goroutine outlives Close.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
