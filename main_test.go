package tyto

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that Stop leaves no watcher or appender goroutine
// behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
