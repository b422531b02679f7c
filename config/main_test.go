package config

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no watcher goroutine outlives Stop.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
