package prometheus

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that no reporter goroutine outlives Stop.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
