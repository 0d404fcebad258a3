package client

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies no goroutine spawned by conn.send (the body pump, the
// upgrade passthrough copy) or by Pool (dialForWaiter) survives past the
// package's tests — in particular across Stop(), which must tear every one
// of them down. Grounded on teacher's transport/test/conn.go, which runs
// the same check per-suite rather than once for the whole package; this
// package verifies once for all its suites instead, so each test must
// finish every body or upgrade stream it opens.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
