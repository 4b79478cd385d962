package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "QUORUM_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether the process was started with QUORUM_TEST_MODE=1.
// The binaries use it to exit before opening database or redis connections.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testModeFlag.Store(os.Getenv(testModeEnv) == "1")
	})
	return testModeFlag.Load()
}
