// Package debug provides a lightweight env-gated diagnostic logger used
// across extractvault when a full log record isn't warranted (tight loops,
// best-effort writes, subprocess plumbing).
package debug

import (
	"fmt"
	"os"
	"sync"
)

var (
	enabled = os.Getenv("EVAULT_DEBUG") != ""
	mu      sync.Mutex
)

// Enabled reports whether verbose diagnostic output is turned on.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides the env-derived default, mainly for tests.
func SetEnabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// Logf writes to stderr only when debug output is enabled.
func Logf(format string, args ...interface{}) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stderr, format, args...)
}
