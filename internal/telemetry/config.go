package telemetry

import (
	"os"
	"sync"
)

// DefaultDir holds events.jsonl unless configured otherwise.
const DefaultDir = ".agent"

// Options override the environment defaults for event emission.
type Options struct {
	Enabled bool
	Dir     string
}

var (
	optsMu sync.RWMutex
	opts   *Options
)

// Configure sets emission options for the process. A nil o reverts to the
// AGT_OBSERVE_JSON and AGT_ARTIFACTS_DIR environment variables.
func Configure(o *Options) {
	optsMu.Lock()
	defer optsMu.Unlock()
	if o == nil {
		opts = nil
		return
	}
	c := *o
	opts = &c
}

// ObserveEnabled reports whether events are written.
func ObserveEnabled() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	if opts != nil {
		return opts.Enabled
	}
	return os.Getenv("AGT_OBSERVE_JSON") == "1"
}

// Dir returns the directory that holds events.jsonl.
func Dir() string {
	optsMu.RLock()
	defer optsMu.RUnlock()
	if opts != nil && opts.Dir != "" {
		return opts.Dir
	}
	if d := os.Getenv("AGT_ARTIFACTS_DIR"); d != "" {
		return d
	}
	return DefaultDir
}
