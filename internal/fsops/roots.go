// Package fsops performs the workspace file operations tools rely on,
// under the rules of a safety.Policy.
package fsops

import (
	"os"
	"sync"

	"github.com/petasbytes/snapbooks/internal/safety"
)

var (
	mu      sync.Mutex
	ready   bool
	current sandbox
	initErr error
)

type sandbox struct {
	readRoot  string
	writeRoot string
	policy    safety.Policy
}

// Configure sets the workspace roots with the default policy. It takes
// precedence over AGT_READ_ROOT/AGT_WRITE_ROOT and may be called again to
// move the workspace.
func Configure(readRoot, writeRoot string) error {
	return ConfigurePolicy(readRoot, writeRoot, safety.DefaultPolicy())
}

// ConfigurePolicy is Configure with an explicit policy.
func ConfigurePolicy(readRoot, writeRoot string, p safety.Policy) error {
	r, w, err := safety.ResolveRoots(readRoot, writeRoot)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	current, initErr, ready = sandbox{readRoot: r, writeRoot: w, policy: p}, nil, true
	return nil
}

// Roots returns the absolute read and write roots in use.
func Roots() (string, string, error) {
	sb, err := get()
	return sb.readRoot, sb.writeRoot, err
}

// get returns the configured sandbox, falling back to the environment on
// first use.
func get() (sandbox, error) {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		var r, w string
		r, w, initErr = safety.ResolveRoots(os.Getenv("AGT_READ_ROOT"), os.Getenv("AGT_WRITE_ROOT"))
		current, ready = sandbox{readRoot: r, writeRoot: w, policy: safety.DefaultPolicy()}, true
	}
	return current, initErr
}
