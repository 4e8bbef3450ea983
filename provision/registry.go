package provision

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
)

// Registry is an append-only set of temporary executables to delete when the
// hosting process shuts down. Registration is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	paths []string
}

// Shutdown is the process-wide registry used when a Provisioner is not given
// one. Call Shutdown.Drain before the process exits.
var Shutdown = &Registry{}

// Register adds path to the set. Duplicate paths are ignored.
func (r *Registry) Register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.paths, path) {
		return
	}
	r.paths = append(r.paths, path)
}

// Paths returns a snapshot of the registered paths.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.paths)
}

// Drain removes every registered file. Files already gone are not an error.
// The set is emptied regardless of individual failures.
func (r *Registry) Drain() error {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
