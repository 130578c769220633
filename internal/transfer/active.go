package transfer

import "sync"

// ActiveFiles tracks local paths that belong to a transfer in progress.
// The downloads sweep consults it so it never removes a file that is
// still waiting on an upload retry.
type ActiveFiles struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewActiveFiles returns an empty set.
func NewActiveFiles() *ActiveFiles {
	return &ActiveFiles{paths: make(map[string]struct{})}
}

// Add marks path as in use. It is safe on a nil set.
func (a *ActiveFiles) Add(path string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.paths[path] = struct{}{}
	a.mu.Unlock()
}

// Remove releases path.
func (a *ActiveFiles) Remove(path string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	delete(a.paths, path)
	a.mu.Unlock()
}

// Contains reports whether path is in use.
func (a *ActiveFiles) Contains(path string) bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.paths[path]
	return ok
}

// Len returns the number of tracked paths.
func (a *ActiveFiles) Len() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.paths)
}
