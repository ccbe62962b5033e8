package engine

import (
	"sort"
	"sync"
)

// ResourceLock provides mutual exclusion per named key. It guards the
// snapshot-capture phase, which runs earlier in the pipeline than the
// command queue's highlight-execution phase; two back-to-back undo
// keypresses must not interleave their before/after buffer reads.
type ResourceLock struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewResourceLock creates an empty lock table.
func NewResourceLock() *ResourceLock {
	return &ResourceLock{pending: make(map[string]chan struct{})}
}

// Acquire waits for any pending holder of key, runs action, and releases.
// Different keys never block each other.
func (l *ResourceLock) Acquire(key string, action func() error) error {
	l.mu.Lock()
	for {
		release, held := l.pending[key]
		if !held {
			break
		}
		l.mu.Unlock()
		<-release
		l.mu.Lock()
	}
	release := make(chan struct{})
	l.pending[key] = release
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.pending[key] == release {
			delete(l.pending, key)
		}
		l.mu.Unlock()
		close(release)
	}()

	return action()
}

// LockedKeys returns the currently held keys, sorted.
func (l *ResourceLock) LockedKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.pending))
	for key := range l.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
