package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by AcquireWithin when the lock could not be obtained
// inside the allowed wait. The lock is never granted on this path.
var ErrTimeout = errors.New("lock: acquire timed out")

// handle is a one-slot semaphore. A buffered send holds the lock, a receive
// releases it, so timed and cancellable waits fall out of select.
type handle struct {
	sem chan struct{}
}

// Registry maps keys to mutual-exclusion handles. Handles are created lazily
// on first use and retained for the process lifetime; they are never removed
// while referenced, so the registry is bounded by the number of distinct keys.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

func (r *Registry) handleFor(key string) *handle {
	r.mu.Lock()
	h, ok := r.handles[key]
	if !ok {
		h = &handle{sem: make(chan struct{}, 1)}
		r.handles[key] = h
	}
	r.mu.Unlock()
	return h
}

// TryAcquire obtains the lock for key without waiting. It returns true on
// success.
func (r *Registry) TryAcquire(key string) bool {
	h := r.handleFor(key)
	select {
	case h.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Acquire blocks until the lock for key is obtained or ctx is cancelled.
func (r *Registry) Acquire(ctx context.Context, key string) error {
	h := r.handleFor(key)
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AcquireWithin waits up to d for the lock for key. It returns ErrTimeout if
// the wait elapses and the context error if ctx is cancelled first.
func (r *Registry) AcquireWithin(ctx context.Context, key string, d time.Duration) error {
	h := r.handleFor(key)
	select {
	case h.sem <- struct{}{}:
		return nil
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-t.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock for key. Releasing a key that is not held is a no-op.
func (r *Registry) Release(key string) {
	h := r.handleFor(key)
	select {
	case <-h.sem:
	default:
	}
}

// Size reports the number of handles created so far.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
