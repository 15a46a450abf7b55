package internal

import (
	"context"
	"errors"
	"sync"
)

// ConnectionManager runs a lazy initialization function for the Reddit
// source. A successful result is kept for good; a failed attempt is
// reported to its callers and the next call tries again. Concurrent callers
// share one in-flight attempt.
type ConnectionManager struct {
	mu      sync.Mutex
	done    bool
	running chan struct{}
	err     error
}

// errInitPanicked is handed to waiters when the initializer panics. The
// panic itself continues in the initializing goroutine.
var errInitPanicked = errors.New("connection initialization panicked")

// NewConnectionManager creates a new ConnectionManager instance ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Initialize runs fn unless a previous call already succeeded. Callers that
// arrive while an attempt is in flight wait for it and receive its result,
// or return early with ctx.Err() if their own context ends first.
func (cm *ConnectionManager) Initialize(ctx context.Context, fn func(context.Context) error) error {
	cm.mu.Lock()
	if cm.done {
		cm.mu.Unlock()
		return nil
	}
	if wait := cm.running; wait != nil {
		cm.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		cm.mu.Lock()
		err := cm.err
		cm.mu.Unlock()
		return err
	}
	wait := make(chan struct{})
	cm.running = wait
	cm.mu.Unlock()

	err := errInitPanicked
	defer func() {
		cm.mu.Lock()
		cm.err = err
		cm.done = err == nil
		cm.running = nil
		cm.mu.Unlock()
		close(wait)
	}()

	err = fn(ctx)
	return err
}

// Error returns the error from the last completed attempt, if any.
func (cm *ConnectionManager) Error() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.err
}

// IsInitialized reports whether an attempt has succeeded.
func (cm *ConnectionManager) IsInitialized() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.done
}
