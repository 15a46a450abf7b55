package helpers

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// RunConcurrently starts n goroutines running fn(i), releases them together
// and returns the non-nil errors they produced.
func RunConcurrently(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
		start = make(chan struct{})
	)
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			<-start
			if err := fn(i); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("goroutine %d: %w", i, err))
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

// WaitForGoroutines waits until the goroutine count drops to target plus
// tolerance, forcing GC between checks.
func WaitForGoroutines(maxWait time.Duration, target, tolerance int) (int, error) {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if current := runtime.NumGoroutine(); current-target <= tolerance {
			return current, nil
		}
		runtime.GC()
		time.Sleep(20 * time.Millisecond)
	}
	final := runtime.NumGoroutine()
	return final, fmt.Errorf("goroutines did not clean up within %v: expected %d±%d, got %d",
		maxWait, target, tolerance, final)
}
