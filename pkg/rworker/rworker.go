// Package rworker runs fire and forget jobs under a shared concurrency
// cap.
package rworker

import "sync"

// Job schedules fn on its own goroutine. The rate channel bounds how
// many jobs run at once. A job error lands in errCh when there is room,
// otherwise it is dropped.
func Job(wg *sync.WaitGroup, fn func() error, rate chan struct{}, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		rate <- struct{}{}
		defer func() { <-rate }()

		err := fn()
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}()
}
