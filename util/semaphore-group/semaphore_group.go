// Package semaphoregroup bounds the number of background tasks running at once.
package semaphoregroup

import (
	"context"
)

// SemaphoreGroup is a counting semaphore shared by the callers that run background I/O.
type SemaphoreGroup struct {
	semaphore chan struct{}
}

// NewSemaphoreGroup creates a new SemaphoreGroup with the specified semaphore limit.
// A limit below one is raised to one.
func NewSemaphoreGroup(limit int) *SemaphoreGroup {
	if limit < 1 {
		limit = 1
	}
	return &SemaphoreGroup{
		semaphore: make(chan struct{}, limit),
	}
}

// Add acquire a slot
func (sg *SemaphoreGroup) Add(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case sg.semaphore <- struct{}{}:
		return nil
	}
}

// Done releases a slot. Must be called after a successful Add.
func (sg *SemaphoreGroup) Done() {
	<-sg.semaphore
}

// Run executes fn on the calling goroutine while holding a slot
func (sg *SemaphoreGroup) Run(ctx context.Context, fn func()) error {
	if err := sg.Add(ctx); err != nil {
		return err
	}
	defer sg.Done()

	fn()
	return nil
}
