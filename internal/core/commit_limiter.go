package core

// commit_limiter.go bounds how many batches are in flight to the commit
// backend at once.
//
// Previews are cheap and in-memory, commits are not: each one holds a
// database transaction or an outbound HTTP request. When all slots are taken
// a commit waits up to maxWait and then fails with ErrTooManyCommits. The
// preview session survives that failure, so the client can simply retry.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyCommits is returned when no commit slot frees up within the
// limiter's wait time.
var ErrTooManyCommits = errors.New("too many concurrent commits, please try again later")

const (
	DefaultMaxConcurrentCommits = 4
	DefaultCommitWait           = 15 * time.Second
)

// CommitLimiter is a counting semaphore for commit calls.
type CommitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCommitLimiter allows at most maxConcurrent simultaneous commits.
func NewCommitLimiter(maxConcurrent int, maxWait time.Duration) *CommitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCommits
	}
	if maxWait <= 0 {
		maxWait = DefaultCommitWait
	}

	return &CommitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire blocks until a slot is free, ctx is done, or maxWait elapses.
// The caller must call Release after a nil return.
func (l *CommitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyCommits
	}
}

// TryAcquire takes a slot without blocking.
func (l *CommitLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *CommitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of commits holding a slot.
func (l *CommitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *CommitLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no commit is in flight or ctx is done.
// Used during shutdown so batches are not cut off mid-transaction.
func (l *CommitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CommitLimiterStatus is a snapshot of the limiter for the health endpoint.
type CommitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *CommitLimiter) Status() CommitLimiterStatus {
	return CommitLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
