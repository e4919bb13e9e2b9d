package service

import (
	"context"
	"time"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const defaultWriteLockTimeout = 5 * time.Second

// writeLock serializes ticket mutations. Waiting is bounded so a stuck writer
// surfaces as a retryable error instead of piling up callers.
type writeLock struct {
	slot    chan struct{}
	timeout time.Duration
}

func newWriteLock(timeout time.Duration) *writeLock {
	if timeout <= 0 {
		timeout = defaultWriteLockTimeout
	}
	return &writeLock{slot: make(chan struct{}, 1), timeout: timeout}
}

// acquire blocks until the lock is held, the timeout elapses or ctx is done.
// The returned func releases the lock.
func (l *writeLock) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case l.slot <- struct{}{}:
		return func() { <-l.slot }, nil
	case <-timer.C:
		return nil, apperrors.NewStoreUnavailable("ticket store busy", nil)
	case <-ctx.Done():
		return nil, apperrors.NewStoreUnavailable("ticket store busy", ctx.Err())
	}
}
