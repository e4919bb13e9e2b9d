package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/service"
)

type countingBalancer struct {
	calls atomic.Int32
	actor atomic.Value
	err   error
}

func (b *countingBalancer) BalanceWorkload(_ context.Context, changedBy string) (service.BalanceResult, error) {
	b.calls.Add(1)
	b.actor.Store(changedBy)
	return service.BalanceResult{Reassigned: 1, AverageLoad: 2}, b.err
}

func TestRebalanceWorkerRunsUntilCancelled(t *testing.T) {
	balancer := &countingBalancer{}
	w := NewRebalanceWorker(balancer, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return balancer.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, SystemActor, balancer.actor.Load())
}

func TestRebalanceWorkerKeepsRunningAfterFailure(t *testing.T) {
	balancer := &countingBalancer{err: errors.New("store down")}
	w := NewRebalanceWorker(balancer, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool { return balancer.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestRebalanceWorkerDisabled(t *testing.T) {
	balancer := &countingBalancer{}
	w := NewRebalanceWorker(balancer, 0, nil)

	finished := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("disabled worker blocked")
	}
	assert.Zero(t, balancer.calls.Load())
}
