package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeReclaimer struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	count int
	err   error
}

func (f *fakeReclaimer) Reclaim(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.count, f.err
}

func (f *fakeReclaimer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCleanup_TickRunsOneCycle(t *testing.T) {
	rec := &fakeReclaimer{count: 3}
	c := NewCleanup(rec, time.Hour, nil)

	c.tick(context.Background())

	assert.Eventually(t, func() bool {
		return rec.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCleanup_OverlappingTickIsSkipped(t *testing.T) {
	rec := &fakeReclaimer{delay: 200 * time.Millisecond}
	c := NewCleanup(rec, time.Hour, nil)

	ctx := context.Background()
	c.tick(ctx)
	// Give the first cycle time to grab the lock, then tick again while it runs.
	time.Sleep(20 * time.Millisecond)
	c.tick(ctx)

	assert.Eventually(t, func() bool {
		return rec.callCount() == 1
	}, time.Second, 10*time.Millisecond)

	// After the first cycle finishes a new tick runs again.
	time.Sleep(250 * time.Millisecond)
	c.tick(ctx)
	assert.Eventually(t, func() bool {
		return rec.callCount() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestCleanup_RunTicksUntilCancelled(t *testing.T) {
	rec := &fakeReclaimer{}
	c := NewCleanup(rec, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return rec.callCount() >= 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestCleanup_FailedCycleDoesNotStopTheLoop(t *testing.T) {
	rec := &fakeReclaimer{err: errors.New("db down")}
	c := NewCleanup(rec, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Eventually(t, func() bool {
		return rec.callCount() >= 3
	}, time.Second, 10*time.Millisecond)
}
