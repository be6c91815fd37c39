package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errFinal = errors.New("final")

func TestQueueRetriesRetryableFailures(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errTransient
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "1", Kind: "sessions.created"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueSkipsRetryForFinalErrors(t *testing.T) {
	var mu sync.Mutex
	var attempts []int
	finished := make(chan struct{}, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts = append(attempts, job.Attempt)
		mu.Unlock()
		return errFinal
	}, QueueConfig{
		Workers:     1,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		ShouldRetry: func(err error) bool { return !errors.Is(err, errFinal) },
		OnDone:      func(Job, error) { finished <- struct{}{} },
	})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	<-finished
	time.Sleep(20 * time.Millisecond)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0}, attempts)
}

func TestQueueAppliesInvocationTimeout(t *testing.T) {
	result := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		Workers:     1,
		Timeout:     10 * time.Millisecond,
		ShouldRetry: func(error) bool { return false },
		OnDone:      func(_ Job, err error) { result <- err },
	})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "slow"}))

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not cancelled")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "1"}))
}

func TestQueueHandlesOtherJobsWhileDelayedJobWaits(t *testing.T) {
	var mu sync.Mutex
	var order []string
	handledAt := map[string]time.Time{}
	finished := make(chan struct{}, 2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		order = append(order, job.ID)
		handledAt[job.ID] = time.Now()
		mu.Unlock()
		finished <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	notBefore := time.Now().Add(150 * time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "confirm", Kind: "task.session.confirm", NotBefore: notBefore}))
	require.NoError(t, q.Enqueue(Job{ID: "update", Kind: "class_requests.update"}))

	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs were not handled")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"update", "confirm"}, order)
	assert.False(t, handledAt["confirm"].Before(notBefore))
}

func TestQueueStopDropsPendingDelayedJobs(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "later", NotBefore: time.Now().Add(time.Hour)}))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop waited for the delayed job")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
