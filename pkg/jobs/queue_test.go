package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "j1", Type: "noop"})
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "noop", Payload: 42}))

	select {
	case job := <-done:
		require.Equal(t, "j1", job.ID)
		require.Equal(t, 42, job.Payload)
		require.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesUntilBudgetExhausted(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", func(_ context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1", Type: "flaky"}))

	require.Eventually(t, func() bool {
		return attempts.Load() == 3
	}, 2*time.Second, 10*time.Millisecond, "expected initial attempt plus two retries")

	// The budget is spent; no further attempts should land.
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 3, attempts.Load())
}

func TestQueueStopPreventsFurtherEnqueues(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()

	err := q.Enqueue(Job{ID: "j1", Type: "noop"})
	require.ErrorIs(t, err, ErrNotRunning)
}
