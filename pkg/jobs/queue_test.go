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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	var wg sync.WaitGroup
	var outcome error = errors.New("unset")

	wg.Add(1)
	q := NewQueue("sync", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		OnDone: func(_ Job, err error) {
			outcome = err
			wg.Done()
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Kind: "ensure_modules", CityID: "city-1"}))
	wg.Wait()

	assert.NoError(t, outcome)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueReportsExhaustedRetries(t *testing.T) {
	done := make(chan error, 1)
	q := NewQueue("sync", func(ctx context.Context, job Job) error {
		return errors.New("db down")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnDone:     func(_ Job, err error) { done <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", CityID: "city-1"}))
	select {
	case err := <-done:
		assert.EqualError(t, err, "db down")
	case <-time.After(2 * time.Second):
		t.Fatal("job never completed")
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("sync", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "1"}))
}
