package worker

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestQueueRunsJobsInOrderOneAtATime(t *testing.T) {
	q := NewQueue(16, quietLogger())

	var (
		mu      sync.Mutex
		order   []int
		running int32
		overlap int32
	)
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.Enqueue(func(context.Context) {
			if atomic.AddInt32(&running, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			atomic.AddInt32(&running, -1)
		}))
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(1, quietLogger())
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, q.Enqueue(func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, q.Enqueue(func(context.Context) {}))
	assert.ErrorIs(t, q.Enqueue(func(context.Context) {}), ErrQueueFull)

	close(release)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueueCloseDrainsAndRejects(t *testing.T) {
	q := NewQueue(8, quietLogger())
	var ran int32
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(func(context.Context) {
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&ran, 1)
		}))
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
	assert.ErrorIs(t, q.Enqueue(func(context.Context) {}), ErrQueueClosed)
	// closing twice is fine
	require.NoError(t, q.Close(context.Background()))
}

func TestQueueCloseTimeout(t *testing.T) {
	q := NewQueue(1, quietLogger())
	release := make(chan struct{})
	require.NoError(t, q.Enqueue(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueueSurvivesPanics(t *testing.T) {
	q := NewQueue(4, quietLogger())
	var ran int32
	require.NoError(t, q.Enqueue(func(context.Context) { panic("boom") }))
	require.NoError(t, q.Enqueue(func(context.Context) { atomic.AddInt32(&ran, 1) }))

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}
