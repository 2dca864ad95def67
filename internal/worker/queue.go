package worker

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// Job is a unit of background work. Accepted jobs always run to completion;
// the context they get is never cancelled by the queue.
type Job func(ctx context.Context)

// Queue runs jobs one at a time, in submission order, on a single goroutine.
type Queue struct {
	jobs chan Job
	done chan struct{}
	log  *logrus.Logger

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the consumer. size bounds how many jobs may wait.
func NewQueue(size int, log *logrus.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		jobs: make(chan Job, size),
		done: make(chan struct{}),
		log:  log,
	}
	go q.run()
	return q
}

// Enqueue hands job to the consumer without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending is the number of jobs waiting to start.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Close stops accepting jobs and waits until every accepted job has run, or
// ctx expires.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%d jobs still pending", len(q.jobs))
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		q.execute(job)
	}
}

func (q *Queue) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("panic", r).WithField("stack", string(debug.Stack())).Error("background job panicked")
		}
	}()
	job(context.Background())
}
