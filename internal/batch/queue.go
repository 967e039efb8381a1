// Package batch runs per-member settlement jobs through a bounded
// worker pool. A run enqueues every settleable member, closes the
// queue, and lets the workers drain it.
package batch

import (
	"context"
	"sync"

	"ratingd/internal/domain/model"
	"ratingd/pkg/metrics"
)

// defaultQueueCapacity bounds a run that never configured a size.
const defaultQueueCapacity = 1024

// Job is one member settlement unit flowing through the queue.
type Job struct {
	Member model.Member
}

// Queue is a bounded in-memory job queue with enqueue-then-close
// semantics: the producer enqueues a finite set and closes, consumers
// drain the channel until it is closed.
type Queue struct {
	jobs chan Job

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding at most capacity jobs.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		jobs: make(chan Job, capacity),
	}
}

// Enqueue adds a job. Returns false if the queue is closed or full.
func (q *Queue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		return false
	}
}

// Dequeue returns the channel workers consume from. The channel closes
// when the queue is closed and drained.
func (q *Queue) Dequeue() <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close marks the queue complete. Enqueue refuses afterwards; workers
// finish the remaining jobs and stop.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Closed reports whether the queue has been closed.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
