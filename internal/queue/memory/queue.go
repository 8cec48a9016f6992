// Package memory provides an in-memory run queue for single-process
// deployments and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"domainscout/internal/extract"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan extract.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan extract.QueueItem, capacity),
	}
}

// Enqueue pushes a run into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, item extract.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next run, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (extract.QueueItem, error) {
	select {
	case <-ctx.Done():
		return extract.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return extract.QueueItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
