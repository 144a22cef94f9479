// Package queue provides the blocking FIFO that hands completed blocks from
// sessions to sink workers.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var ErrClosed = errors.New("queue: closed")

// Queue is a FIFO safe for any number of producers and consumers.
// Push never blocks; Pop waits until an element is available.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    *queue.Queue
	closed bool
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{buf: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v and wakes one waiting consumer.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.buf.Add(v)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop removes the head element, waiting while the queue is empty. It returns
// ctx.Err() if ctx ends first and ErrClosed once the queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		// taking the lock keeps the broadcast from slipping in between the
		// ctx check and Wait below
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	}()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.buf.Length() == 0 {
		if q.closed {
			var zero T
			return zero, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		q.cond.Wait()
	}
	return q.buf.Remove().(T), nil
}

// TryPop removes the head element if there is one. The emptiness check and
// the removal happen under one lock, so concurrent drainers never wait on an
// element another drainer already took.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.buf.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.buf.Remove().(T), true
}

// IsEmpty is a snapshot; a concurrent Push may land right after it returns.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Length()
}

// Close wakes every blocked Pop. Elements already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
