package coord

import (
	"context"
	"errors"
	"sync"
)

// ErrTaskDone is returned when TaskDone is called more times than items
// were put.
var ErrTaskDone = errors.New("task done called too many times")

// Queue is an unbounded FIFO with task accounting: every Get must be paired
// with a TaskDone, and Join blocks until all put items are done.
type Queue struct {
	mu         sync.Mutex
	items      []Message
	unfinished int
	wake       chan struct{} // closed on Put
	done       chan struct{} // closed when unfinished drops to zero
}

func NewQueue() *Queue {
	done := make(chan struct{})
	close(done)
	return &Queue{
		wake: make(chan struct{}),
		done: done,
	}
}

// Put appends msg.
func (q *Queue) Put(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, msg)
	if q.unfinished == 0 {
		q.done = make(chan struct{})
	}
	q.unfinished++

	close(q.wake)
	q.wake = make(chan struct{})
}

// TryGet removes the head of the queue without blocking.
func (q *Queue) TryGet() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Get blocks until an item is available or ctx ends.
func (q *Queue) Get(ctx context.Context) (Message, error) {
	for {
		q.mu.Lock()
		if msg, ok := q.pop(); ok {
			q.mu.Unlock()
			return msg, nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TaskDone acknowledges one item obtained from Get or TryGet.
func (q *Queue) TaskDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		return ErrTaskDone
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.done)
	}
	return nil
}

// Join blocks until every item put so far has been acknowledged.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) pop() (Message, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return msg, true
}
