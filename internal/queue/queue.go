// Package queue provides the FIFO hand-off between the clipboard poller and
// the pipeline coordinator.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded first-in-first-out queue of strings.
//
// Push never blocks; Pop blocks until an item is available or the context
// is done. Items come out in the order they went in.
type Queue struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends text to the tail of the queue.
func (q *Queue) Push(text string) {
	q.mu.Lock()
	q.items = append(q.items, text)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head of the queue, waiting if it is empty.
// It returns ctx.Err() once ctx is done, even if items remain.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			head := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// re-arm so the next Pop does not wait
				select {
				case q.ready <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return head, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
