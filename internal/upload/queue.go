package upload

import (
	"context"
	"sync"
)

// Queue is an Outbox that holds upload requests until a remote uploader
// collects them, typically the design tool plugin polling the server.
type Queue struct {
	mu    sync.Mutex
	msgs  []Message
	ready chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post enqueues msg
func (q *Queue) Post(_ context.Context, msg Message) error {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Next waits until at least one message is queued, then drains the queue.
// It returns nil when ctx ends first.
func (q *Queue) Next(ctx context.Context) []Message {
	for {
		q.mu.Lock()
		if len(q.msgs) > 0 {
			out := q.msgs
			q.msgs = nil
			q.mu.Unlock()
			return out
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil
		}
	}
}

// Len reports the number of queued messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
