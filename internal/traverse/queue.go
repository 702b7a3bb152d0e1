package traverse

import "fmt"

// Queue is a bounded FIFO of file identifiers backed by a ring buffer.
// Duplicates are allowed; they are filtered against the VisitedSet when
// dequeued.
type Queue struct {
	items []string
	head  int
	size  int
	peak  int
}

// NewQueue creates a queue holding at most capacity identifiers.
func NewQueue(capacity int) *Queue {
	return &Queue{items: make([]string, capacity)}
}

// Push appends id, failing with ErrQueueFull when the queue is at capacity.
func (q *Queue) Push(id string) error {
	if q.size == len(q.items) {
		return fmt.Errorf("%w: %d pending files", ErrQueueFull, q.size)
	}
	q.items[(q.head+q.size)%len(q.items)] = id
	q.size++
	if q.size > q.peak {
		q.peak = q.size
	}
	return nil
}

// Pop removes and returns the oldest identifier.
func (q *Queue) Pop() (string, bool) {
	if q.size == 0 {
		return "", false
	}
	id := q.items[q.head]
	q.items[q.head] = ""
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return id, true
}

func (q *Queue) Len() int  { return q.size }
func (q *Queue) Peak() int { return q.peak }
