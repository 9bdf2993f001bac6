package queue

import (
	"sync"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

// Queue is an unbounded FIFO of messages for a single hardware unit.
// Any number of goroutines may Enqueue; Dequeue never blocks.
type Queue struct {
	mu    sync.Mutex
	items []model.Message
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(msg model.Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
}

// Dequeue pops the oldest message, reporting false when the queue is empty.
func (q *Queue) Dequeue() (model.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return model.Message{}, false
	}
	msg := q.items[0]
	q.items[0] = model.Message{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return msg, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
