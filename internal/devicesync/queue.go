// Package devicesync queues local memory writes and reconciles memory items
// written by other devices, recording every step in the sync log.
package devicesync

import (
	"log"
	"sync"
	"time"
)

// DefaultQueueSize bounds the pending write queue.
const DefaultQueueSize = 1024

// PendingWrite is a local write that has not been pushed yet.
type PendingWrite struct {
	MemoryID  string
	Operation string
	At        time.Time
}

// Queue is a bounded FIFO of pending writes. When full, the oldest write is
// dropped.
type Queue struct {
	mu      sync.Mutex
	items   []PendingWrite
	max     int
	dropped int
}

// NewQueue returns a queue holding at most size writes.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{max: size}
}

// Enqueue appends a write.
func (q *Queue) Enqueue(memoryID, operation string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		log.Printf("devicesync: queue full, dropping pending write for %s", q.items[0].MemoryID)
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, PendingWrite{MemoryID: memoryID, Operation: operation, At: at})
}

// Take removes and returns every queued write.
func (q *Queue) Take() []PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Requeue puts writes back at the front, e.g. after a failed push.
func (q *Queue) Requeue(writes []PendingWrite) {
	if len(writes) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := append(append([]PendingWrite{}, writes...), q.items...)
	if over := len(merged) - q.max; over > 0 {
		q.dropped += over
		merged = merged[over:]
	}
	q.items = merged
}

// Len returns the number of queued writes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many writes were discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
