package engine

import (
	"sync"
	"time"

	"highlightundo/logger"
)

// StaleAfter is how long a queued action may wait before the drain loop
// skips it instead of executing it. Rapid-fire keypresses that sat behind a
// slow highlight are no longer wanted once this much time has passed.
const StaleAfter = 5 * time.Second

type queueEntry struct {
	id       uint64
	name     string
	execute  func()
	bufID    int
	enqueued time.Time
}

// QueueStats is a point-in-time view of the command queue.
type QueueStats struct {
	PendingPerBuffer map[int]int
	Executed         uint64
	SkippedStale     uint64
}

// CommandQueue serializes highlight-command execution per buffer. Actions
// for one buffer run strictly in enqueue order on a single drain goroutine;
// actions for different buffers run concurrently.
type CommandQueue struct {
	mu           sync.Mutex
	queues       map[int][]*queueEntry
	draining     map[int]bool
	nextID       uint64
	executed     uint64
	skippedStale uint64

	// staleAfter defaults to StaleAfter; tests shorten it.
	staleAfter time.Duration
}

// NewCommandQueue creates an empty queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		queues:     make(map[int][]*queueEntry),
		draining:   make(map[int]bool),
		staleAfter: StaleAfter,
	}
}

// Enqueue appends an action to the buffer's FIFO and starts a drain loop
// for that buffer if none is running.
func (q *CommandQueue) Enqueue(bufID int, name string, execute func()) {
	q.mu.Lock()
	q.nextID++
	q.queues[bufID] = append(q.queues[bufID], &queueEntry{
		id:       q.nextID,
		name:     name,
		execute:  execute,
		bufID:    bufID,
		enqueued: time.Now(),
	})
	start := !q.draining[bufID]
	if start {
		q.draining[bufID] = true
	}
	q.mu.Unlock()

	if start {
		go q.drain(bufID)
	}
}

// ClearBuffer drops all not-yet-dequeued actions for a buffer. An action
// already running is not cancelled.
func (q *CommandQueue) ClearBuffer(bufID int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, bufID)
}

// Stats returns current queue statistics.
func (q *CommandQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make(map[int]int, len(q.queues))
	for bufID, entries := range q.queues {
		if len(entries) > 0 {
			pending[bufID] = len(entries)
		}
	}
	return QueueStats{
		PendingPerBuffer: pending,
		Executed:         q.executed,
		SkippedStale:     q.skippedStale,
	}
}

// drain pops and runs actions for one buffer strictly in order until the
// queue empties. Per-action failures are contained; the loop never aborts.
func (q *CommandQueue) drain(bufID int) {
	for {
		q.mu.Lock()
		entries := q.queues[bufID]
		if len(entries) == 0 {
			delete(q.queues, bufID)
			q.draining[bufID] = false
			q.mu.Unlock()
			return
		}
		entry := entries[0]
		q.queues[bufID] = entries[1:]
		q.mu.Unlock()

		if age := time.Since(entry.enqueued); age > q.staleAfter {
			logger.Warn("skipping stale queued command %q for buffer %d (age %v)", entry.name, bufID, age)
			q.mu.Lock()
			q.skippedStale++
			q.mu.Unlock()
			continue
		}

		q.run(entry)
	}
}

func (q *CommandQueue) run(entry *queueEntry) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("queued command %q for buffer %d panicked: %v", entry.name, entry.bufID, r)
		}
	}()
	entry.execute()
	q.mu.Lock()
	q.executed++
	q.mu.Unlock()
}
