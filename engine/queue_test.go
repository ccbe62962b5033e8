package engine

import (
	"sync"
	"testing"
	"time"

	"highlightundo/assert"
)

// waitForExecuted polls until the queue reports n executed actions or the
// deadline passes.
func waitForExecuted(t *testing.T, q *CommandQueue, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Stats().Executed >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("queue did not execute %d actions in time (got %d)", n, q.Stats().Executed)
}

// waitForDequeued polls until the buffer's pending count drops to zero,
// meaning the drain loop has picked up everything enqueued so far.
func waitForDequeued(t *testing.T, q *CommandQueue, bufID int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Stats().PendingPerBuffer[bufID] == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("buffer %d still has pending actions", bufID)
}

func TestEnqueue_RunsActionsInOrder(t *testing.T) {
	q := NewCommandQueue()

	var mu sync.Mutex
	var order []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}
	}

	q.Enqueue(1, "first", record(1))
	q.Enqueue(1, "second", record(2))
	q.Enqueue(1, "third", record(3))

	waitForExecuted(t, q, 3)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order, "strict FIFO per buffer")
}

func TestEnqueue_BuffersDrainIndependently(t *testing.T) {
	q := NewCommandQueue()

	blocked := make(chan struct{})
	ran := make(chan struct{})

	q.Enqueue(1, "blocker", func() { <-blocked })
	q.Enqueue(2, "other", func() { close(ran) })

	select {
	case <-ran:
		// Buffer 2 ran while buffer 1 was still blocked
	case <-time.After(2 * time.Second):
		t.Fatal("buffer 2 action blocked behind buffer 1")
	}
	close(blocked)
	waitForExecuted(t, q, 2)
}

func TestClearBuffer_DropsPendingActions(t *testing.T) {
	q := NewCommandQueue()

	blocked := make(chan struct{})
	var dropped sync.Mutex
	droppedRan := false

	q.Enqueue(1, "blocker", func() { <-blocked })
	waitForDequeued(t, q, 1)

	q.Enqueue(1, "pending", func() {
		dropped.Lock()
		droppedRan = true
		dropped.Unlock()
	})

	q.ClearBuffer(1)
	close(blocked)
	waitForExecuted(t, q, 1)

	// Give a wrongly surviving action a chance to run before asserting
	time.Sleep(20 * time.Millisecond)
	dropped.Lock()
	defer dropped.Unlock()
	assert.False(t, droppedRan, "cleared action never runs")
}

func TestDrain_SkipsStaleActions(t *testing.T) {
	q := NewCommandQueue()
	q.staleAfter = 10 * time.Millisecond

	blocked := make(chan struct{})
	var aged sync.Mutex
	agedRan := false

	q.Enqueue(1, "blocker", func() { <-blocked })
	waitForDequeued(t, q, 1)

	q.Enqueue(1, "aged", func() {
		aged.Lock()
		agedRan = true
		aged.Unlock()
	})

	// Let the queued action outlive the cutoff before releasing the blocker
	time.Sleep(30 * time.Millisecond)
	close(blocked)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.Stats().SkippedStale >= 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	stats := q.Stats()
	assert.Equal(t, uint64(1), stats.SkippedStale, "aged action counted as skipped")
	assert.Equal(t, uint64(1), stats.Executed, "only the blocker executed")
	aged.Lock()
	defer aged.Unlock()
	assert.False(t, agedRan, "stale action never runs")
}

func TestDrain_ContainsPanics(t *testing.T) {
	q := NewCommandQueue()

	ran := make(chan struct{})
	q.Enqueue(1, "panics", func() { panic("boom") })
	q.Enqueue(1, "survives", func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("action after a panic never ran")
	}
}

func TestStats_PendingCounts(t *testing.T) {
	q := NewCommandQueue()

	blocked := make(chan struct{})
	q.Enqueue(1, "blocker", func() { <-blocked })

	// Wait for the blocker to be dequeued so the pending count is stable
	waitForDequeued(t, q, 1)

	q.Enqueue(1, "waiting", func() {})
	stats := q.Stats()
	assert.Equal(t, 1, stats.PendingPerBuffer[1], "one action waiting")

	close(blocked)
	waitForExecuted(t, q, 2)
	assert.Len(t, 0, q.Stats().PendingPerBuffer, "nothing pending after drain")
}
