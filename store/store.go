// Package store caches the before/after buffer snapshots captured around a
// pending undo/redo command. One snapshot pair per buffer, bounded total
// memory, oldest-accessed-first eviction. The store itself is not
// concurrency-aware beyond its own mutex; per-buffer ordering is the
// engine's resource lock's job.
package store

import (
	"bytes"
	"io"
	"sync"
	"time"

	"highlightundo/logger"

	"github.com/andybalholm/brotli"
)

// compressThreshold is the snapshot size in bytes above which pre/post
// texts are held brotli-compressed. Small snapshots are not worth the
// round-trip.
const compressThreshold = 4096

// evictTarget is the fraction of the cap eviction shrinks to, so one large
// Set does not immediately trigger the next eviction.
const evictTarget = 0.8

// SnapshotPair is the before/after whole-buffer text captured around one
// undo/redo command.
type SnapshotPair struct {
	PreCode  string
	PostCode string
}

type entry struct {
	pre        []byte
	post       []byte
	compressed bool
	size       int
	lastAccess time.Time
	createdAt  time.Time
}

// Stats is a point-in-time view of the store for diagnostics.
type Stats struct {
	Entries    int
	TotalBytes int
	MaxBytes   int
	Evictions  int
}

// SnapshotStore holds one pending snapshot pair per buffer.
type SnapshotStore struct {
	mu        sync.Mutex
	entries   map[int]*entry
	total     int
	maxBytes  int
	evictions int
}

// New creates a store bounded to maxBytes of snapshot text.
func New(maxBytes int) *SnapshotStore {
	return &SnapshotStore{
		entries:  make(map[int]*entry),
		maxBytes: maxBytes,
	}
}

// Set stores the snapshot pair for a buffer, replacing any pending pair,
// and evicts least-recently-accessed entries if the cap is exceeded.
func (s *SnapshotStore) Set(bufID int, preCode, postCode string) {
	now := time.Now()
	e := &entry{
		size:       len(preCode) + len(postCode),
		lastAccess: now,
		createdAt:  now,
	}
	if e.size > compressThreshold {
		pre, preOK := compress(preCode)
		post, postOK := compress(postCode)
		if preOK && postOK {
			e.pre = pre
			e.post = post
			e.compressed = true
			e.size = len(e.pre) + len(e.post)
		} else {
			e.pre = []byte(preCode)
			e.post = []byte(postCode)
		}
	} else {
		e.pre = []byte(preCode)
		e.post = []byte(postCode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[bufID]; ok {
		s.total -= old.size
	}
	s.entries[bufID] = e
	s.total += e.size

	if s.total > s.maxBytes {
		s.evictLocked()
	}
}

// Get returns the pending pair for a buffer and refreshes its access time,
// or nil if absent.
func (s *SnapshotStore) Get(bufID int) *SnapshotPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[bufID]
	if !ok {
		return nil
	}
	e.lastAccess = time.Now()
	return e.pair()
}

// Take returns and removes the pending pair for a buffer: a pair is
// consumed exactly once by the highlight command it was captured for.
func (s *SnapshotStore) Take(bufID int) *SnapshotPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[bufID]
	if !ok {
		return nil
	}
	delete(s.entries, bufID)
	s.total -= e.size
	return e.pair()
}

// Clear removes the pending pair for a buffer, if any. Used when a buffer
// closes before its highlight command ran.
func (s *SnapshotStore) Clear(bufID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[bufID]; ok {
		delete(s.entries, bufID)
		s.total -= e.size
	}
}

// ClearAll removes every pending pair.
func (s *SnapshotStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[int]*entry)
	s.total = 0
}

// Stats returns current cache statistics.
func (s *SnapshotStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries:    len(s.entries),
		TotalBytes: s.total,
		MaxBytes:   s.maxBytes,
		Evictions:  s.evictions,
	}
}

// evictLocked removes entries in ascending last-access order until total
// size is under evictTarget of the cap. Caller holds the mutex.
func (s *SnapshotStore) evictLocked() {
	target := int(float64(s.maxBytes) * evictTarget)
	for s.total > target && len(s.entries) > 0 {
		oldestID := 0
		var oldest *entry
		for id, e := range s.entries {
			if oldest == nil || e.lastAccess.Before(oldest.lastAccess) {
				oldestID, oldest = id, e
			}
		}
		delete(s.entries, oldestID)
		s.total -= oldest.size
		s.evictions++
		logger.Debug("snapshot store evicted buffer %d (%d bytes)", oldestID, oldest.size)
	}
}

func (e *entry) pair() *SnapshotPair {
	if !e.compressed {
		return &SnapshotPair{PreCode: string(e.pre), PostCode: string(e.post)}
	}
	return &SnapshotPair{PreCode: decompress(e.pre), PostCode: decompress(e.post)}
}

// compress brotli-encodes text. On failure it reports ok=false so the
// caller stores the raw bytes and leaves the entry marked uncompressed.
func compress(text string) ([]byte, bool) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write([]byte(text)); err != nil {
		logger.Warn("snapshot compression failed, storing raw: %v", err)
		return nil, false
	}
	if err := w.Close(); err != nil {
		logger.Warn("snapshot compression failed, storing raw: %v", err)
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(data []byte) string {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		logger.Error("snapshot decompression failed: %v", err)
		return ""
	}
	return string(out)
}
