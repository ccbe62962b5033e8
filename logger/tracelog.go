package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// TraceLog is an optional append-only debug log of timestamped JSON lines.
// It records pipeline events (diff computed, ranges adjusted, highlights
// applied) for offline inspection and is independent of the main log file.
type TraceLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type traceEvent struct {
	Time  string         `json:"time"`
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// OpenTraceLog opens (or creates) the JSON-lines trace file at path.
// A nil *TraceLog is a valid, disabled trace log.
func OpenTraceLog(path string) (*TraceLog, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &TraceLog{file: f, enc: json.NewEncoder(f)}, nil
}

// Event appends one JSON line. Safe to call on a nil receiver.
func (tl *TraceLog) Event(event string, data map[string]any) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if err := tl.enc.Encode(traceEvent{
		Time:  time.Now().Format(time.RFC3339Nano),
		Event: event,
		Data:  data,
	}); err != nil {
		Warn("trace log write failed: %v", err)
	}
}

// Close closes the trace file. Safe to call on a nil receiver.
func (tl *TraceLog) Close() error {
	if tl == nil {
		return nil
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.file.Close()
}
