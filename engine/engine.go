// Package engine orchestrates undo/redo highlight commands: snapshot
// capture under a per-buffer resource lock, diff/range/encode pipeline, and
// highlight-vs-mutation ordering on a per-buffer command queue.
package engine

import (
	"fmt"
	"time"

	"highlightundo/config"
	"highlightundo/logger"
	"highlightundo/store"
	"highlightundo/text"
	"highlightundo/types"
)

// Engine drives the full highlight flow against the host editor
// collaborators. All mutable state lives in the injected store, queue, and
// lock; the configuration is an immutable snapshot.
type Engine struct {
	cfg      config.Config
	buf      types.BufferService
	hl       types.HighlightSink
	reporter types.ErrorReporter
	store    *store.SnapshotStore
	queue    *CommandQueue
	lock     *ResourceLock
	differ   *text.Differ
	trace    *logger.TraceLog

	// sleep is swappable so tests do not wait out highlight durations.
	sleep func(time.Duration)
}

// Stats aggregates the observability hooks of the engine's internals.
type Stats struct {
	BufferCache     store.Stats
	Queue           QueueStats
	LockedResources []string
	DiffCacheLen    int
}

// New wires an engine. All collaborators are required; a nil collaborator
// is programmer misuse and fails synchronously.
func New(cfg config.Config, buf types.BufferService, hl types.HighlightSink, reporter types.ErrorReporter, trace *logger.TraceLog) (*Engine, error) {
	if buf == nil || hl == nil || reporter == nil {
		return nil, fmt.Errorf("engine: all collaborators must be non-nil")
	}
	return &Engine{
		cfg:      cfg,
		buf:      buf,
		hl:       hl,
		reporter: reporter,
		store:    store.New(cfg.SnapshotCacheBytes),
		queue:    NewCommandQueue(),
		lock:     NewResourceLock(),
		differ:   text.NewDiffer(),
		trace:    trace,
		sleep:    time.Sleep,
	}, nil
}

// CommandFor returns the editor command a direction maps to.
func CommandFor(dir types.Direction) string {
	if dir == types.DirectionRedo {
		return "redo"
	}
	return "undo"
}

// CounterCommandFor returns the command that reverses a direction's
// command, used for the snapshot-capture round-trip.
func CounterCommandFor(dir types.Direction) string {
	if dir == types.DirectionRedo {
		return "undo"
	}
	return "redo"
}

func lockKey(bufID int) string {
	return fmt.Sprintf("buffer-%d", bufID)
}

// PrepareSnapshot captures the buffer text before and after the pending
// command via a command/counter-command round-trip and stores the pair.
// The per-buffer resource lock keeps two rapid keypresses from interleaving
// their reads.
func (e *Engine) PrepareSnapshot(bufID int, dir types.Direction) error {
	defer logger.Trace("engine.PrepareSnapshot")()

	command := CommandFor(dir)
	counter := CounterCommandFor(dir)

	return e.lock.Acquire(lockKey(bufID), func() error {
		preLines, err := e.buf.GetAllLines(bufID)
		if err != nil {
			return e.report(err, bufID, command, "prepareSnapshot")
		}
		if err := e.buf.ExecuteCommand(bufID, command); err != nil {
			return e.report(err, bufID, command, "prepareSnapshot")
		}
		postLines, err := e.buf.GetAllLines(bufID)
		if err != nil {
			return e.report(err, bufID, command, "prepareSnapshot")
		}
		if err := e.buf.ExecuteCommand(bufID, counter); err != nil {
			return e.report(err, bufID, counter, "prepareSnapshot")
		}

		e.store.Set(bufID, text.JoinLines(preLines), text.JoinLines(postLines))
		e.trace.Event("snapshot_captured", map[string]any{
			"buf":       bufID,
			"direction": string(dir),
			"pre_len":   len(preLines),
			"post_len":  len(postLines),
		})
		return nil
	})
}

// ExecuteWithHighlight queues the full highlight flow for the buffer.
// Queued actions for one buffer run strictly FIFO; a keystroke handler
// never waits on this call.
func (e *Engine) ExecuteWithHighlight(bufID int, dir types.Direction) {
	e.queue.Enqueue(bufID, string(dir), func() {
		e.runHighlightCommand(bufID, dir)
	})
}

// BufferClosed drops all pending state for a buffer.
func (e *Engine) BufferClosed(bufID int) {
	e.queue.ClearBuffer(bufID)
	e.store.Clear(bufID)
}

// Stats returns the engine's observability snapshot.
func (e *Engine) Stats() Stats {
	return Stats{
		BufferCache:     e.store.Stats(),
		Queue:           e.queue.Stats(),
		LockedResources: e.lock.LockedKeys(),
		DiffCacheLen:    e.differ.CacheLen(),
	}
}

// ClearAllCaches drops every cached snapshot pair and diff result.
func (e *Engine) ClearAllCaches() {
	e.store.ClearAll()
	e.differ.ClearCache()
}

// runHighlightCommand is the state machine for one invocation:
// precondition check, snapshot lookup, diff, then ordered execution. The
// underlying undo/redo command is always issued once past the precondition,
// even when any highlighting step fails.
func (e *Engine) runHighlightCommand(bufID int, dir types.Direction) {
	defer logger.Trace("engine.runHighlightCommand")()
	command := CommandFor(dir)

	state, err := e.buf.GetUndoTreeState(bufID)
	if err != nil {
		e.report(err, bufID, command, "setup")
		e.executeRaw(bufID, command)
		return
	}
	if !canTravel(state, dir) {
		logger.Debug("nothing to %s for buffer %d", command, bufID)
		return
	}

	if !e.directionEnabled(dir) {
		e.executeRaw(bufID, command)
		return
	}

	pair := e.store.Take(bufID)
	if pair == nil {
		logger.Debug("no snapshot pair for buffer %d, executing %s without highlight", bufID, command)
		e.executeRaw(bufID, command)
		return
	}

	result := e.differ.Calculate(pair.PreCode, pair.PostCode, text.Threshold{
		Line: e.cfg.Threshold.Line,
		Char: e.cfg.Threshold.Char,
	})
	if result == nil {
		e.executeRaw(bufID, command)
		return
	}

	hasRemoved := result.HasRemoved()
	hasAdded := result.HasAdded()
	duration := time.Duration(e.cfg.DurationMs) * time.Millisecond
	e.trace.Event("diff_computed", map[string]any{
		"buf":         bufID,
		"direction":   string(dir),
		"segments":    len(result.Changes),
		"has_removed": hasRemoved,
		"has_added":   hasAdded,
	})

	executed := false

	// Text about to disappear must be shown before it vanishes.
	if hasRemoved {
		if e.showHighlights(bufID, result, types.ChangeRemoved, pair.PreCode, e.cfg.HighlightGroups.Removed) {
			e.sleep(duration)
		}
		e.executeRaw(bufID, command)
		executed = true
		e.clearHighlights(bufID)
	}

	// Text that just appeared is shown after it exists.
	if hasAdded {
		if !executed {
			e.executeRaw(bufID, command)
			executed = true
		}
		if e.showHighlights(bufID, result, types.ChangeAdded, pair.PostCode, e.cfg.HighlightGroups.Added) {
			e.sleep(duration)
			e.clearHighlights(bufID)
		}
	}

	if !executed {
		e.executeRaw(bufID, command)
	}
}

// showHighlights runs range computation, adjustment, gap filling, and byte
// encoding for one change type, then paints. Returns whether anything was
// applied.
func (e *Engine) showHighlights(bufID int, result *text.DiffResult, ct types.ChangeType, reference, group string) bool {
	ranges := text.ComputeRanges(result, ct, reference)
	ranges = text.AdjustRanges(ranges, e.cfg.RangeAdjustments, e.cfg.Heuristics)
	ranges = text.FillRangeGaps(ranges, result.LineInfo)
	encoded := text.EncodeRanges(ranges)
	if len(encoded) == 0 {
		return false
	}

	if err := e.hl.ApplyHighlights(bufID, group, encoded); err != nil {
		e.report(err, bufID, "", "highlight")
		return false
	}
	e.trace.Event("highlights_applied", map[string]any{
		"buf":    bufID,
		"type":   string(ct),
		"group":  group,
		"ranges": len(encoded),
	})
	return true
}

// executeRaw issues the underlying undo/redo command. Failures are reported
// but never propagate; the queue must keep draining.
func (e *Engine) executeRaw(bufID int, command string) {
	if err := e.buf.ExecuteCommand(bufID, command); err != nil {
		e.report(err, bufID, command, "executeHighlightCommand")
	}
}

func (e *Engine) clearHighlights(bufID int) {
	if err := e.hl.ClearHighlights(bufID); err != nil {
		e.report(err, bufID, "", "highlight")
	}
}

// report hands a failure to the error reporter with its phase tag and
// returns the error for callers that propagate.
func (e *Engine) report(err error, bufID int, command, phase string) error {
	e.reporter.Report(err, types.ErrorContext{BufID: bufID, Command: command, Phase: phase})
	return err
}

func (e *Engine) directionEnabled(dir types.Direction) bool {
	if dir == types.DirectionRedo {
		return e.cfg.Enabled.Redo
	}
	return e.cfg.Enabled.Undo
}

// canTravel checks the undo-tree precondition for a direction. A false
// result is a silent no-op, not an error.
func canTravel(state types.UndoTreeState, dir types.Direction) bool {
	if !state.HasEntries {
		return false
	}
	if dir == types.DirectionRedo {
		return state.HasRedoTarget
	}
	return !state.IsAtRoot
}
