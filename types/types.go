package types

// ChangeType tags a highlight range as text that appeared or text that is
// about to disappear.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
)

// ColSpan is a half-open character-index interval [Start, End) into a line.
type ColSpan struct {
	Start int
	End   int
}

// Range is a single highlighted span: line, column interval, matched text,
// and added/removed tag. Line numbers are 1-indexed into the reference
// snapshot (the "after" text for added ranges, the "before" text for removed
// ranges). Ranges are value objects; adjustment stages return new ranges
// rather than mutating in place.
type Range struct {
	Lnum      int
	LineText  string
	Col       ColSpan
	MatchText string
	Type      ChangeType
}

// HighlightRange is the editor-facing form of a Range: the column interval
// converted to 0-based byte offsets, half-open. A zero-width span
// (ByteColStart == ByteColEnd == 0) marks a position whose line no longer
// exists rather than a span of text.
type HighlightRange struct {
	Lnum         int
	ByteColStart int
	ByteColEnd   int
}

// IsMarker reports whether the range is a zero-width position marker.
func (h HighlightRange) IsMarker() bool {
	return h.ByteColStart == 0 && h.ByteColEnd == 0
}

// UndoTreeState is the subset of the editor's undo-tree introspection the
// executor needs for its precondition checks.
type UndoTreeState struct {
	HasEntries    bool
	HasRedoTarget bool
	IsAtRoot      bool
}

// Direction selects which side of the undo tree a command walks.
type Direction string

const (
	DirectionUndo Direction = "undo"
	DirectionRedo Direction = "redo"
)

// ErrorContext attributes a collaborator failure to the phase where it
// occurred.
type ErrorContext struct {
	BufID   int
	Command string
	Phase   string
}

// BufferService is the host editor's buffer/text API, consumed as an opaque
// collaborator.
type BufferService interface {
	GetAllLines(bufID int) ([]string, error)
	ExecuteCommand(bufID int, cmd string) error
	GetUndoTreeState(bufID int) (UndoTreeState, error)
}

// HighlightSink renders and clears highlight ranges. The core never
// constructs host-language source strings; adapters own that.
type HighlightSink interface {
	ApplyHighlights(bufID int, group string, ranges []HighlightRange) error
	ClearHighlights(bufID int) error
}

// ErrorReporter receives structured errors from the orchestration layer.
// Presentation is external.
type ErrorReporter interface {
	Report(err error, ctx ErrorContext)
}
