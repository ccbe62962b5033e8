package buffer

import (
	"errors"
	"testing"

	"highlightundo/assert"
	"highlightundo/types"
)

func TestOperationsWithoutClient(t *testing.T) {
	b := New()

	_, err := b.GetAllLines(1)
	assert.Error(t, err, "GetAllLines without client")

	err = b.ExecuteCommand(1, "undo")
	assert.Error(t, err, "ExecuteCommand without client")

	_, err = b.GetUndoTreeState(1)
	assert.Error(t, err, "GetUndoTreeState without client")

	err = b.ApplyHighlights(1, "Group", []types.HighlightRange{{Lnum: 1, ByteColEnd: 3}})
	assert.Error(t, err, "ApplyHighlights without client")

	err = b.ClearHighlights(1)
	assert.Error(t, err, "ClearHighlights without client")

	_, err = b.CurrentBuffer()
	assert.Error(t, err, "CurrentBuffer without client")
}

func TestReportWithoutClient_DoesNotPanic(t *testing.T) {
	b := New()
	b.Report(errors.New("boom"), types.ErrorContext{BufID: 1, Command: "undo", Phase: "setup"})
}

func TestGetBool(t *testing.T) {
	m := map[string]any{"yes": true, "no": false, "num": 1}
	assert.True(t, getBool(m, "yes"), "true value")
	assert.False(t, getBool(m, "no"), "false value")
	assert.False(t, getBool(m, "num"), "non-bool value")
	assert.False(t, getBool(m, "missing"), "missing key")
}
