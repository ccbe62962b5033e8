// Package buffer adapts the host Neovim instance to the engine's
// collaborator interfaces: buffer text access, undo-tree introspection,
// namespaced highlight painting, and error surfacing.
package buffer

import (
	"fmt"

	"highlightundo/logger"
	"highlightundo/types"

	"github.com/neovim/go-client/nvim"
)

// NamespaceName is the extmark namespace all highlights are painted under.
const NamespaceName = "highlightundo"

// NvimBuffer implements types.BufferService, types.HighlightSink, and
// types.ErrorReporter over a go-client connection. The client is stored
// per connection via SetClient, matching the daemon's one-engine,
// reconnecting-client lifecycle.
type NvimBuffer struct {
	client *nvim.Nvim
	nsID   int
}

// New creates an adapter without a connection; SetClient attaches one.
func New() *NvimBuffer {
	return &NvimBuffer{}
}

// SetClient stores the nvim client for all buffer operations and creates
// the highlight namespace on that connection.
func (b *NvimBuffer) SetClient(n *nvim.Nvim) error {
	b.client = n
	nsID, err := n.CreateNamespace(NamespaceName)
	if err != nil {
		return fmt.Errorf("creating namespace: %w", err)
	}
	b.nsID = nsID
	return nil
}

// GetAllLines reads the whole buffer.
func (b *NvimBuffer) GetAllLines(bufID int) ([]string, error) {
	defer logger.Trace("buffer.GetAllLines")()
	if b.client == nil {
		return nil, fmt.Errorf("nvim client not set")
	}

	var raw [][]byte
	batch := b.client.NewBatch()
	batch.BufferLines(nvim.Buffer(bufID), 0, -1, false, &raw)
	if err := batch.Execute(); err != nil {
		return nil, err
	}

	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = string(line)
	}
	return lines, nil
}

// ExecuteCommand runs an ex command in the context of the given buffer.
func (b *NvimBuffer) ExecuteCommand(bufID int, cmd string) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	batch := b.client.NewBatch()
	batch.ExecLua(`
		local buf, cmd = ...
		vim.api.nvim_buf_call(buf, function()
			vim.cmd(cmd)
		end)
	`, nil, bufID, cmd)
	return batch.Execute()
}

// GetUndoTreeState reads the undo-tree position for the executor's
// precondition checks.
func (b *NvimBuffer) GetUndoTreeState(bufID int) (types.UndoTreeState, error) {
	if b.client == nil {
		return types.UndoTreeState{}, fmt.Errorf("nvim client not set")
	}

	var result map[string]any
	batch := b.client.NewBatch()
	batch.ExecLua(`
		local buf = ...
		local tree
		vim.api.nvim_buf_call(buf, function()
			tree = vim.fn.undotree()
		end)
		return {
			has_entries = #tree.entries > 0,
			has_redo_target = tree.seq_cur < tree.seq_last,
			is_at_root = tree.seq_cur == 0,
		}
	`, &result, bufID)
	if err := batch.Execute(); err != nil {
		return types.UndoTreeState{}, err
	}

	return types.UndoTreeState{
		HasEntries:    getBool(result, "has_entries"),
		HasRedoTarget: getBool(result, "has_redo_target"),
		IsAtRoot:      getBool(result, "is_at_root"),
	}, nil
}

// ApplyHighlights paints the encoded ranges under the plugin namespace.
// Zero-width markers become position extmarks; spans become highlight
// extmarks. Lines are converted from the pipeline's 1-based numbering to
// the API's 0-based one.
func (b *NvimBuffer) ApplyHighlights(bufID int, group string, ranges []types.HighlightRange) error {
	defer logger.Trace("buffer.ApplyHighlights")()
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	if len(ranges) == 0 {
		return nil
	}

	buf := nvim.Buffer(bufID)
	batch := b.client.NewBatch()
	markIDs := make([]int, len(ranges))
	for i, r := range ranges {
		line := r.Lnum - 1
		if line < 0 {
			continue
		}
		opts := map[string]any{
			"end_col": r.ByteColEnd,
			"strict":  false,
		}
		if !r.IsMarker() {
			opts["hl_group"] = group
		}
		batch.SetBufferExtmark(buf, b.nsID, line, r.ByteColStart, opts, &markIDs[i])
	}
	return batch.Execute()
}

// ClearHighlights removes every highlight in the plugin namespace.
func (b *NvimBuffer) ClearHighlights(bufID int) error {
	if b.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	return b.client.ClearBufferNamespace(nvim.Buffer(bufID), b.nsID, 0, -1)
}

// Report logs the failure and surfaces it in the editor via vim.notify.
// Notification failures are swallowed; error reporting must never cascade.
func (b *NvimBuffer) Report(err error, ctx types.ErrorContext) {
	logger.Error("phase %s failed (buf=%d cmd=%q): %v", ctx.Phase, ctx.BufID, ctx.Command, err)

	if b.client == nil {
		return
	}
	batch := b.client.NewBatch()
	batch.ExecLua(`
		local msg = ...
		vim.notify(msg, vim.log.levels.WARN)
	`, nil, fmt.Sprintf("highlightundo: %s failed: %v", ctx.Phase, err))
	if execErr := batch.Execute(); execErr != nil {
		logger.Debug("error notification failed: %v", execErr)
	}
}

// CurrentBuffer returns the focused buffer's id.
func (b *NvimBuffer) CurrentBuffer() (int, error) {
	if b.client == nil {
		return 0, fmt.Errorf("nvim client not set")
	}
	buf, err := b.client.CurrentBuffer()
	if err != nil {
		return 0, err
	}
	return int(buf), nil
}

func getBool(m map[string]any, key string) bool {
	if val, ok := m[key].(bool); ok {
		return val
	}
	return false
}
