package text

import (
	"highlightundo/types"
)

// EncodeRanges converts adjusted ranges' character columns into the 0-based
// byte offsets the editor's highlight API consumes. A removed range whose
// line no longer exists encodes as a zero-width marker at (0, 0): mark the
// position, there is no span left to cover.
func EncodeRanges(ranges []types.Range) []types.HighlightRange {
	out := make([]types.HighlightRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Type == types.ChangeRemoved && r.LineText == "" {
			out = append(out, types.HighlightRange{Lnum: r.Lnum})
			continue
		}
		out = append(out, types.HighlightRange{
			Lnum:         r.Lnum,
			ByteColStart: CharIndexToByteOffset(r.LineText, r.Col.Start),
			ByteColEnd:   CharIndexToByteOffset(r.LineText, r.Col.End),
		})
	}
	return out
}
