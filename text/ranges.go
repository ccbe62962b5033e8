package text

import (
	"strings"

	"highlightundo/types"
)

// ComputeRanges walks the edit script and emits one Range per changed span
// of the requested type, anchored in the reference snapshot: the "after"
// text for added ranges, the "before" text for removed ranges. The running
// position only advances for segments that exist in the reference text, so
// interleaved added/removed segments of a replacement each anchor correctly
// against their own snapshot.
func ComputeRanges(result *DiffResult, changeType types.ChangeType, referenceText string) []types.Range {
	if result == nil {
		return nil
	}

	refLines := SplitLines(referenceText)
	var ranges []types.Range

	lnum := 1
	col := 0

	for _, seg := range result.Changes {
		matching := (changeType == types.ChangeAdded && seg.Kind == SegAdded) ||
			(changeType == types.ChangeRemoved && seg.Kind == SegRemoved)
		if !matching && seg.Kind != SegEqual {
			// Exclusively the opposite type: not present in the
			// reference text, no position advance.
			continue
		}

		if !matching {
			lnum, col = advancePosition(seg.Text, lnum, col)
			continue
		}

		parts := strings.Split(seg.Text, "\n")
		for i, part := range parts {
			last := i == len(parts)-1
			if i > 0 {
				lnum++
				col = 0
			}
			if last && part == "" {
				// Artifact of splitting a newline-terminated
				// segment; the line counter still advanced.
				continue
			}

			match := part
			end := col + CharCount(part)
			if !last {
				match += "\n"
				end++
			}

			ranges = append(ranges, types.Range{
				Lnum:      lnum,
				LineText:  lineAt(refLines, lnum),
				Col:       types.ColSpan{Start: col, End: end},
				MatchText: match,
				Type:      changeType,
			})

			if last {
				col = end
			}
		}
	}

	return ranges
}

// advancePosition moves the running (line, column) position across an
// unchanged segment of the reference text.
func advancePosition(text string, lnum, col int) (int, int) {
	nl := strings.Count(text, "\n")
	if nl == 0 {
		return lnum, col + CharCount(text)
	}
	tail := text[strings.LastIndexByte(text, '\n')+1:]
	return lnum + nl, CharCount(tail)
}

// lineAt returns the 1-indexed line, or "" when the line does not exist in
// the reference snapshot.
func lineAt(lines []string, lnum int) string {
	if lnum >= 1 && lnum <= len(lines) {
		return lines[lnum-1]
	}
	return ""
}
