// Package text implements the diff-to-highlight pipeline: coordinate
// conversion, snapshot diffing, range computation, range adjustment, and
// byte-offset encoding for the editor's highlight API.
//
// Coordinate systems:
//
//  1. Character index: 0-based rune index into a line, used internally.
//  2. Byte column: 1-based UTF-8 byte offset, what the editor's cursor and
//     search APIs speak.
//  3. Grapheme cluster: the user-perceived character, used for safe slicing
//     so a combining mark is never separated from its base.
package text

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// ByteLength returns the UTF-8 byte length of text. A 3-byte hiragana
// character contributes 3, a 4-byte astral-plane emoji contributes 4.
func ByteLength(text string) int {
	return len(text)
}

// CharIndexToByteCol converts a 0-based character (rune) index into a
// 1-based byte column. Out-of-range indices clamp: index <= 0 maps to
// column 1, index past the end maps to ByteLength(text)+1.
func CharIndexToByteCol(text string, index int) int {
	if index <= 0 {
		return 1
	}
	runes := []rune(text)
	if index >= len(runes) {
		return len(text) + 1
	}
	return len(string(runes[:index])) + 1
}

// ByteColToCharIndex is the inverse of CharIndexToByteCol. col <= 1 maps to
// index 0; a column inside a multi-byte character maps to that character's
// index; a column past the end maps to the character count.
func ByteColToCharIndex(text string, col int) int {
	if col <= 1 {
		return 0
	}
	target := col - 1
	acc := 0
	idx := 0
	for _, r := range text {
		acc += len(string(r))
		if acc > target {
			return idx
		}
		if acc == target {
			return idx + 1
		}
		idx++
	}
	return idx
}

// CharIndexToByteOffset converts a 0-based character index into a 0-based
// byte offset, the form nvim's extmark API takes. Clamps like
// CharIndexToByteCol.
func CharIndexToByteOffset(text string, index int) int {
	return CharIndexToByteCol(text, index) - 1
}

// DisplayWidth returns the number of terminal cells text occupies: 0 for
// control and combining characters, 2 for wide East-Asian ideographs and
// common emoji, 1 otherwise.
func DisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// SplitGraphemes segments text into user-perceived characters. Combining
// marks merge into the preceding cluster.
func SplitGraphemes(text string) []string {
	if text == "" {
		return nil
	}
	var clusters []string
	state := -1
	for len(text) > 0 {
		cluster, rest, _, newState := uniseg.StepString(text, state)
		clusters = append(clusters, cluster)
		text = rest
		state = newState
	}
	return clusters
}

// SafeSlice slices text by grapheme-cluster index, preventing a combining
// mark from being separated from its base character. Out-of-range indices
// clamp; inverted ranges yield "".
func SafeSlice(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end < start {
		return ""
	}
	var b strings.Builder
	idx := 0
	state := -1
	for len(text) > 0 && idx < end {
		cluster, rest, _, newState := uniseg.StepString(text, state)
		if idx >= start {
			b.WriteString(cluster)
		}
		text = rest
		state = newState
		idx++
	}
	return b.String()
}

// CharCount returns the number of characters (runes) in text.
func CharCount(text string) int {
	return len([]rune(text))
}

// SliceChars slices text by character index, clamping out-of-range bounds.
func SliceChars(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// SplitLines splits text by newline and removes a trailing empty element if
// present, so "a\nb\n" and "a\nb" both yield two lines.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines joins buffer lines into one snapshot string with a trailing
// newline, matching how the editor reports whole-buffer text.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// CountLines returns the number of lines in a snapshot string, counting a
// final line without a trailing newline.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
