package text

import (
	"sort"
	"strings"
	"unicode"

	"highlightundo/config"
	"highlightundo/types"
)

// wordExpansionLimit caps word-boundary expansion at this multiple of the
// original match length; larger expansions are discarded to prevent runaway
// over-highlighting on pathological input.
const wordExpansionLimit = 5

// SizeClass buckets the total matched character count of a change.
type SizeClass int

const (
	SizeTiny SizeClass = iota
	SizeSmall
	SizeMedium
	SizeLarge
)

// String returns the class name used in logs.
func (c SizeClass) String() string {
	switch c {
	case SizeTiny:
		return "tiny"
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	default:
		return "unknown"
	}
}

// EvaluateChangeSize sums matched characters across all ranges and
// classifies the total against the configured thresholds.
func EvaluateChangeSize(ranges []types.Range, th config.HeuristicThresholds) SizeClass {
	total := 0
	for _, r := range ranges {
		total += CharCount(r.MatchText)
	}
	switch {
	case total <= th.Tiny:
		return SizeTiny
	case total <= th.Small:
		return SizeSmall
	case total <= th.Medium:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// SelectDisplayStrategy maps a size class to its configured display
// strategy.
func SelectDisplayStrategy(class SizeClass, st config.HeuristicStrategies) config.Strategy {
	switch class {
	case SizeTiny:
		return st.Tiny
	case SizeSmall:
		return st.Small
	case SizeMedium:
		return st.Medium
	default:
		return st.Large
	}
}

// AdjustRanges runs the full adjustment pipeline over a range list. Each
// stage builds new ranges; the input list and its elements are never
// mutated.
func AdjustRanges(ranges []types.Range, adj config.RangeAdjustments, heur config.Heuristics) []types.Range {
	if len(ranges) == 0 {
		return nil
	}

	wordStage := adj.AdjustWordBoundaries

	if heur.Enabled {
		class := EvaluateChangeSize(ranges, heur.Thresholds)
		switch SelectDisplayStrategy(class, heur.Strategies) {
		case config.StrategyCharacter:
			// Pass through at character granularity.
		case config.StrategyWord:
			wordStage = true
		case config.StrategyLine:
			ranges = groupByLine(ranges)
		case config.StrategyBlock:
			ranges = expandBlocks(ranges)
		}
	}

	ranges = adjustNewlineBoundaries(ranges)
	ranges = detectFullLineChanges(ranges)
	if wordStage {
		ranges = AdjustWordBoundaries(ranges)
	}
	if adj.HandleWhitespace {
		ranges = adjustWhitespaceRuns(ranges)
	}
	return MergeOverlappingRanges(ranges)
}

// adjustNewlineBoundaries normalizes ranges whose match begins or ends with
// a line break. A trailing newline is stripped; a range that was only a
// line break carries no visible content and is dropped, including the
// zero-width end-of-previous-line case left open by leading-newline
// stripping.
func adjustNewlineBoundaries(ranges []types.Range) []types.Range {
	out := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		if strings.HasSuffix(r.MatchText, "\n") {
			stripped := strings.TrimSuffix(r.MatchText, "\n")
			if stripped == "" {
				continue
			}
			r.MatchText = stripped
			r.Col.End--
		} else if strings.HasPrefix(r.MatchText, "\n") && r.Lnum > 1 {
			stripped := strings.TrimPrefix(r.MatchText, "\n")
			if stripped == "" {
				continue
			}
			r.MatchText = stripped
			r.Col = types.ColSpan{Start: 0, End: CharCount(stripped)}
		}
		out = append(out, r)
	}
	return out
}

// detectFullLineChanges expands a range that already reaches the end of its
// line and is preceded only by whitespace into the entire line, indentation
// included. Deleting "function foo() {" and leaving its leading spaces
// behind reads more naturally as a whole-line deletion.
func detectFullLineChanges(ranges []types.Range) []types.Range {
	out := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		lineLen := CharCount(r.LineText)
		if lineLen > 0 && r.Col.End >= lineLen && r.Col.Start > 0 &&
			isAllWhitespace(SliceChars(r.LineText, 0, r.Col.Start)) {
			r.Col = types.ColSpan{Start: 0, End: lineLen}
			r.MatchText = r.LineText
		}
		out = append(out, r)
	}
	return out
}

// AdjustWordBoundaries snaps each range outward to the nearest word
// boundaries. Expansion never shrinks a range, is skipped when both ends
// already sit on boundaries, and is discarded when the result would exceed
// wordExpansionLimit times the original match length.
func AdjustWordBoundaries(ranges []types.Range) []types.Range {
	out := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, adjustWordBoundary(r))
	}
	return out
}

func adjustWordBoundary(r types.Range) types.Range {
	origLen := CharCount(r.MatchText)
	if origLen <= 1 {
		return r
	}

	runes := []rune(r.LineText)
	start, end := r.Col.Start, r.Col.End
	if start > len(runes) {
		start = len(runes)
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return r
	}

	if boundaryAt(runes, start) && boundaryAt(runes, end) {
		return r
	}

	for start > 0 && !boundaryAt(runes, start) {
		start--
	}
	for end < len(runes) && !boundaryAt(runes, end) {
		end++
	}

	// Expanding into the trailing hump of a camelCase compound ("Id" of
	// "userId") captures the whole compound word.
	if start > 0 && start < len(runes) && unicode.IsUpper(runes[start]) && unicode.IsLower(runes[start-1]) {
		for start > 0 && unicode.IsLower(runes[start-1]) {
			start--
		}
		if start > 0 && unicode.IsUpper(runes[start-1]) {
			start--
		}
	}

	// Each CJK character is its own word, but a match containing CJK
	// absorbs the adjacent run so a partial ideograph sequence is not
	// split mid-phrase.
	if containsCJK(r.MatchText) {
		for start > 0 && isCJK(runes[start-1]) {
			start--
		}
		for end < len(runes) && isCJK(runes[end]) {
			end++
		}
	}

	if end-start > wordExpansionLimit*origLen {
		return r
	}

	r.Col = types.ColSpan{Start: start, End: end}
	r.MatchText = string(runes[start:end])
	return r
}

// boundaryAt reports whether a word boundary exists at character position
// pos of the line (between pos-1 and pos). Start and end of line are always
// boundaries.
func boundaryAt(runes []rune, pos int) bool {
	if pos <= 0 || pos >= len(runes) {
		return true
	}
	return boundaryBetween(runes[pos-1], runes[pos])
}

func boundaryBetween(a, b rune) bool {
	if unicode.IsSpace(a) || unicode.IsSpace(b) {
		return true
	}

	// Underscore and hyphen separate words unless doubled, so "__" reads
	// as one separator rather than two boundaries.
	aConn := a == '_' || a == '-'
	bConn := b == '_' || b == '-'
	if aConn && bConn {
		return false
	}
	if aConn || bConn {
		return true
	}

	if isPunctOrOperator(a) || isPunctOrOperator(b) {
		return true
	}
	if isCJK(a) || isCJK(b) {
		return true
	}
	if unicode.IsLower(a) && unicode.IsUpper(b) {
		return true
	}
	aDigit, bDigit := unicode.IsDigit(a), unicode.IsDigit(b)
	aLetter, bLetter := unicode.IsLetter(a), unicode.IsLetter(b)
	if (aLetter && bDigit) || (aDigit && bLetter) {
		return true
	}
	return false
}

func isPunctOrOperator(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// adjustWhitespaceRuns special-cases ranges that match only whitespace: a
// run anchored at column 0 grows to cover the full leading indentation, and
// a run reaching the end of line grows back to the start of the trailing
// whitespace. Interior whitespace is left untouched.
func adjustWhitespaceRuns(ranges []types.Range) []types.Range {
	out := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.MatchText == "" || !isAllWhitespace(r.MatchText) {
			out = append(out, r)
			continue
		}

		runes := []rune(r.LineText)
		start, end := r.Col.Start, r.Col.End

		if start == 0 {
			indent := 0
			for indent < len(runes) && unicode.IsSpace(runes[indent]) {
				indent++
			}
			if indent > end {
				end = indent
			}
		}

		if end >= len(runes) || isAllWhitespace(string(runes[min(end, len(runes)):])) {
			trail := len(runes)
			for trail > 0 && unicode.IsSpace(runes[trail-1]) {
				trail--
			}
			if trail < start {
				start = trail
			}
		}

		if start != r.Col.Start || end != r.Col.End {
			r.Col = types.ColSpan{Start: start, End: end}
			r.MatchText = SliceChars(r.LineText, start, end)
		}
		out = append(out, r)
	}
	return out
}

// MergeOverlappingRanges sorts ranges by (line, start column) and merges
// consecutive ranges on the same line with the same change type whose spans
// touch or overlap, re-deriving the match from the line text. Ranges on
// different lines or with different change types are never merged.
func MergeOverlappingRanges(ranges []types.Range) []types.Range {
	if len(ranges) <= 1 {
		return ranges
	}

	sorted := make([]types.Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Lnum != sorted[j].Lnum {
			return sorted[i].Lnum < sorted[j].Lnum
		}
		return sorted[i].Col.Start < sorted[j].Col.Start
	})

	out := []types.Range{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &out[len(out)-1]
		if cur.Lnum == next.Lnum && cur.Type == next.Type && cur.Col.End >= next.Col.Start {
			if next.Col.End > cur.Col.End {
				cur.Col.End = next.Col.End
			}
			cur.MatchText = SliceChars(cur.LineText, cur.Col.Start, cur.Col.End)
			continue
		}
		out = append(out, next)
	}
	return out
}

// FillRangeGaps expands column-0 ranges lying strictly inside the changed
// region to full-line spans. Character diffs under-report lines fully
// enclosed in a change (LCS unioning); the line-level bounds recover them.
// Ranges exactly on the boundary lines pass through unexpanded since they
// may be partial-line changes.
func FillRangeGaps(ranges []types.Range, info LineInfo) []types.Range {
	out := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Lnum > info.AboveLine && r.Lnum < info.BelowLine && r.Col.Start == 0 {
			if lineLen := CharCount(r.LineText); lineLen > r.Col.End {
				r.Col.End = lineLen
				r.MatchText = r.LineText
			}
		}
		out = append(out, r)
	}
	return out
}

// groupByLine implements the "line" display strategy: all ranges sharing a
// line and change type collapse into one range spanning the union of their
// columns.
func groupByLine(ranges []types.Range) []types.Range {
	type key struct {
		lnum int
		typ  types.ChangeType
	}
	grouped := make(map[key]types.Range)
	var order []key

	for _, r := range ranges {
		k := key{r.Lnum, r.Type}
		if existing, ok := grouped[k]; ok {
			if r.Col.Start < existing.Col.Start {
				existing.Col.Start = r.Col.Start
			}
			if r.Col.End > existing.Col.End {
				existing.Col.End = r.Col.End
			}
			existing.MatchText = SliceChars(existing.LineText, existing.Col.Start, existing.Col.End)
			grouped[k] = existing
		} else {
			grouped[k] = r
			order = append(order, k)
		}
	}

	out := make([]types.Range, 0, len(order))
	for _, k := range order {
		out = append(out, grouped[k])
	}
	return out
}

// expandBlocks implements the "block" display strategy: runs of adjacent
// lines (gap <= 1) with the same change type expand every member range to
// cover its entire line.
func expandBlocks(ranges []types.Range) []types.Range {
	sorted := make([]types.Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Lnum != sorted[j].Lnum {
			return sorted[i].Lnum < sorted[j].Lnum
		}
		return sorted[i].Col.Start < sorted[j].Col.Start
	})

	out := make([]types.Range, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Type == sorted[i].Type && sorted[j].Lnum-sorted[j-1].Lnum <= 1 {
			j++
		}
		for _, r := range sorted[i:j] {
			r.Col = types.ColSpan{Start: 0, End: CharCount(r.LineText)}
			r.MatchText = r.LineText
			out = append(out, r)
		}
		i = j
	}
	return out
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
