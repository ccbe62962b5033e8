package text

import (
	"strings"
	"testing"

	"highlightundo/assert"
	"highlightundo/config"
	"highlightundo/types"
)

// stagesOnly disables the size heuristics so individual stages can be
// exercised in isolation.
var stagesOnly = config.Heuristics{Enabled: false}

func addedRange(lnum int, lineText string, start, end int, match string) types.Range {
	return types.Range{
		Lnum:      lnum,
		LineText:  lineText,
		Col:       types.ColSpan{Start: start, End: end},
		MatchText: match,
		Type:      types.ChangeAdded,
	}
}

func TestEvaluateChangeSize(t *testing.T) {
	th := config.Default().Heuristics.Thresholds

	tiny := []types.Range{addedRange(1, "abc", 0, 3, "abc")}
	assert.Equal(t, SizeTiny, EvaluateChangeSize(tiny, th), "3 chars is tiny")

	small := []types.Range{
		addedRange(1, "abcdefgh", 0, 8, "abcdefgh"),
		addedRange(2, "ab", 0, 2, "ab"),
	}
	assert.Equal(t, SizeSmall, EvaluateChangeSize(small, th), "10 chars is small")

	medium := []types.Range{addedRange(1, "", 0, 50, strings.Repeat("x", 50))}
	assert.Equal(t, SizeMedium, EvaluateChangeSize(medium, th), "50 chars is medium")

	large := []types.Range{addedRange(1, "", 0, 200, strings.Repeat("x", 200))}
	assert.Equal(t, SizeLarge, EvaluateChangeSize(large, th), "200 chars is large")
}

func TestSelectDisplayStrategy(t *testing.T) {
	st := config.Default().Heuristics.Strategies
	assert.Equal(t, config.StrategyCharacter, SelectDisplayStrategy(SizeTiny, st), "tiny")
	assert.Equal(t, config.StrategyWord, SelectDisplayStrategy(SizeSmall, st), "small")
	assert.Equal(t, config.StrategyLine, SelectDisplayStrategy(SizeMedium, st), "medium")
	assert.Equal(t, config.StrategyBlock, SelectDisplayStrategy(SizeLarge, st), "large")
}

func TestAdjustRanges_Empty(t *testing.T) {
	out := AdjustRanges(nil, config.RangeAdjustments{}, stagesOnly)
	assert.Len(t, 0, out, "no ranges in, no ranges out")
}

func TestAdjustRanges_TrailingNewlineStripped(t *testing.T) {
	in := []types.Range{addedRange(2, "hello", 0, 6, "hello\n")}
	out := AdjustRanges(in, config.RangeAdjustments{}, stagesOnly)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 0, End: 5}, out[0].Col, "newline removed from span")
	assert.Equal(t, "hello", out[0].MatchText, "newline removed from match")
}

func TestAdjustRanges_NewlineOnlyRangeDropped(t *testing.T) {
	in := []types.Range{addedRange(1, "text", 4, 5, "\n")}
	out := AdjustRanges(in, config.RangeAdjustments{}, stagesOnly)
	assert.Len(t, 0, out, "bare line break carries no visible content")
}

func TestAdjustRanges_LeadingNewlineReanchored(t *testing.T) {
	in := []types.Range{addedRange(3, "moved", 7, 13, "\nmoved")}
	out := AdjustRanges(in, config.RangeAdjustments{}, stagesOnly)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 0, End: 5}, out[0].Col, "re-anchored to column 0")
	assert.Equal(t, "moved", out[0].MatchText, "leading newline removed")
}

func TestAdjustRanges_FullLineDetection(t *testing.T) {
	// A change covering everything after the indentation expands to the
	// whole line
	in := []types.Range{addedRange(1, "    foo()", 4, 9, "foo()")}
	out := AdjustRanges(in, config.RangeAdjustments{}, stagesOnly)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 0, End: 9}, out[0].Col, "expanded to full line")
	assert.Equal(t, "    foo()", out[0].MatchText, "match is the whole line")
}

func TestAdjustRanges_FullLineNotDetectedMidLine(t *testing.T) {
	in := []types.Range{addedRange(1, "aa foo()", 3, 6, "foo")}
	out := AdjustRanges(in, config.RangeAdjustments{}, stagesOnly)
	assert.Equal(t, types.ColSpan{Start: 3, End: 6}, out[0].Col, "mid-line change unchanged")
}

func TestAdjustWordBoundaries_ExpandsToWord(t *testing.T) {
	in := []types.Range{addedRange(1, "hello beautiful world", 8, 11, "aut")}
	out := AdjustWordBoundaries(in)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 6, End: 15}, out[0].Col, "snapped to word")
	assert.Equal(t, "beautiful", out[0].MatchText, "whole word matched")
}

func TestAdjustWordBoundaries_SingleCharUntouched(t *testing.T) {
	in := []types.Range{addedRange(1, "hello world", 2, 3, "l")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 2, End: 3}, out[0].Col, "single char never expands")
}

func TestAdjustWordBoundaries_AlreadyOnBoundaries(t *testing.T) {
	in := []types.Range{addedRange(1, "hello world", 6, 11, "world")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 6, End: 11}, out[0].Col, "boundary-aligned range unchanged")
}

func TestAdjustWordBoundaries_ExpansionLimit(t *testing.T) {
	// Expanding 2 chars to a 26-char word exceeds the 5x cap
	in := []types.Range{addedRange(1, "abcdefghijklmnopqrstuvwxyz", 10, 12, "kl")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 10, End: 12}, out[0].Col, "oversized expansion discarded")
}

func TestAdjustWordBoundaries_CamelCaseCompound(t *testing.T) {
	// Landing on the "User" hump pulls in the full compound identifier
	in := []types.Range{addedRange(1, "getUserId()", 4, 8, "serI")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 0, End: 9}, out[0].Col, "whole identifier captured")
	assert.Equal(t, "getUserId", out[0].MatchText, "compound word matched")
}

func TestAdjustWordBoundaries_CJKRunAbsorbed(t *testing.T) {
	in := []types.Range{addedRange(1, "abc日本語def", 2, 4, "c日")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 0, End: 6}, out[0].Col, "adjacent ideographs absorbed")
	assert.Equal(t, "abc日本語", out[0].MatchText, "match covers the run")
}

func TestAdjustWordBoundaries_UnderscoreConnector(t *testing.T) {
	// A single underscore separates words, so "var" already sits on
	// boundaries
	in := []types.Range{addedRange(1, "my_var x", 3, 6, "var")}
	out := AdjustWordBoundaries(in)
	assert.Equal(t, types.ColSpan{Start: 3, End: 6}, out[0].Col, "underscore is a boundary")
}

func TestAdjustRanges_LeadingWhitespaceRun(t *testing.T) {
	adj := config.RangeAdjustments{HandleWhitespace: true}
	in := []types.Range{addedRange(1, "    code", 0, 2, "  ")}
	out := AdjustRanges(in, adj, stagesOnly)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 0, End: 4}, out[0].Col, "covers full indentation")
	assert.Equal(t, "    ", out[0].MatchText, "match is the indent")
}

func TestAdjustRanges_TrailingWhitespaceRun(t *testing.T) {
	adj := config.RangeAdjustments{HandleWhitespace: true}
	in := []types.Range{addedRange(1, "code   ", 5, 7, "  ")}
	out := AdjustRanges(in, adj, stagesOnly)
	assert.Equal(t, types.ColSpan{Start: 4, End: 7}, out[0].Col, "covers the trailing run")
}

func TestAdjustRanges_InteriorWhitespaceUntouched(t *testing.T) {
	adj := config.RangeAdjustments{HandleWhitespace: true}
	in := []types.Range{addedRange(1, "a   b", 2, 3, " ")}
	out := AdjustRanges(in, adj, stagesOnly)
	assert.Equal(t, types.ColSpan{Start: 2, End: 3}, out[0].Col, "interior whitespace unchanged")
}

func TestMergeOverlappingRanges_SameLine(t *testing.T) {
	line := "hello world"
	in := []types.Range{
		addedRange(1, line, 4, 8, "o wo"),
		addedRange(1, line, 0, 5, "hello"),
	}
	out := MergeOverlappingRanges(in)
	assert.Len(t, 1, out, "overlapping ranges merge")
	assert.Equal(t, types.ColSpan{Start: 0, End: 8}, out[0].Col, "merged span")
	assert.Equal(t, "hello wo", out[0].MatchText, "match re-derived from line")
}

func TestMergeOverlappingRanges_TouchingSpans(t *testing.T) {
	line := "abcdef"
	in := []types.Range{
		addedRange(1, line, 0, 3, "abc"),
		addedRange(1, line, 3, 6, "def"),
	}
	out := MergeOverlappingRanges(in)
	assert.Len(t, 1, out, "touching spans merge")
	assert.Equal(t, types.ColSpan{Start: 0, End: 6}, out[0].Col, "merged span")
}

func TestMergeOverlappingRanges_DifferentLinesKeptApart(t *testing.T) {
	in := []types.Range{
		addedRange(1, "aaa", 0, 3, "aaa"),
		addedRange(2, "bbb", 0, 3, "bbb"),
	}
	out := MergeOverlappingRanges(in)
	assert.Len(t, 2, out, "different lines never merge")
}

func TestMergeOverlappingRanges_DifferentTypesKeptApart(t *testing.T) {
	line := "abcdef"
	removed := addedRange(1, line, 2, 5, "cde")
	removed.Type = types.ChangeRemoved
	in := []types.Range{addedRange(1, line, 0, 3, "abc"), removed}
	out := MergeOverlappingRanges(in)
	assert.Len(t, 2, out, "different change types never merge")
}

func TestMergeOverlappingRanges_Idempotent(t *testing.T) {
	line := "hello world"
	in := []types.Range{
		addedRange(1, line, 0, 5, "hello"),
		addedRange(1, line, 4, 8, "o wo"),
	}
	once := MergeOverlappingRanges(in)
	twice := MergeOverlappingRanges(once)
	assert.Equal(t, once, twice, "merging is idempotent")
}

func TestFillRangeGaps_InteriorLineExpanded(t *testing.T) {
	info := LineInfo{AboveLine: 2, BelowLine: 5}
	in := []types.Range{addedRange(3, "full line", 0, 3, "ful")}
	out := FillRangeGaps(in, info)
	assert.Equal(t, types.ColSpan{Start: 0, End: 9}, out[0].Col, "interior line expands")
	assert.Equal(t, "full line", out[0].MatchText, "match is the whole line")
}

func TestFillRangeGaps_BoundaryLinesUntouched(t *testing.T) {
	info := LineInfo{AboveLine: 2, BelowLine: 5}
	in := []types.Range{
		addedRange(2, "top line", 0, 3, "top"),
		addedRange(5, "bottom line", 0, 6, "bottom"),
	}
	out := FillRangeGaps(in, info)
	assert.Equal(t, types.ColSpan{Start: 0, End: 3}, out[0].Col, "above boundary unchanged")
	assert.Equal(t, types.ColSpan{Start: 0, End: 6}, out[1].Col, "below boundary unchanged")
}

func TestFillRangeGaps_NonZeroStartUntouched(t *testing.T) {
	info := LineInfo{AboveLine: 1, BelowLine: 5}
	in := []types.Range{addedRange(3, "some line", 2, 5, "me ")}
	out := FillRangeGaps(in, info)
	assert.Equal(t, types.ColSpan{Start: 2, End: 5}, out[0].Col, "partial-line range unchanged")
}

func TestAdjustRanges_LineStrategyGroupsPerLine(t *testing.T) {
	heur := config.Heuristics{
		Enabled:    true,
		Thresholds: config.HeuristicThresholds{Tiny: 1, Small: 2, Medium: 3},
		Strategies: config.HeuristicStrategies{
			Tiny:   config.StrategyLine,
			Small:  config.StrategyLine,
			Medium: config.StrategyLine,
			Large:  config.StrategyLine,
		},
	}
	line := "abcdef"
	in := []types.Range{
		addedRange(1, line, 0, 2, "ab"),
		addedRange(1, line, 4, 6, "ef"),
	}
	out := AdjustRanges(in, config.RangeAdjustments{}, heur)
	assert.Len(t, 1, out, "grouped into one range")
	assert.Equal(t, types.ColSpan{Start: 0, End: 6}, out[0].Col, "span unions the columns")
}

func TestAdjustRanges_BlockStrategyExpandsLines(t *testing.T) {
	heur := config.Heuristics{
		Enabled:    true,
		Thresholds: config.HeuristicThresholds{Tiny: 1, Small: 2, Medium: 3},
		Strategies: config.HeuristicStrategies{
			Tiny:   config.StrategyBlock,
			Small:  config.StrategyBlock,
			Medium: config.StrategyBlock,
			Large:  config.StrategyBlock,
		},
	}
	in := []types.Range{
		addedRange(1, "first line", 2, 5, "rst"),
		addedRange(2, "second line", 0, 3, "sec"),
	}
	out := AdjustRanges(in, config.RangeAdjustments{}, heur)
	assert.Len(t, 2, out, "both lines kept")
	assert.Equal(t, types.ColSpan{Start: 0, End: 10}, out[0].Col, "first line full span")
	assert.Equal(t, types.ColSpan{Start: 0, End: 11}, out[1].Col, "second line full span")
}

func TestAdjustRanges_TinyChangeKeepsCharacterGranularity(t *testing.T) {
	heur := config.Default().Heuristics
	in := []types.Range{addedRange(1, "hello world", 2, 4, "ll")}
	out := AdjustRanges(in, config.RangeAdjustments{}, heur)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 2, End: 4}, out[0].Col, "tiny change untouched")
}

func TestAdjustRanges_SmallChangeSnapsToWords(t *testing.T) {
	heur := config.Default().Heuristics
	// 7 matched chars lands in the small bucket, which uses word display
	in := []types.Range{addedRange(1, "say greetings now", 5, 12, "reeting")}
	out := AdjustRanges(in, config.RangeAdjustments{}, heur)
	assert.Len(t, 1, out, "one range")
	assert.Equal(t, types.ColSpan{Start: 4, End: 13}, out[0].Col, "snapped to the word")
	assert.Equal(t, "greetings", out[0].MatchText, "whole word matched")
}
