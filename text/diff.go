package text

import (
	"hash/fnv"
	"strings"
	"sync"

	"highlightundo/logger"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MaxCacheEntries bounds the diff result cache; oldest-inserted entries are
// evicted on overflow.
const MaxCacheEntries = 100

// cacheKeyPrefixLen is how many leading bytes of each snapshot feed the
// cache key. Both full lengths are mixed in as well, which removes the
// shared-prefix collision class without hashing whole buffers.
const cacheKeyPrefixLen = 100

// SegmentKind classifies one edit-script segment.
type SegmentKind int

const (
	SegEqual SegmentKind = iota
	SegAdded
	SegRemoved
)

// Segment is one entry of a character-level edit script.
type Segment struct {
	Text string
	Kind SegmentKind
}

// Count returns the segment's length in characters.
func (s Segment) Count() int {
	return CharCount(s.Text)
}

// LineInfo bounds the contiguous region of the buffer containing all
// changes (1-indexed, inclusive). Unchanged lines strictly inside the
// region are candidates for full-line gap filling.
type LineInfo struct {
	AboveLine int
	BelowLine int
}

// DiffResult is a character-level edit script plus the line bounds of the
// changed region. Results handed out by the Differ may be shared by cache
// hits; callers must treat them as immutable.
type DiffResult struct {
	Changes  []Segment
	LineInfo LineInfo
}

// HasAdded reports whether the edit script contains any added segment.
func (r *DiffResult) HasAdded() bool {
	for _, seg := range r.Changes {
		if seg.Kind == SegAdded {
			return true
		}
	}
	return false
}

// HasRemoved reports whether the edit script contains any removed segment.
func (r *DiffResult) HasRemoved() bool {
	for _, seg := range r.Changes {
		if seg.Kind == SegRemoved {
			return true
		}
	}
	return false
}

// Threshold bounds the change size the differ will process. Exceeding
// either limit skips diffing entirely; highlighting a change that large is
// neither useful nor fast.
type Threshold struct {
	Line int
	Char int
}

// Differ computes edit scripts between whole-buffer snapshots, with a
// bounded result cache and fast paths for pure prefix/suffix edits.
type Differ struct {
	mu    sync.Mutex
	cache map[uint64]*DiffResult
	order []uint64
	dmp   *diffmatchpatch.DiffMatchPatch
}

// NewDiffer creates a Differ with an empty cache.
func NewDiffer() *Differ {
	return &Differ{
		cache: make(map[uint64]*DiffResult),
		dmp:   diffmatchpatch.New(),
	}
}

// Calculate produces the edit script between two snapshots, or nil when the
// texts are identical or the change exceeds the threshold. Cache hits
// return the prior result by reference.
func (d *Differ) Calculate(before, after string, th Threshold) *DiffResult {
	defer logger.Trace("diff.Calculate")()

	if before == after {
		return nil
	}

	charDelta := abs(CharCount(before) - CharCount(after))
	if charDelta > th.Char {
		logger.Debug("diff skipped: char delta %d exceeds threshold %d", charDelta, th.Char)
		return nil
	}
	lineDelta := abs(CountLines(before) - CountLines(after))
	if lineDelta > th.Line {
		logger.Debug("diff skipped: line delta %d exceeds threshold %d", lineDelta, th.Line)
		return nil
	}

	key := cacheKey(before, after)
	d.mu.Lock()
	if cached, ok := d.cache[key]; ok {
		d.mu.Unlock()
		return cached
	}
	d.mu.Unlock()

	var changes []Segment
	if fast, ok := fastPathSegments(before, after); ok {
		changes = fast
	} else {
		changes = d.charSegments(before, after)
	}

	result := &DiffResult{
		Changes:  changes,
		LineInfo: d.lineInfo(before, after),
	}

	d.mu.Lock()
	if len(d.order) >= MaxCacheEntries {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.cache, oldest)
	}
	d.cache[key] = result
	d.order = append(d.order, key)
	d.mu.Unlock()

	return result
}

// ClearCache drops all cached results.
func (d *Differ) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[uint64]*DiffResult)
	d.order = nil
}

// CacheLen returns the number of cached results.
func (d *Differ) CacheLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cache)
}

// fastPathSegments synthesizes the edit script for pure prefix/suffix
// insertions and deletions without running the general diff. Returns
// ok=false when the edit is not a pure prefix/suffix change.
func fastPathSegments(before, after string) ([]Segment, bool) {
	switch {
	case strings.HasPrefix(after, before):
		// Appended at the end
		return appendNonEmpty(nil,
			Segment{Text: before, Kind: SegEqual},
			Segment{Text: after[len(before):], Kind: SegAdded},
		), true
	case strings.HasSuffix(after, before):
		// Inserted at the start
		return appendNonEmpty(nil,
			Segment{Text: after[:len(after)-len(before)], Kind: SegAdded},
			Segment{Text: before, Kind: SegEqual},
		), true
	case strings.HasPrefix(before, after):
		// Deleted from the end
		return appendNonEmpty(nil,
			Segment{Text: after, Kind: SegEqual},
			Segment{Text: before[len(after):], Kind: SegRemoved},
		), true
	case strings.HasSuffix(before, after):
		// Deleted from the start
		return appendNonEmpty(nil,
			Segment{Text: before[:len(before)-len(after)], Kind: SegRemoved},
			Segment{Text: after, Kind: SegEqual},
		), true
	}
	return nil, false
}

func appendNonEmpty(dst []Segment, segs ...Segment) []Segment {
	for _, seg := range segs {
		if seg.Text != "" {
			dst = append(dst, seg)
		}
	}
	return dst
}

// charSegments runs the general character-level diff with semantic cleanup
// so edit boundaries land on human-intuitive positions.
func (d *Differ) charSegments(before, after string) []Segment {
	diffs := d.dmp.DiffMain(before, after, false)
	diffs = d.dmp.DiffCleanupSemantic(diffs)

	segments := make([]Segment, 0, len(diffs))
	for _, diff := range diffs {
		if diff.Text == "" {
			continue
		}
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			segments = append(segments, Segment{Text: diff.Text, Kind: SegEqual})
		case diffmatchpatch.DiffInsert:
			segments = append(segments, Segment{Text: diff.Text, Kind: SegAdded})
		case diffmatchpatch.DiffDelete:
			segments = append(segments, Segment{Text: diff.Text, Kind: SegRemoved})
		}
	}
	return segments
}

// lineInfo runs an independent line-level diff to bound the changed region.
// AboveLine is the line after the leading unchanged context; BelowLine is
// the total line count minus the trailing context, falling back to the full
// line count when the change touches the literal end of the buffer.
func (d *Differ) lineInfo(before, after string) LineInfo {
	chars1, chars2, lineArray := d.dmp.DiffLinesToChars(before, after)
	diffs := d.dmp.DiffMain(chars1, chars2, false)
	lineDiffs := d.dmp.DiffCharsToLines(diffs, lineArray)

	aboveLine := 1
	if len(lineDiffs) > 0 && lineDiffs[0].Type == diffmatchpatch.DiffEqual {
		aboveLine = CountLines(lineDiffs[0].Text) + 1
	}

	totalAfter := CountLines(after)
	trailing := 0
	if n := len(lineDiffs); n > 0 && lineDiffs[n-1].Type == diffmatchpatch.DiffEqual && n > 1 {
		trailing = CountLines(lineDiffs[n-1].Text)
	}
	belowLine := totalAfter - trailing
	if belowLine < aboveLine {
		belowLine = totalAfter
	}

	return LineInfo{AboveLine: aboveLine, BelowLine: belowLine}
}

// cacheKey hashes the first cacheKeyPrefixLen bytes of each snapshot plus
// both full lengths.
func cacheKey(before, after string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(prefixBytes(before)))
	h.Write([]byte{0})
	h.Write([]byte(prefixBytes(after)))
	h.Write([]byte{0, byte(len(before)), byte(len(before) >> 8), byte(len(before) >> 16), byte(len(before) >> 24)})
	h.Write([]byte{byte(len(after)), byte(len(after) >> 8), byte(len(after) >> 16), byte(len(after) >> 24)})
	return h.Sum64()
}

func prefixBytes(s string) string {
	if len(s) > cacheKeyPrefixLen {
		return s[:cacheKeyPrefixLen]
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
