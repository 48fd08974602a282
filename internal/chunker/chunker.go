package chunker

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"
)

// ErrDeadlineExceeded is returned when a run exceeds the rule's processing
// cap. Partial output is discarded; the caller indexes the document whole.
var ErrDeadlineExceeded = errors.New("chunker: processing time cap exceeded")

// Chunk is one fragment of a parent document. Offsets index into the source
// text; PreviousChunkID/NextChunkID form a doubly-linked list with empty
// strings at the endpoints.
type Chunk struct {
	ID              string
	ParentDocID     string
	SequenceNumber  int
	Content         string
	StartOffset     int
	EndOffset       int
	PreviousChunkID string
	NextChunkID     string
	Strategy        Strategy
	TargetSize      int
	QualityScore    float64
}

// Result is the outcome of one chunking run.
type Result struct {
	Chunks         []Chunk
	ChunkCount     int
	SizeVariance   float64
	Coverage       float64
	AverageQuality float64
	ProcessingTime time.Duration
	HeapBytes      uint64
}

type span struct {
	start, end int
}

func (s span) length() int { return s.end - s.start }

// Split fragments content per rule and returns the ordered chunk list with
// run metrics. Content at or below the rule's max size comes back as a
// single chunk.
func Split(parentID, content string, rule Rule) (*Result, error) {
	started := time.Now()

	units := segment(content, rule)
	spans, err := accumulate(units, rule, started)
	if err != nil {
		return nil, err
	}
	spans = mergeSmall(spans, rule)

	chunks := make([]Chunk, 0, len(spans))
	for i, sp := range spans {
		start := sp.start
		if i > 0 && rule.OverlapSize > 0 {
			start = sp.start - rule.OverlapSize
			if start < spans[i-1].start {
				start = spans[i-1].start
			}
		}
		chunks = append(chunks, Chunk{
			ID:             fmt.Sprintf("%s_chunk_%d", parentID, i),
			ParentDocID:    parentID,
			SequenceNumber: i,
			Content:        content[start:sp.end],
			StartOffset:    start,
			EndOffset:      sp.end,
			Strategy:       rule.Strategy,
			TargetSize:     rule.TargetChunkSize,
			QualityScore:   quality(content[start:sp.end], rule, i == len(spans)-1),
		})
	}
	for i := range chunks {
		if i > 0 {
			chunks[i].PreviousChunkID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			chunks[i].NextChunkID = chunks[i+1].ID
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	res := &Result{
		Chunks:         chunks,
		ChunkCount:     len(chunks),
		SizeVariance:   sizeVariance(chunks),
		Coverage:       coverage(chunks, len(content)),
		AverageQuality: averageQuality(chunks),
		ProcessingTime: time.Since(started),
		HeapBytes:      ms.HeapAlloc,
	}
	return res, nil
}

// segment cuts the source into indivisible units honoring the rule's
// preservation flags. Units longer than the max chunk size are re-cut on
// sentence boundaries or fixed windows.
func segment(content string, rule Rule) []span {
	var units []span
	if rule.PreserveParagraphs {
		units = splitOn(content, "\n\n")
	} else {
		units = []span{{0, len(content)}}
	}

	out := make([]span, 0, len(units))
	for _, u := range units {
		if u.length() <= rule.MaxChunkSize {
			out = append(out, u)
			continue
		}
		if rule.PreserveSentences {
			out = append(out, splitSentences(content, u, rule)...)
		} else {
			out = append(out, splitFixed(u, rule.TargetChunkSize)...)
		}
	}
	return out
}

// splitOn returns the non-empty spans of s separated by sep, trimmed of
// surrounding whitespace.
func splitOn(s, sep string) []span {
	var out []span
	pos := 0
	for {
		idx := strings.Index(s[pos:], sep)
		end := len(s)
		if idx >= 0 {
			end = pos + idx
		}
		if sp, ok := trim(s, span{pos, end}); ok {
			out = append(out, sp)
		}
		if idx < 0 {
			return out
		}
		pos = end + len(sep)
	}
}

func trim(s string, sp span) (span, bool) {
	for sp.start < sp.end && isSpace(s[sp.start]) {
		sp.start++
	}
	for sp.end > sp.start && isSpace(s[sp.end-1]) {
		sp.end--
	}
	if sp.start >= sp.end {
		return span{}, false
	}
	return sp, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// splitSentences re-cuts an oversized unit on sentence terminators, falling
// back to fixed windows for a single run-on sentence.
func splitSentences(content string, u span, rule Rule) []span {
	var out []span
	start := u.start
	for i := u.start; i < u.end-1; i++ {
		if terminator(content[i]) && isSpace(content[i+1]) {
			if sp, ok := trim(content, span{start, i + 1}); ok {
				out = append(out, sp)
			}
			start = i + 1
		}
	}
	if sp, ok := trim(content, span{start, u.end}); ok {
		out = append(out, sp)
	}

	// A single sentence longer than the cap still has to be cut.
	final := make([]span, 0, len(out))
	for _, sp := range out {
		if sp.length() > rule.MaxChunkSize {
			final = append(final, splitFixed(sp, rule.TargetChunkSize)...)
		} else {
			final = append(final, sp)
		}
	}
	return final
}

func terminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func splitFixed(u span, window int) []span {
	if window <= 0 {
		return []span{u}
	}
	var out []span
	for start := u.start; start < u.end; start += window {
		end := start + window
		if end > u.end {
			end = u.end
		}
		out = append(out, span{start, end})
	}
	return out
}

// accumulate packs consecutive units into chunk spans, flushing when the
// running span reaches the target size or adding the next unit would exceed
// the max.
func accumulate(units []span, rule Rule, started time.Time) ([]span, error) {
	var spans []span
	var cur span
	open := false
	for _, u := range units {
		if rule.MaxProcessingTime > 0 && time.Since(started) > rule.MaxProcessingTime {
			return nil, ErrDeadlineExceeded
		}
		if !open {
			cur, open = u, true
			continue
		}
		if u.end-cur.start > rule.MaxChunkSize {
			spans = append(spans, cur)
			cur = u
			continue
		}
		cur.end = u.end
		if cur.length() >= rule.TargetChunkSize {
			spans = append(spans, cur)
			open = false
		}
	}
	if open {
		spans = append(spans, cur)
	}
	return spans, nil
}

// mergeSmall folds spans below the minimum size into an adjacent neighbor
// when the merged span stays within the cap.
func mergeSmall(spans []span, rule Rule) []span {
	if len(spans) < 2 {
		return spans
	}
	out := spans[:0]
	for _, sp := range spans {
		if len(out) > 0 && sp.length() < rule.MinChunkSize && sp.end-out[len(out)-1].start <= rule.MaxChunkSize {
			out[len(out)-1].end = sp.end
			continue
		}
		out = append(out, sp)
	}
	return out
}

// quality scores a chunk in [0,1]: size relative to target, with a penalty
// for cutting mid-sentence.
func quality(text string, rule Rule, last bool) float64 {
	if rule.TargetChunkSize <= 0 {
		return 1
	}
	score := float64(len(text)) / float64(rule.TargetChunkSize)
	if score > 1 {
		score = 1
	}
	if rule.PreserveSentences && !last && len(text) > 0 && !terminator(text[len(text)-1]) {
		score *= 0.9
	}
	return score
}

func sizeVariance(chunks []Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range chunks {
		mean += float64(len(c.Content))
	}
	mean /= float64(len(chunks))
	v := 0.0
	for _, c := range chunks {
		d := float64(len(c.Content)) - mean
		v += d * d
	}
	return v / float64(len(chunks))
}

// coverage is the share of the source text inside the union of chunk spans.
// Spans are ordered and may overlap by at most the overlap size.
func coverage(chunks []Chunk, total int) float64 {
	if total == 0 {
		return 1
	}
	covered := 0
	prevEnd := 0
	for _, c := range chunks {
		start := c.StartOffset
		if start < prevEnd {
			start = prevEnd
		}
		if c.EndOffset > start {
			covered += c.EndOffset - start
			prevEnd = c.EndOffset
		}
	}
	return math.Min(1, float64(covered)/float64(total))
}

func averageQuality(chunks []Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range chunks {
		sum += c.QualityScore
	}
	return sum / float64(len(chunks))
}
