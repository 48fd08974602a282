// Package chunker splits large documents into ordered, linked fragments for
// the search backend. Rules are per content type; the output obeys the
// contiguity and coverage invariants the loader relies on.
package chunker

import (
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Strategy selects how chunk boundaries are chosen.
type Strategy string

const (
	StrategySectionBoundaries Strategy = "section_boundaries"
	StrategyPageLimits        Strategy = "page_limits"
	StrategySemanticBreaks    Strategy = "semantic_breaks"
	StrategyFixedSize         Strategy = "fixed_size"
	StrategyHybrid            Strategy = "hybrid"
)

// Rule encodes the chunking policy for one content type. Sizes are in
// characters of the source text.
type Rule struct {
	Strategy Strategy

	MinChunkSize    int
	TargetChunkSize int
	MaxChunkSize    int
	OverlapSize     int

	PreserveSections   bool
	PreserveParagraphs bool
	PreserveSentences  bool

	HandleTables bool
	HandleLists  bool
	HandleImages bool

	// MinChunkQuality drops or merges chunks scoring below it.
	MinChunkQuality float64
	// ContentCoverage is the minimum share of the source the chunk union
	// must cover.
	ContentCoverage float64

	MaxProcessingTime time.Duration
	MaxBatchSize      int
}

// Chunking thresholds per content type. Documents at or below the threshold
// are indexed whole.
var thresholds = map[string]int{
	events.ContentTypeWord:         3000,
	events.ContentTypeSheet:        5000,
	events.ContentTypePresentation: 4000,
}

// ShouldChunk reports whether a document of the given content type and text
// length needs fragmenting. Task documents are never chunked.
func ShouldChunk(contentType string, contentLen int) bool {
	threshold, ok := thresholds[contentType]
	if !ok {
		return false
	}
	return contentLen > threshold
}

// DefaultRule returns the chunking policy for a content type. Unknown types
// get the fixed-size fallback.
func DefaultRule(contentType string) Rule {
	switch contentType {
	case events.ContentTypeWord:
		return Rule{
			Strategy:           StrategyHybrid,
			MinChunkSize:       500,
			TargetChunkSize:    2000,
			MaxChunkSize:       4000,
			OverlapSize:        200,
			PreserveSections:   true,
			PreserveParagraphs: true,
			PreserveSentences:  true,
			HandleTables:       true,
			HandleLists:        true,
			MinChunkQuality:    0.3,
			ContentCoverage:    0.95,
			MaxProcessingTime:  10 * time.Second,
			MaxBatchSize:       100,
		}
	case events.ContentTypeSheet:
		return Rule{
			Strategy:          StrategyFixedSize,
			MinChunkSize:      1000,
			TargetChunkSize:   3000,
			MaxChunkSize:      5000,
			OverlapSize:       0,
			HandleTables:      true,
			MinChunkQuality:   0.2,
			ContentCoverage:   0.99,
			MaxProcessingTime: 10 * time.Second,
			MaxBatchSize:      100,
		}
	case events.ContentTypePresentation:
		return Rule{
			Strategy:           StrategyPageLimits,
			MinChunkSize:       300,
			TargetChunkSize:    1500,
			MaxChunkSize:       3000,
			OverlapSize:        100,
			PreserveSections:   true,
			PreserveParagraphs: true,
			HandleImages:       true,
			MinChunkQuality:    0.3,
			ContentCoverage:    0.95,
			MaxProcessingTime:  10 * time.Second,
			MaxBatchSize:       100,
		}
	}
	return Rule{
		Strategy:          StrategyFixedSize,
		MinChunkSize:      500,
		TargetChunkSize:   2000,
		MaxChunkSize:      4000,
		OverlapSize:       0,
		MinChunkQuality:   0.2,
		ContentCoverage:   0.95,
		MaxProcessingTime: 10 * time.Second,
		MaxBatchSize:      100,
	}
}
