package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

func wordText(paragraphs int) string {
	para := strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20))
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = para
	}
	return strings.Join(parts, "\n\n")
}

func TestSplitLargeWordDocument(t *testing.T) {
	content := wordText(9) // ~8000 chars
	require.Greater(t, len(content), 7500)

	rule := DefaultRule(events.ContentTypeWord)
	res, err := Split("d1", content, rule)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.ChunkCount, 2)

	for i, c := range res.Chunks {
		assert.Equal(t, i, c.SequenceNumber)
		assert.Equal(t, "d1", c.ParentDocID)
		assert.Equal(t, rule.Strategy, c.Strategy)
		assert.Equal(t, rule.TargetChunkSize, c.TargetSize)
		assert.Equal(t, content[c.StartOffset:c.EndOffset], c.Content)
		assert.LessOrEqual(t, len(c.Content), rule.MaxChunkSize+rule.OverlapSize)
		assert.GreaterOrEqual(t, c.QualityScore, rule.MinChunkQuality)
		assert.LessOrEqual(t, c.QualityScore, 1.0)
	}
	assert.GreaterOrEqual(t, res.Coverage, rule.ContentCoverage)
	assert.Greater(t, res.AverageQuality, 0.0)
}

func TestChunkLinkedList(t *testing.T) {
	res, err := Split("d1", wordText(9), DefaultRule(events.ContentTypeWord))
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.ChunkCount, 2)

	chunks := res.Chunks
	assert.Empty(t, chunks[0].PreviousChunkID)
	assert.Empty(t, chunks[len(chunks)-1].NextChunkID)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].ID, chunks[i].PreviousChunkID)
		assert.Equal(t, chunks[i].ID, chunks[i-1].NextChunkID)
	}
	assert.Equal(t, "d1_chunk_0", chunks[0].ID)
}

func TestChunkOverlap(t *testing.T) {
	rule := DefaultRule(events.ContentTypeWord)
	res, err := Split("d1", wordText(9), rule)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.ChunkCount, 2)

	for i := 1; i < len(res.Chunks); i++ {
		prev, cur := res.Chunks[i-1], res.Chunks[i]
		assert.Greater(t, cur.StartOffset, prev.StartOffset)
		assert.Greater(t, cur.EndOffset, prev.EndOffset)
		if overlap := prev.EndOffset - cur.StartOffset; overlap > 0 {
			assert.LessOrEqual(t, overlap, rule.OverlapSize)
		}
	}
}

func TestSplitSmallContentSingleChunk(t *testing.T) {
	rule := DefaultRule(events.ContentTypeWord)
	res, err := Split("d1", "A short document.", rule)
	require.NoError(t, err)
	require.Equal(t, 1, res.ChunkCount)

	c := res.Chunks[0]
	assert.Equal(t, 0, c.SequenceNumber)
	assert.Equal(t, 0, c.StartOffset)
	assert.Empty(t, c.PreviousChunkID)
	assert.Empty(t, c.NextChunkID)
	assert.Equal(t, 1.0, res.Coverage)
}

func TestSplitMergesTinyTrailingParagraph(t *testing.T) {
	rule := DefaultRule(events.ContentTypeWord)
	content := wordText(2) + "\n\nFin."
	res, err := Split("d1", content, rule)
	require.NoError(t, err)

	last := res.Chunks[len(res.Chunks)-1]
	assert.GreaterOrEqual(t, len(last.Content), rule.MinChunkSize)
	assert.True(t, strings.HasSuffix(last.Content, "Fin."))
}

func TestSplitFixedSizeSheet(t *testing.T) {
	rule := DefaultRule(events.ContentTypeSheet)
	content := strings.Repeat("a1,b1,c1\n", 1000) // 9000 chars, no blank lines
	res, err := Split("s1", content, rule)
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.ChunkCount, 2)

	// Fixed-size spans partition the source with no overlap.
	for i := 1; i < len(res.Chunks); i++ {
		assert.Equal(t, res.Chunks[i-1].EndOffset, res.Chunks[i].StartOffset)
	}
	assert.GreaterOrEqual(t, res.Coverage, rule.ContentCoverage)
}

func TestShouldChunk(t *testing.T) {
	assert.True(t, ShouldChunk(events.ContentTypeWord, 8000))
	assert.False(t, ShouldChunk(events.ContentTypeWord, 3000))
	assert.True(t, ShouldChunk(events.ContentTypeSheet, 5001))
	assert.False(t, ShouldChunk(events.ContentTypeTask, 100000))
	assert.False(t, ShouldChunk("unknown", 100000))
}

func TestDefaultRulesPerType(t *testing.T) {
	word := DefaultRule(events.ContentTypeWord)
	assert.Equal(t, StrategyHybrid, word.Strategy)
	assert.True(t, word.PreserveSentences)

	sheet := DefaultRule(events.ContentTypeSheet)
	assert.Equal(t, StrategyFixedSize, sheet.Strategy)
	assert.Zero(t, sheet.OverlapSize)

	pres := DefaultRule(events.ContentTypePresentation)
	assert.Equal(t, StrategyPageLimits, pres.Strategy)

	fallback := DefaultRule("unknown")
	assert.Equal(t, StrategyFixedSize, fallback.Strategy)
}

func TestSplitEmptyContent(t *testing.T) {
	res, err := Split("d1", "", DefaultRule(events.ContentTypeWord))
	require.NoError(t, err)
	assert.Zero(t, res.ChunkCount)
	assert.Equal(t, 1.0, res.Coverage)
	assert.Zero(t, res.AverageQuality)
}
