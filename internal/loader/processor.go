// Package loader is the vespa-loader processing core: it turns domain
// events into search-backend writes, fans large documents out into
// fragments, and guards against stale updates overwriting newer state.
package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/chunker"
	"github.com/corpus-self/ingest-fabric/internal/docfactory"
	"github.com/corpus-self/ingest-fabric/internal/events"
	"github.com/corpus-self/ingest-fabric/internal/vespa"
)

// Processor handles one event class-agnostic load into the search backend.
type Processor struct {
	writer vespa.Writer
	logger *zap.Logger
}

// NewProcessor builds a Processor writing through w.
func NewProcessor(w vespa.Writer, logger *zap.Logger) *Processor {
	return &Processor{writer: w, logger: logger.Named("loader")}
}

// Result summarises one processed event. It is recorded by the idempotency
// kernel and served to redeliveries.
type Result struct {
	DocID         string `json:"doc_id"`
	Action        string `json:"action"` // upserted, deleted, skipped_stale
	FragmentCount int    `json:"fragment_count,omitempty"`
}

// Process applies ev to the search backend.
func (p *Processor) Process(ctx context.Context, ev events.Event) (Result, error) {
	if ev.Env().Operation == events.OperationDelete {
		return p.delete(ctx, ev)
	}
	return p.upsert(ctx, ev)
}

func (p *Processor) upsert(ctx context.Context, ev events.Event) (Result, error) {
	env := ev.Env()

	// An older version must never overwrite a newer one: deliveries can
	// arrive out of order across redeliveries and backfills.
	existing, found, err := p.writer.Get(ctx, ev.EntityID())
	if err != nil {
		return Result{}, fmt.Errorf("loader: stale check %s: %w", ev.EntityID(), err)
	}
	if found && existing.UpdatedAt.Time.After(env.LastUpdated.Time) {
		p.logger.Debug("stale update skipped",
			zap.String("doc_id", ev.EntityID()),
			zap.Time("incoming", env.LastUpdated.Time),
			zap.Time("stored", existing.UpdatedAt.Time))
		return Result{DocID: ev.EntityID(), Action: "skipped_stale"}, nil
	}

	doc, err := docfactory.Build(ev)
	if err != nil {
		return Result{}, err
	}

	fragments := 0
	if de, ok := ev.(*events.DocumentEvent); ok && chunker.ShouldChunk(de.Document.ContentType, len(de.Document.Content)) {
		fragments, err = p.writeFragments(ctx, de, &doc)
		if err != nil {
			return Result{}, err
		}
	}

	if err := p.writer.Upsert(ctx, doc); err != nil {
		return Result{}, fmt.Errorf("loader: upsert %s: %w", doc.DocID, err)
	}
	return Result{DocID: doc.DocID, Action: "upserted", FragmentCount: fragments}, nil
}

// writeFragments chunks the document content and upserts one fragment record
// per chunk. The count lands in the parent's metadata so a later delete can
// fan out without re-chunking.
func (p *Processor) writeFragments(ctx context.Context, de *events.DocumentEvent, parent *docfactory.Document) (int, error) {
	rule := chunker.DefaultRule(de.Document.ContentType)
	res, err := chunker.Split(de.Document.ID, de.Document.Content, rule)
	if err != nil {
		// A chunking failure falls back to indexing the document whole.
		p.logger.Warn("chunking failed, indexing whole",
			zap.String("doc_id", de.Document.ID),
			zap.Error(err))
		return 0, nil
	}

	for _, c := range res.Chunks {
		if err := p.writer.Upsert(ctx, fragmentDocument(parent, c)); err != nil {
			return 0, fmt.Errorf("loader: upsert fragment %s: %w", c.ID, err)
		}
	}
	parent.Metadata["fragment_count"] = len(res.Chunks)

	p.logger.Info("document fragmented",
		zap.String("doc_id", de.Document.ID),
		zap.Int("fragments", res.ChunkCount),
		zap.Float64("coverage", res.Coverage),
		zap.Duration("took", res.ProcessingTime))
	return len(res.Chunks), nil
}

// fragmentDocument derives the search-backend record for one chunk from its
// parent document.
func fragmentDocument(parent *docfactory.Document, c chunker.Chunk) docfactory.Document {
	seq := c.SequenceNumber
	return docfactory.Document{
		DocID:            c.ID,
		SourceType:       string(events.TypeDocumentFragment),
		UserID:           parent.UserID,
		Provider:         parent.Provider,
		Title:            parent.Title,
		Content:          c.Content,
		Folder:           parent.DocID,
		CreatedAt:        parent.CreatedAt,
		UpdatedAt:        parent.UpdatedAt,
		ParentDocID:      parent.DocID,
		FragmentSequence: &seq,
		Metadata: map[string]any{
			"strategy":          string(c.Strategy),
			"target_size":       c.TargetSize,
			"quality_score":     c.QualityScore,
			"start_offset":      c.StartOffset,
			"end_offset":        c.EndOffset,
			"previous_chunk_id": c.PreviousChunkID,
			"next_chunk_id":     c.NextChunkID,
		},
	}
}

func (p *Processor) delete(ctx context.Context, ev events.Event) (Result, error) {
	docID := ev.EntityID()

	fragments := 0
	if _, ok := ev.(*events.DocumentEvent); ok {
		existing, found, err := p.writer.Get(ctx, docID)
		if err != nil {
			return Result{}, fmt.Errorf("loader: fragment lookup %s: %w", docID, err)
		}
		if found {
			fragments = fragmentCount(existing)
			for i := 0; i < fragments; i++ {
				fragID := fmt.Sprintf("%s_chunk_%d", docID, i)
				if err := p.writer.Delete(ctx, fragID); err != nil {
					return Result{}, fmt.Errorf("loader: delete fragment %s: %w", fragID, err)
				}
			}
		}
	}

	if err := p.writer.Delete(ctx, docID); err != nil {
		return Result{}, fmt.Errorf("loader: delete %s: %w", docID, err)
	}
	return Result{DocID: docID, Action: "deleted", FragmentCount: fragments}, nil
}

// fragmentCount reads the stored fragment fan-out. JSON decoding turns the
// stored int into a float64.
func fragmentCount(doc *docfactory.Document) int {
	switch v := doc.Metadata["fragment_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
