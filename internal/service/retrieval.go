package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nomadlaws/legalbot/internal/chunker"
	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

const (
	// ingestBatchSize bounds memory use and API burst rate during
	// document ingestion.
	ingestBatchSize = 5

	// interBatchDelay is a fixed pause between ingestion batches as
	// simple rate limiting against upstream quotas.
	interBatchDelay = time.Second
)

// Retriever composes the chunker, the embedding backend and the vector
// index into the ingestion and retrieval operations.
type Retriever struct {
	chunker   *chunker.Chunker
	embedder  port.Embedder
	index     port.VectorIndex
	dimension int

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewRetriever wires the retrieval pipeline.
func NewRetriever(c *chunker.Chunker, embedder port.Embedder, index port.VectorIndex, dimension int) *Retriever {
	return &Retriever{
		chunker:   c,
		embedder:  embedder,
		index:     index,
		dimension: dimension,
		sleep:     time.Sleep,
	}
}

// LoadDocument chunks, embeds and upserts a document tagged with the
// given filter. Chunks are processed in fixed-size batches with a fixed
// delay in between. A chunk whose embedding fails is logged and skipped;
// a batch whose upsert fails is logged and does not halt later batches.
// The return value reports whether the run completed, not that every
// chunk made it in.
func (r *Retriever) LoadDocument(ctx context.Context, content string, tags domain.TagFilter) bool {
	chunks := r.chunker.Split(content)
	slog.Info("split document into chunks", "chunks", len(chunks), "tags", tags.Title())
	if len(chunks) == 0 {
		return true
	}

	totalBatches := (len(chunks) + ingestBatchSize - 1) / ingestBatchSize
	title := tags.Title()

	for start := 0; start < len(chunks); start += ingestBatchSize {
		end := start + ingestBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchNum := start/ingestBatchSize + 1
		slog.Info("processing batch", "batch", batchNum, "of", totalBatches)

		var records []domain.EmbeddingRecord
		for i, chunk := range chunks[start:end] {
			vector, err := r.embedder.Embed(ctx, chunk, port.IntentDocument, title)
			if err != nil {
				slog.Error("embedding chunk failed, skipping", "chunk", start+i, "error", err)
				continue
			}
			if len(vector) != r.dimension {
				slog.Error("embedding dimension mismatch, skipping",
					"chunk", start+i, "got", len(vector), "want", r.dimension)
				continue
			}
			records = append(records, domain.EmbeddingRecord{
				ID:     tags.ChunkID(start + i),
				Vector: vector,
				Tags:   tags,
				Text:   chunk,
			})
		}

		if len(records) > 0 {
			if err := r.index.Upsert(ctx, records); err != nil {
				slog.Error("batch upsert failed", "batch", batchNum, "error", err)
			} else {
				slog.Info("uploaded batch", "batch", batchNum, "records", len(records))
			}
		}

		if end < len(chunks) {
			r.sleep(interBatchDelay)
		}
	}

	slog.Info("document ingestion complete", "tags", title)
	return true
}

// RelevantContext embeds the query and returns the text of the top-k
// nearest chunks matching the tags exactly. Any failure degrades to an
// empty result rather than an error.
func (r *Retriever) RelevantContext(ctx context.Context, query string, tags domain.TagFilter, topK int) []string {
	vector, err := r.embedder.Embed(ctx, query, port.IntentQuery, "")
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		return nil
	}

	results, err := r.index.Query(ctx, vector, topK, tags)
	if err != nil {
		slog.Error("index query failed", "error", err)
		return nil
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return texts
}

// Status probes the pipeline's external dependencies. A down dependency
// is reported, never propagated.
func (r *Retriever) Status(ctx context.Context) domain.PipelineStatus {
	st := domain.PipelineStatus{
		EmbedderReady: r.embedder != nil,
		IndexReady:    r.index.Ready(),
	}
	if r.embedder != nil {
		st.EmbedModel = r.embedder.ModelName()
	}
	if !st.IndexReady {
		return st
	}

	hasData, err := r.index.HasData(ctx)
	if err != nil {
		slog.Error("index probe failed", "error", err)
		st.IndexError = err.Error()
		return st
	}
	st.IndexHasData = hasData
	return st
}
