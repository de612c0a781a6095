package port

import (
	"context"

	"github.com/nomadlaws/legalbot/internal/domain"
)

// VectorIndex abstracts the external vector-search service.
//
// Implementations must support a degraded mode: if initialization failed,
// Ready reports false and every operation returns ErrIndexUnavailable
// instead of panicking. Ingestion and querying are independently attempted
// even when the index was unreachable at startup.
type VectorIndex interface {
	// Ready reports whether the index client initialized successfully.
	Ready() bool

	// Upsert stores the given records, batching internally to respect
	// upstream quota limits. Batches are independent upstream calls;
	// a failure in one batch does not roll back earlier batches.
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error

	// Query returns up to k chunks nearest to vector, restricted to
	// records whose tags match filter exactly, ordered by decreasing
	// similarity. No matches yields an empty slice, not an error.
	Query(ctx context.Context, vector []float32, k int, filter domain.TagFilter) ([]domain.ScoredChunk, error)

	// HasData probes the index with a zero vector and reports whether
	// it holds any records at all.
	HasData(ctx context.Context) (bool, error)
}
