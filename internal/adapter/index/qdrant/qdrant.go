package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

// upsertBatchSize caps how many points go into a single upstream call.
const upsertBatchSize = 100

// Config holds the Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// Index is a minimal REST client to Qdrant using cosine distance.
//
// Like the pgvector backend, a failed initialization leaves the client
// degraded for the process lifetime: Ready reports false and operations
// return port.ErrIndexUnavailable.
type Index struct {
	cfg     Config
	client  *http.Client
	ready   bool
	initErr error
}

// New creates the collection if missing. On failure it returns a
// degraded index rather than an error.
func New(cfg Config) *Index {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	ix := &Index{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     cfg.Dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 for an existing collection with the same schema.
	if err := ix.doJSON(context.Background(), http.MethodPut,
		fmt.Sprintf("/collections/%s", cfg.Collection), body, nil); err != nil {
		ix.initErr = fmt.Errorf("ensure collection: %w", err)
		slog.Error("qdrant index degraded", "error", ix.initErr)
		return ix
	}

	ix.ready = true
	return ix
}

// Ready reports whether the collection was reachable at startup.
func (ix *Index) Ready() bool {
	return ix.ready
}

// InitError returns the initialization failure, if any.
func (ix *Index) InitError() error {
	return ix.initErr
}

// Upsert stores records in batches of upsertBatchSize. Batches are
// independent calls; a failure does not undo earlier batches.
func (ix *Index) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if !ix.ready {
		return port.ErrIndexUnavailable
	}

	for _, r := range records {
		if len(r.Vector) != ix.cfg.Dimension {
			return fmt.Errorf("%w: record %s has %d values, index expects %d",
				port.ErrDimensionMismatch, r.ID, len(r.Vector), ix.cfg.Dimension)
		}
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := ix.upsertBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}
	return nil
}

func (ix *Index) upsertBatch(ctx context.Context, records []domain.EmbeddingRecord) error {
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			// Qdrant point IDs must be integers or UUIDs; hash the
			// chunk ID and keep the original in the payload.
			"id":     pointID(r.ID),
			"vector": r.Vector,
			"payload": map[string]any{
				"chunk_id": r.ID,
				"country":  r.Tags.Country,
				"law_type": r.Tags.LawType,
				"language": r.Tags.Language,
				"text":     r.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return ix.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", ix.cfg.Collection), body, nil)
}

// Query performs a filtered similarity search over the collection.
func (ix *Index) Query(ctx context.Context, vector []float32, k int, filter domain.TagFilter) ([]domain.ScoredChunk, error) {
	if !ix.ready {
		return nil, port.ErrIndexUnavailable
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "country", "match": map[string]any{"value": filter.Country}},
				{"key": "law_type", "match": map[string]any{"value": filter.LawType}},
				{"key": "language", "match": map[string]any{"value": filter.Language}},
			},
		},
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := ix.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", ix.cfg.Collection), req, &resp); err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		text, _ := r.Payload["text"].(string)
		results = append(results, domain.ScoredChunk{Text: text, Score: r.Score})
	}
	return results, nil
}

// HasData probes the collection with a zero vector, unfiltered.
func (ix *Index) HasData(ctx context.Context) (bool, error) {
	if !ix.ready {
		return false, port.ErrIndexUnavailable
	}

	req := map[string]any{
		"vector":       make([]float32, ix.cfg.Dimension),
		"limit":        1,
		"with_payload": false,
	}
	var resp struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := ix.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", ix.cfg.Collection), req, &resp); err != nil {
		return false, fmt.Errorf("probe index: %w", err)
	}
	return len(resp.Result) > 0, nil
}

func (ix *Index) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, ix.cfg.URL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.cfg.APIKey != "" {
		req.Header.Set("api-key", ix.cfg.APIKey)
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, string(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// pointID derives a stable numeric Qdrant point ID from a chunk ID, so
// re-ingesting the same chunk overwrites its previous point.
func pointID(chunkID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(chunkID))
	return h.Sum64()
}
