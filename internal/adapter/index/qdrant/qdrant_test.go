package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

func newTestIndex(t *testing.T, handler http.Handler) *Index {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		URL:        srv.URL,
		Collection: "law_chunks",
		Dimension:  3,
		Timeout:    time.Second,
	})
}

func TestNew_CreatesCollection(t *testing.T) {
	var created map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.Write([]byte(`{"result":true,"status":"ok"}`))
	})

	ix := newTestIndex(t, mux)
	require.True(t, ix.Ready())

	vectors, ok := created["vectors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestNew_UnreachableIsDegraded(t *testing.T) {
	ix := New(Config{
		URL:        "http://127.0.0.1:1",
		Collection: "law_chunks",
		Dimension:  3,
		Timeout:    200 * time.Millisecond,
	})

	assert.False(t, ix.Ready())
	require.Error(t, ix.InitError())

	err := ix.Upsert(context.Background(), nil)
	assert.ErrorIs(t, err, port.ErrIndexUnavailable)

	_, err = ix.Query(context.Background(), []float32{0, 0, 0}, 1, domain.TagFilter{})
	assert.ErrorIs(t, err, port.ErrIndexUnavailable)
}

func TestUpsert_SendsTaggedPoints(t *testing.T) {
	var upserted struct {
		Points []struct {
			ID      uint64         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("PUT /collections/law_chunks/points", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
		w.Write([]byte(`{"status":"ok"}`))
	})

	ix := newTestIndex(t, mux)
	tags := domain.TagFilter{Country: "georgia", LawType: "tax", Language: "ru"}
	err := ix.Upsert(context.Background(), []domain.EmbeddingRecord{
		{ID: tags.ChunkID(0), Vector: []float32{1, 0, 0}, Tags: tags, Text: "chunk text"},
	})
	require.NoError(t, err)

	require.Len(t, upserted.Points, 1)
	p := upserted.Points[0]
	assert.Equal(t, pointID("georgia-tax-ru-0"), p.ID)
	assert.Equal(t, "georgia-tax-ru-0", p.Payload["chunk_id"])
	assert.Equal(t, "georgia", p.Payload["country"])
	assert.Equal(t, "tax", p.Payload["law_type"])
	assert.Equal(t, "ru", p.Payload["language"])
	assert.Equal(t, "chunk text", p.Payload["text"])
}

func TestUpsert_RejectsDimensionMismatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	ix := newTestIndex(t, mux)
	err := ix.Upsert(context.Background(), []domain.EmbeddingRecord{
		{ID: "a-b-c-0", Vector: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, port.ErrDimensionMismatch)
}

func TestQuery_FiltersOnAllThreeTags(t *testing.T) {
	var search map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /collections/law_chunks/points/search", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&search))
		w.Write([]byte(`{"result":[
			{"score":0.92,"payload":{"text":"first"}},
			{"score":0.81,"payload":{"text":"second"}}
		]}`))
	})

	ix := newTestIndex(t, mux)
	got, err := ix.Query(context.Background(), []float32{1, 0, 0}, 2,
		domain.TagFilter{Country: "georgia", LawType: "tax", Language: "ru"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, domain.ScoredChunk{Text: "first", Score: 0.92}, got[0])
	assert.Equal(t, domain.ScoredChunk{Text: "second", Score: 0.81}, got[1])

	filter, ok := search["filter"].(map[string]any)
	require.True(t, ok)
	must, ok := filter["must"].([]any)
	require.True(t, ok)
	assert.Len(t, must, 3)
}

func TestQuery_NoMatchesIsEmptyNotError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /collections/law_chunks/points/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[]}`))
	})

	ix := newTestIndex(t, mux)
	got, err := ix.Query(context.Background(), []float32{0, 0, 0}, 3, domain.TagFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHasData_ZeroVectorProbe(t *testing.T) {
	var probe map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /collections/law_chunks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /collections/law_chunks/points/search", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&probe))
		w.Write([]byte(`{"result":[{"id":1,"score":0}]}`))
	})

	ix := newTestIndex(t, mux)
	has, err := ix.HasData(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, float64(1), probe["limit"])
	assert.Equal(t, []any{float64(0), float64(0), float64(0)}, probe["vector"])
}
