package domain

import (
	"fmt"
	"time"
)

// TagFilter is the exact-match predicate identifying a corpus slice.
// Every ingested chunk carries these three tags; queries retrieve only
// chunks whose tags match all three.
type TagFilter struct {
	Country  string `json:"country"`
	LawType  string `json:"law_type"`
	Language string `json:"language"`
}

// Title returns the document title used to condition document embeddings,
// e.g. "georgia-tax-ru".
func (t TagFilter) Title() string {
	return fmt.Sprintf("%s-%s-%s", t.Country, t.LawType, t.Language)
}

// ChunkID returns the index record ID for the i-th chunk of this slice.
// IDs are sequence-index based, so re-ingesting the same (unchanged)
// document overwrites rather than duplicates.
func (t TagFilter) ChunkID(i int) string {
	return fmt.Sprintf("%s-%s-%s-%d", t.Country, t.LawType, t.Language, i)
}

// EmbeddingRecord is one vectorized chunk as stored in the vector index.
type EmbeddingRecord struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Tags   TagFilter `json:"tags"`
	Text   string    `json:"text"`
}

// ScoredChunk is returned by a vector index query, ordered by decreasing
// similarity.
type ScoredChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// PipelineStatus reports operability of the retrieval pipeline's external
// dependencies. Probing a down dependency sets the flag, never panics.
type PipelineStatus struct {
	EmbedderReady bool   `json:"embedder_ready"`
	EmbedModel    string `json:"embed_model"`
	IndexReady    bool   `json:"index_ready"`
	IndexHasData  bool   `json:"index_has_data"`
	IndexError    string `json:"index_error,omitempty"`
}

// ChatExchange is one question/answer pair recorded in the conversation log.
type ChatExchange struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Question  string    `json:"question"   db:"question"`
	Answer    string    `json:"answer"     db:"answer"`
	Country   string    `json:"country"    db:"country"`
	LawType   string    `json:"law_type"   db:"law_type"`
	Language  string    `json:"language"   db:"language"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
