package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nomadlaws/legalbot/internal/domain"
	"github.com/nomadlaws/legalbot/internal/port"
)

// upsertBatchSize caps how many records go into a single upstream call.
const upsertBatchSize = 100

// Index is a vector index backed by Postgres with the pgvector extension.
//
// Initialization failures leave the index in a degraded state: Ready
// reports false and every operation returns port.ErrIndexUnavailable.
// There is no automatic reconnect.
type Index struct {
	db        *sql.DB
	dimension int
	initErr   error
}

// New connects to Postgres and ensures the chunk table exists. On any
// failure it returns a degraded index rather than an error, since
// ingestion and querying may still be attempted independently.
func New(databaseURL string, dimension int) *Index {
	ix := &Index{dimension: dimension}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		ix.initErr = fmt.Errorf("open database: %w", err)
		slog.Error("pgvector index degraded", "error", ix.initErr)
		return ix
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		ix.initErr = fmt.Errorf("ping database: %w", err)
		slog.Error("pgvector index degraded", "error", ix.initErr)
		db.Close()
		return ix
	}

	if err := ensureSchema(ctx, db, dimension); err != nil {
		ix.initErr = err
		slog.Error("pgvector index degraded", "error", ix.initErr)
		db.Close()
		return ix
	}

	ix.db = db
	return ix
}

func ensureSchema(ctx context.Context, db *sql.DB, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS law_chunks (
			id       TEXT PRIMARY KEY,
			country  TEXT NOT NULL,
			law_type TEXT NOT NULL,
			language TEXT NOT NULL,
			content  TEXT NOT NULL,
			vector   vector(%d) NOT NULL
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS law_chunks_tags_idx ON law_chunks (country, law_type, language)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ready reports whether the index connected successfully at startup.
func (ix *Index) Ready() bool {
	return ix.db != nil
}

// InitError returns the initialization failure, if any.
func (ix *Index) InitError() error {
	return ix.initErr
}

// Close releases the database connection.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Upsert stores records in batches of upsertBatchSize. Each batch is its
// own transaction; a failing batch does not roll back batches already
// committed. Records keyed on an existing ID are overwritten.
func (ix *Index) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if ix.db == nil {
		return port.ErrIndexUnavailable
	}

	for _, r := range records {
		if len(r.Vector) != ix.dimension {
			return fmt.Errorf("%w: record %s has %d values, index expects %d",
				port.ErrDimensionMismatch, r.ID, len(r.Vector), ix.dimension)
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
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO law_chunks (id, country, law_type, language, content, vector)
		 VALUES ($1, $2, $3, $4, $5, $6::vector)
		 ON CONFLICT (id) DO UPDATE SET
		 	country  = EXCLUDED.country,
		 	law_type = EXCLUDED.law_type,
		 	language = EXCLUDED.language,
		 	content  = EXCLUDED.content,
		 	vector   = EXCLUDED.vector`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Tags.Country, r.Tags.LawType, r.Tags.Language, r.Text, vectorToString(r.Vector),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Query performs a cosine similarity search restricted to records whose
// three tags match the filter exactly.
func (ix *Index) Query(ctx context.Context, vector []float32, k int, filter domain.TagFilter) ([]domain.ScoredChunk, error) {
	if ix.db == nil {
		return nil, port.ErrIndexUnavailable
	}

	vectorStr := vectorToString(vector)
	query := `SELECT content, 1 - (vector <=> $1::vector) AS similarity
	          FROM law_chunks
	          WHERE country = $2 AND law_type = $3 AND language = $4
	          ORDER BY vector <=> $1::vector
	          LIMIT $5`

	rows, err := ix.db.QueryContext(ctx, query, vectorStr, filter.Country, filter.LawType, filter.Language, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	results := []domain.ScoredChunk{}
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(&sc.Text, &sc.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// HasData probes the index with a zero vector and reports whether any
// record came back.
func (ix *Index) HasData(ctx context.Context) (bool, error) {
	if ix.db == nil {
		return false, port.ErrIndexUnavailable
	}

	zero := vectorToString(make([]float32, ix.dimension))
	var content string
	err := ix.db.QueryRowContext(ctx,
		`SELECT content FROM law_chunks ORDER BY vector <=> $1::vector LIMIT 1`, zero,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe index: %w", err)
	}
	return true, nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
