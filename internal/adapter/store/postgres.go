package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomadlaws/legalbot/internal/domain"
)

// PostgresStore persists the conversation log and request audit trail.
//
// The store is best-effort: if Postgres is unreachable at startup the
// service still answers questions, it just stops recording exchanges.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and ensures the log tables exist.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_exchanges (
			id         BIGSERIAL PRIMARY KEY,
			user_id    TEXT NOT NULL,
			question   TEXT NOT NULL,
			answer     TEXT NOT NULL,
			country    TEXT NOT NULL,
			law_type   TEXT NOT NULL,
			language   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id         BIGSERIAL PRIMARY KEY,
			user_id    TEXT NOT NULL,
			action     TEXT NOT NULL,
			resource   TEXT NOT NULL,
			details    TEXT NOT NULL,
			ip         TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertExchange records one question/answer pair.
func (s *PostgresStore) InsertExchange(ctx context.Context, e *domain.ChatExchange) error {
	query := `INSERT INTO chat_exchanges (user_id, question, answer, country, law_type, language)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, query,
		e.UserID, e.Question, e.Answer, e.Country, e.LawType, e.Language,
	); err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// ListExchanges returns the most recent exchanges for a user, newest first.
func (s *PostgresStore) ListExchanges(ctx context.Context, userID string, limit int) ([]domain.ChatExchange, error) {
	query := `SELECT id, user_id, question, answer, country, law_type, language, created_at
	          FROM chat_exchanges WHERE user_id = $1
	          ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatExchange
	for rows.Next() {
		var e domain.ChatExchange
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Question, &e.Answer,
			&e.Country, &e.LawType, &e.Language, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, details, ip, userAgent string) error {
	query := `INSERT INTO audit_log (user_id, action, resource, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.Exec(query, userID, action, resource, details, ip, userAgent); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// Open is a startup helper: the store is optional, so a failed open is
// logged and a nil store returned instead of aborting the process.
func Open(databaseURL string) *PostgresStore {
	s, err := NewPostgresStore(databaseURL)
	if err != nil {
		slog.Error("conversation log disabled", "error", err)
		return nil
	}
	return s
}
