package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canvasreview/pkg/models"
)

// PostgresSink appends audit records to the analysis_audit table. Rows are
// write-once; nothing in the pipeline updates or deletes them.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to the database and ensures the audit table
// exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	sink := &PostgresSink{pool: pool}
	if err := sink.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_audit (
			id            UUID PRIMARY KEY,
			user_id       TEXT NOT NULL,
			file_key      TEXT NOT NULL,
			comment_id    TEXT NOT NULL,
			comment_text  TEXT NOT NULL,
			node_id       TEXT,
			node_image    TEXT,
			llm_response  TEXT NOT NULL,
			status        TEXT NOT NULL,
			error_message TEXT,
			metadata      JSONB,
			created_at    TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Append inserts one record.
func (s *PostgresSink) Append(ctx context.Context, record models.AuditRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_audit
			(id, user_id, file_key, comment_id, comment_text, node_id, node_image,
			 llm_response, status, error_message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID, record.UserID, record.FileKey, record.CommentID,
		record.CommentText, record.NodeID, record.NodeImage,
		record.LLMResponse, record.Status, record.ErrorMsg, metadata, createdAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
