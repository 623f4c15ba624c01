package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/canvasreview/pkg/models"
)

// Sink receives append-only audit records, one per processed comment.
// Append failures are logged by the commit pipeline but never block it.
type Sink interface {
	Append(ctx context.Context, record models.AuditRecord) error
}

// LogSink writes audit records to the structured log. It is the fallback
// when no database is configured.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Append(_ context.Context, record models.AuditRecord) error {
	log.Info().
		Str("audit_id", record.ID).
		Str("file_key", record.FileKey).
		Str("comment_id", record.CommentID).
		Str("node_id", record.NodeID).
		Str("status", record.Status).
		Str("error", record.ErrorMsg).
		Int("response_len", len(record.LLMResponse)).
		Msg("audit record")
	return nil
}
