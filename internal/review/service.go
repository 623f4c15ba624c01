package review

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/canvasreview/internal/ai"
	"github.com/canvasreview/internal/audit"
	"github.com/canvasreview/internal/designctx"
	"github.com/canvasreview/internal/logging"
	"github.com/canvasreview/internal/mentions"
	"github.com/canvasreview/internal/retry"
	"github.com/canvasreview/pkg/models"
)

// CommentSource fetches the comment snapshot for one file. Authenticated
// with the reading user's credential.
type CommentSource interface {
	FetchComments(ctx context.Context, fileKey string) ([]models.Comment, error)
}

// ReplyPoster posts threaded replies. Authenticated with the bot
// credential, never the reader's.
type ReplyPoster interface {
	PostReply(ctx context.Context, fileKey, commentID, text string) (*models.Comment, error)
}

// Service runs one batch pass over one file's comments: scan for mentions,
// build visual context, ask the generative backend, post the reply, and
// audit every outcome. Comments are processed strictly sequentially; each
// comment's failure is isolated from the rest of the batch.
type Service struct {
	scanner   *mentions.Scanner
	extractor *designctx.Extractor
	provider  ai.Provider
	sink      audit.Sink
	reader    CommentSource
	poster    ReplyPoster

	userID       string
	fetchRetry   retry.Config
	analyzeRetry retry.Config
}

// Options configures a Service. All collaborator fields are required
// except Sink, which defaults to the log sink.
type Options struct {
	Scanner   *mentions.Scanner
	Extractor *designctx.Extractor
	Provider  ai.Provider
	Sink      audit.Sink
	Reader    CommentSource
	Poster    ReplyPoster

	UserID       string
	FetchRetry   retry.Config
	AnalyzeRetry retry.Config
}

// NewService validates the batch preconditions once, up front. A missing
// collaborator fails here, before any comment could be touched.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Scanner == nil:
		return nil, fmt.Errorf("mention scanner is required")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("context extractor is required")
	case opts.Provider == nil:
		return nil, fmt.Errorf("ai provider is required")
	case opts.Reader == nil:
		return nil, fmt.Errorf("comment source is required")
	case opts.Poster == nil:
		return nil, fmt.Errorf("reply poster is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = audit.NewLogSink()
	}
	if opts.FetchRetry.MaxAttempts == 0 {
		opts.FetchRetry = retry.DefaultConfig()
	}
	if opts.AnalyzeRetry.MaxAttempts == 0 {
		opts.AnalyzeRetry = retry.LLMConfig()
	}

	return &Service{
		scanner:      opts.Scanner,
		extractor:    opts.Extractor,
		provider:     opts.Provider,
		sink:         sink,
		reader:       opts.Reader,
		poster:       opts.Poster,
		userID:       opts.UserID,
		fetchRetry:   opts.FetchRetry,
		analyzeRetry: opts.AnalyzeRetry,
	}, nil
}

// Run executes one full pass over the file's current comment snapshot.
// Only a failed thread fetch aborts the run; every other failure is
// isolated to its comment and lands in the summary's skip list or as an
// apology reply.
func (s *Service) Run(ctx context.Context, fileKey string) (*models.RunSummary, error) {
	runID := uuid.NewString()
	runLog, err := logging.StartRunLogging(runID)
	if err != nil {
		log.Warn().Err(err).Msg("run log unavailable, continuing without it")
	}
	defer runLog.Close()

	runLog.Log("Batch pass over file %s (backend: %s)", fileKey, s.provider.Name())

	comments, err := retry.DoValue(ctx, s.fetchRetry, func() ([]models.Comment, error) {
		return s.reader.FetchComments(ctx, fileKey)
	})
	if err != nil {
		runLog.LogError("comment fetch", err)
		return nil, fmt.Errorf("fetch comment thread for %s: %w", fileKey, err)
	}

	actionable := s.scanner.FilterActionable(comments)
	runLog.Log("Fetched %d comments, %d actionable", len(comments), len(actionable))

	summary := &models.RunSummary{
		FileKey:       fileKey,
		TotalComments: len(comments),
		MentionsFound: len(actionable),
		Skipped:       []models.SkippedComment{},
		Replies:       []models.SentReply{},
	}

	for _, comment := range actionable {
		s.processComment(ctx, runLog, fileKey, comment, summary)
	}

	runLog.Log("Run complete: %d replies sent, %d skipped", summary.RepliesSent, len(summary.Skipped))
	return summary, nil
}

// processComment runs the per-comment pipeline: context, analysis, reply,
// audit. It never returns an error; outcomes land in the summary.
func (s *Service) processComment(ctx context.Context, runLog *logging.RunLogger, fileKey string, comment models.Comment, summary *models.RunSummary) {
	runLog.LogSection(fmt.Sprintf("Comment %s", comment.ID))

	dc := s.extractor.Extract(ctx, fileKey, comment)
	outcome := s.analyze(ctx, runLog, comment, dc)

	reply, postErr := s.poster.PostReply(ctx, fileKey, comment.ID, outcome.ReplyMessage)
	if postErr != nil {
		runLog.LogError("post reply", postErr)
		log.Error().Err(postErr).Str("comment_id", comment.ID).Msg("reply post failed, skipping comment")
		summary.Skipped = append(summary.Skipped, models.SkippedComment{
			CommentID: comment.ID,
			Reason:    fmt.Sprintf("post reply: %v", postErr),
		})
	} else {
		sent := models.SentReply{CommentID: comment.ID, Message: outcome.ReplyMessage}
		if reply != nil {
			sent.ReplyID = reply.ID
		}
		summary.Replies = append(summary.Replies, sent)
		summary.RepliesSent++
	}

	// The audit record is written no matter how analysis or posting went.
	if err := s.sink.Append(ctx, s.buildAuditRecord(fileKey, comment, dc, outcome, postErr)); err != nil {
		runLog.LogError("audit append", err)
		log.Error().Err(err).Str("comment_id", comment.ID).Msg("audit append failed")
	}
}

// analyze invokes the generative backend through the retry guard. Exhausted
// retries degrade to a user-facing apology; the comment still proceeds to
// reply and audit.
func (s *Service) analyze(ctx context.Context, runLog *logging.RunLogger, comment models.Comment, dc models.DesignContext) models.AnalysisOutcome {
	prompt := BuildPrompt(comment, dc)
	runLog.LogRequest(comment.ID, s.provider.Name(), prompt)

	req := ai.Request{Prompt: prompt}
	if dc.HasImage() {
		if decoded, err := base64.StdEncoding.DecodeString(dc.ImageBase64); err == nil {
			req.ImageJPEG = decoded
		}
	}

	text, err := retry.DoValue(ctx, s.analyzeRetry, func() (string, error) {
		return s.provider.Generate(ctx, req)
	})
	if err != nil {
		runLog.LogError("generative analysis", err)
		return models.AnalysisOutcome{
			Status:       models.AnalysisError,
			ErrorDetail:  err.Error(),
			ReplyMessage: apologyMessage(err),
		}
	}

	runLog.LogResponse(comment.ID, text)
	return models.AnalysisOutcome{Status: models.AnalysisSuccess, ReplyMessage: text}
}

func (s *Service) buildAuditRecord(fileKey string, comment models.Comment, dc models.DesignContext, outcome models.AnalysisOutcome, postErr error) models.AuditRecord {
	metadata := map[string]string{
		"node_name": dc.NodeName,
		"node_type": dc.NodeType,
	}
	for k, v := range dc.NodeProperties {
		metadata["node_"+k] = v
	}
	if comment.ClientMeta != nil {
		metadata["pin_corner"] = comment.ClientMeta.CommentPinCorner
		if comment.ClientMeta.NodeOffset != nil {
			metadata["node_offset"] = fmt.Sprintf("%.1f,%.1f", comment.ClientMeta.NodeOffset.X, comment.ClientMeta.NodeOffset.Y)
		}
		if comment.ClientMeta.RegionWidth > 0 {
			metadata["region"] = fmt.Sprintf("%.1fx%.1f", comment.ClientMeta.RegionWidth, comment.ClientMeta.RegionHeight)
		}
	}

	status := string(outcome.Status)
	errorMsg := outcome.ErrorDetail
	if postErr != nil {
		status = "post_failed"
		errorMsg = postErr.Error()
	}

	return models.AuditRecord{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		FileKey:     fileKey,
		CommentID:   comment.ID,
		CommentText: comment.Body(),
		NodeID:      dc.NodeID,
		NodeImage:   dc.ImageURL,
		LLMResponse: outcome.ReplyMessage,
		Status:      status,
		ErrorMsg:    errorMsg,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}
}

func apologyMessage(err error) string {
	return fmt.Sprintf("Sorry, I wasn't able to analyze this comment right now (%v). Please try mentioning me again in a bit.", err)
}
