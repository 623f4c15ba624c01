package review

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/canvasreview/internal/ai"
	"github.com/canvasreview/internal/ai/langchain"
	"github.com/canvasreview/internal/audit"
	"github.com/canvasreview/internal/config"
	"github.com/canvasreview/internal/designctx"
	"github.com/canvasreview/internal/imaging"
	"github.com/canvasreview/internal/mentions"
	"github.com/canvasreview/internal/providers/figma"
	"github.com/canvasreview/internal/retry"
)

// BuildService wires a Service from validated configuration: two design-API
// clients (reader and bot identities), the extraction chain, the configured
// generative backend, and the audit sink.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reader := figma.NewClient(cfg.Figma.BaseURL, cfg.Figma.ReaderToken)
	poster := figma.NewClient(cfg.Figma.BaseURL, cfg.Figma.BotToken)

	factory := ai.NewDefaultFactory()
	langchain.Register(factory)
	provider, err := factory.Create(ctx, cfg.General.DefaultAI, cfg.AI[cfg.General.DefaultAI])
	if err != nil {
		return nil, fmt.Errorf("create AI backend: %w", err)
	}

	var sink audit.Sink
	if cfg.Database.URL != "" {
		pgSink, err := audit.NewPostgresSink(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("create audit sink: %w", err)
		}
		sink = pgSink
	} else {
		log.Info().Msg("no database configured, auditing to log")
		sink = audit.NewLogSink()
	}

	retryCfg := retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       time.Duration(cfg.Retry.DelayMillis) * time.Millisecond,
		LogRetries:  true,
	}

	return NewService(Options{
		Scanner:      mentions.NewScanner(cfg.Agent.Mentions, cfg.Agent.BotID),
		Extractor:    designctx.NewExtractor(reader, imaging.NewMaterializer(reader)),
		Provider:     provider,
		Sink:         sink,
		Reader:       reader,
		Poster:       poster,
		UserID:       cfg.Agent.BotID,
		FetchRetry:   retryCfg,
		AnalyzeRetry: retryCfg,
	})
}
