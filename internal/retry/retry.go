package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures the bounded-retry wrapper. The delay between attempts
// is static: upstream calls here are either quick to recover or not worth
// hammering, and a fixed pause keeps batch timing predictable.
type Config struct {
	MaxAttempts int           `json:"max_attempts"` // total attempts, including the first (default: 3)
	Delay       time.Duration `json:"delay"`        // pause between attempts (default: 1s)
	LogRetries  bool          `json:"log_retries"`
}

// DefaultConfig returns retry settings for ordinary upstream fetches.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
		LogRetries:  true,
	}
}

// LLMConfig returns retry settings tuned for generative calls, which fail
// transiently more often and tolerate a longer pause.
func LLMConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		LogRetries:  true,
	}
}

func (c Config) normalized() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	return c
}

// Do executes op up to MaxAttempts times, pausing Delay between attempts.
// The final failure is returned unchanged; no error wrapping happens here
// so callers can classify the original cause.
func Do(ctx context.Context, cfg Config, op func() error) error {
	_, err := DoValue(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	cfg = cfg.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := op()
		if err == nil {
			if cfg.LogRetries && attempt > 1 {
				log.Debug().Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return v, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.LogRetries {
			log.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("delay", cfg.Delay).
				Msg("operation failed, retrying")
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}

	if cfg.LogRetries {
		log.Warn().Err(lastErr).Int("attempts", cfg.MaxAttempts).Msg("operation exhausted retries")
	}
	return zero, lastErr
}
