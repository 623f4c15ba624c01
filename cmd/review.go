package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/canvasreview/internal/config"
	"github.com/canvasreview/internal/review"
)

// ReviewCommand returns the one-shot batch command: a single pass over one
// file's comment thread.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Run one review pass over a design file's comments",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall deadline for the batch pass",
				Value: 5 * time.Minute,
			},
			&cli.StringFlag{
				Name:    "ai",
				Aliases: []string{"a"},
				Usage:   "Override the AI backend to use",
			},
		},
		ArgsUsage: "FILE_KEY",
		Action:    runReview,
	}
}

func runReview(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: file key")
	}
	fileKey := c.Args().Get(0)

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if override := c.String("ai"); override != "" {
		cfg.General.DefaultAI = override
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	service, err := review.BuildService(ctx, cfg)
	if err != nil {
		return err
	}

	summary, err := service.Run(ctx, fileKey)
	if err != nil {
		return fmt.Errorf("review pass failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
