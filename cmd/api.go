package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/canvasreview/internal/api"
	"github.com/canvasreview/internal/config"
	"github.com/canvasreview/internal/review"
)

// APICommand returns the CLI command for starting the API server.
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the CanvasReview API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			service, err := review.BuildService(context.Background(), cfg)
			if err != nil {
				return err
			}

			port := cfg.Server.Port
			if override := c.Int("port"); override != 0 {
				port = override
			}

			fmt.Printf("Starting CanvasReview API server on port %d...\n", port)
			server := api.NewServer(port, service)
			return server.Start()
		},
	}
}
