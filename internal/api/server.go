package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/canvasreview/pkg/models"
)

// Runner executes one batch pass over one file. The review service
// implements it.
type Runner interface {
	Run(ctx context.Context, fileKey string) (*models.RunSummary, error)
}

// Server exposes the batch entry point over HTTP: one request triggers one
// full pass over one file's comments.
type Server struct {
	echo   *echo.Echo
	port   int
	runner Runner
}

// NewServer creates the API server around a configured runner.
func NewServer(port int, runner Runner) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:   e,
		port:   port,
		runner: runner,
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")
	v1.POST("/files/:fileKey/review", s.reviewFile)
}

// reviewFile runs one batch pass. Anything past the precondition stage
// returns a 200 with the run summary; per-comment failures are inside the
// summary, never an HTTP error.
func (s *Server) reviewFile(c echo.Context) error {
	fileKey := c.Param("fileKey")
	if fileKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "fileKey is required",
		})
	}

	summary, err := s.runner.Run(c.Request().Context(), fileKey)
	if err != nil {
		log.Error().Err(err).Str("file_key", fileKey).Msg("batch pass failed")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, summary)
}

// Start begins serving and blocks until interrupted, then shuts down
// gracefully.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
