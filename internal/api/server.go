// Package api exposes the HTTP surface of the server: video intake, session
// status, and YouTube helpers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/narravid/narravid-server/internal/config"
	"github.com/narravid/narravid-server/internal/media"
	"github.com/narravid/narravid-server/internal/pipeline"
	"github.com/narravid/narravid-server/internal/session"
	"github.com/narravid/narravid-server/internal/youtube"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Config     config.Config
	Processor  *pipeline.Processor
	Repository session.Repository
	FFmpeg     media.FFmpeg
	Downloader *youtube.Downloader // nil when yt-dlp is unavailable
	Tools      media.ToolStatus
	Logger     *slog.Logger
	StartTime  time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Config.Port()),
			Handler: router,
			// Large uploads stream through the body, so only bound the
			// header read and idle time.
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
