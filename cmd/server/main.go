package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/narravid/narravid-server/internal/analysis"
	"github.com/narravid/narravid-server/internal/api"
	"github.com/narravid/narravid-server/internal/cache"
	"github.com/narravid/narravid-server/internal/config"
	"github.com/narravid/narravid-server/internal/db"
	"github.com/narravid/narravid-server/internal/logging"
	"github.com/narravid/narravid-server/internal/media"
	"github.com/narravid/narravid-server/internal/pipeline"
	"github.com/narravid/narravid-server/internal/retention"
	"github.com/narravid/narravid-server/internal/session"
	"github.com/narravid/narravid-server/internal/youtube"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range config.ArtifactDirs(cfg) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())
	logger.Info("starting narravid server",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"port", cfg.Port(),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := session.NewRepository(database.Conn())
	if n, err := repo.FailInterrupted(context.Background()); err != nil {
		logger.Warn("cannot fail interrupted sessions", "error", err)
	} else if n > 0 {
		logger.Info("failed interrupted sessions from previous run", "count", n)
	}

	tools := media.ProbeTools()
	logger.Info("probed external tools",
		"ffmpeg", tools.Available["ffmpeg"],
		"ffprobe", tools.Available["ffprobe"],
		"yt_dlp", tools.Available["yt-dlp"],
	)
	if !tools.Ready() {
		return fmt.Errorf("ffmpeg and ffprobe are required on PATH")
	}

	ffmpeg, err := media.NewExec(logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	var client analysis.Client
	if cfg.OpenAIKey() != "" {
		client = analysis.NewOpenAIClient(cfg.OpenAIKey(), cfg.OpenAIBaseURL(), cfg.VisionModel(), cfg.SummaryModel())
		logger.Info("analysis backend configured",
			"vision_model", cfg.VisionModel(),
			"summary_model", cfg.SummaryModel(),
			"api_key", logging.SanitizeKey(cfg.OpenAIKey()),
		)
	} else {
		logger.Warn("no API key configured, running with fallback descriptions")
	}
	svc := analysis.NewService(client, logger)

	descCache := cache.New(cfg.CacheDir(), cfg.CacheEnabled(), logger)
	processor := pipeline.NewProcessor(cfg, logger, ffmpeg, svc, descCache, repo)

	var downloader *youtube.Downloader
	dl, err := youtube.NewDownloader(cfg.DownloadsDir(), logger)
	if err != nil {
		logger.Warn("YouTube intake disabled", "error", err)
	} else {
		downloader = dl
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := retention.NewSweeper(cfg, logger)
	go sweeper.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Config:     cfg,
		Processor:  processor,
		Repository: repo,
		FFmpeg:     ffmpeg,
		Downloader: downloader,
		Tools:      tools,
		Logger:     logger,
		StartTime:  startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	// Let in-flight sessions write their results before the process exits.
	done := make(chan struct{})
	go func() {
		processor.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached with sessions still running")
	}

	logger.Info("shutdown complete")
	return nil
}
