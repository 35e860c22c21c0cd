package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/narravid/narravid-server/internal/analysis"
	"github.com/narravid/narravid-server/internal/cache"
	"github.com/narravid/narravid-server/internal/config"
	"github.com/narravid/narravid-server/internal/logging"
	"github.com/narravid/narravid-server/internal/media"
	"github.com/narravid/narravid-server/internal/session"
)

// Processor runs one video through extraction, analysis, and timeline
// assembly, persisting the result per session.
type Processor struct {
	cfg      config.Config
	logger   *slog.Logger
	ffmpeg   media.FFmpeg
	analysis *analysis.Service
	cache    *cache.Cache
	repo     session.Repository

	wg sync.WaitGroup
}

func NewProcessor(cfg config.Config, logger *slog.Logger, ffmpeg media.FFmpeg, svc *analysis.Service, c *cache.Cache, repo session.Repository) *Processor {
	return &Processor{
		cfg:      cfg,
		logger:   logger,
		ffmpeg:   ffmpeg,
		analysis: svc,
		cache:    c,
		repo:     repo,
	}
}

// Start registers a session and processes the video in the background.
// The returned session ID can be polled via the status endpoint.
func (p *Processor) Start(ctx context.Context, videoPath, source string) (string, error) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()
	s := &session.Session{
		ID:        sessionID,
		Source:    source,
		Status:    session.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.Create(ctx, s); err != nil {
		return "", fmt.Errorf("cannot register session: %w", err)
	}
	// The working dir marks the session as in progress on disk before
	// extraction produces anything.
	if err := os.MkdirAll(FramesDir(p.cfg, sessionID), 0755); err != nil {
		return "", fmt.Errorf("cannot create session working dir: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Detach from the request context; processing outlives the request.
		if _, err := p.Process(context.Background(), sessionID, videoPath, source); err != nil {
			logging.WithSessionID(p.logger, sessionID).Error("processing failed", "error", err)
		}
	}()
	return sessionID, nil
}

// Wait blocks until all background sessions finish. Used at shutdown.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Process runs the full pipeline synchronously for an already-registered
// session and returns the persisted result.
func (p *Processor) Process(ctx context.Context, sessionID, videoPath, source string) (*session.Result, error) {
	log := logging.WithSessionID(p.logger, sessionID)
	start := time.Now()

	result, err := p.run(ctx, log, sessionID, videoPath, source)
	if err != nil {
		if markErr := p.repo.MarkFailed(ctx, sessionID, err.Error()); markErr != nil {
			log.Error("cannot mark session failed", "error", markErr)
		}
		if !p.cfg.RetainFrames() {
			if rmErr := os.RemoveAll(p.sessionFramesDir(sessionID)); rmErr != nil {
				log.Warn("cannot remove frame artifacts", "error", rmErr)
			}
		}
		return nil, err
	}

	log.Info("session complete",
		"frames", result.FrameCount,
		"timeline_entries", len(result.Timeline),
		"has_audio", result.HasAudio,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (p *Processor) run(ctx context.Context, log *slog.Logger, sessionID, videoPath, source string) (*session.Result, error) {
	info, err := p.ffmpeg.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	duration := info.DurationSeconds
	if duration > p.cfg.MaxDuration() {
		duration = p.cfg.MaxDuration()
	}

	// Audio and frame extraction proceed in parallel. The audio branch is
	// best-effort: a missing or broken track only drops the transcript.
	var (
		segments []analysis.TranscriptSegment
		hasAudio bool
		frames   []Frame
		frameErr error
		branchWG sync.WaitGroup
	)

	if info.HasAudio {
		branchWG.Add(1)
		go func() {
			defer branchWG.Done()
			audioPath := filepath.Join(p.cfg.AudioDir(), sessionID+".mp3")
			if err := p.ffmpeg.ExtractAudio(ctx, videoPath, audioPath, p.cfg.AudioBitrate(), duration); err != nil {
				log.Warn("audio extraction failed, continuing without transcript", "error", err)
				return
			}
			t := p.analysis.Transcribe(ctx, audioPath, duration)
			segments = t.Segments
			hasAudio = len(segments) > 0
			if !p.cfg.RetainFrames() {
				if err := os.Remove(audioPath); err != nil {
					log.Warn("cannot remove audio artifact", "error", err)
				}
			}
		}()
	}

	branchWG.Add(1)
	go func() {
		defer branchWG.Done()
		frames, frameErr = p.extractFrames(ctx, sessionID, videoPath)
	}()

	branchWG.Wait()

	if frameErr != nil {
		return nil, frameErr
	}

	significant := SelectSignificant(frames, p.cfg.DiffThreshold(), log)
	log.Info("selected significant frames", "total", len(frames), "significant", len(significant))

	p.describeFrames(ctx, log, significant)

	timeline := AssembleTimeline(significant, segments)

	descriptions := make([]string, len(significant))
	for i, f := range significant {
		descriptions[i] = f.Description
	}
	summary := p.analysis.Summarize(ctx, descriptions)

	result := &session.Result{
		SessionID:             sessionID,
		Source:                source,
		Summary:               summary,
		Timeline:              timeline,
		FrameCount:            len(frames),
		SignificantFrameCount: len(significant),
		HasAudio:              hasAudio,
		VideoDuration:         info.DurationSeconds,
		ProcessedDuration:     duration,
		Truncated:             info.DurationSeconds > p.cfg.MaxDuration(),
		GeneratedAt:           time.Now().UTC(),
	}
	if err := p.writeResult(result); err != nil {
		return nil, err
	}

	if err := p.repo.MarkCompleted(ctx, sessionID, len(frames), len(significant), summary, hasAudio); err != nil {
		return nil, fmt.Errorf("cannot mark session completed: %w", err)
	}

	if !p.cfg.RetainFrames() {
		if err := os.RemoveAll(p.sessionFramesDir(sessionID)); err != nil {
			log.Warn("cannot remove frame artifacts", "error", err)
		}
	}
	return result, nil
}

func (p *Processor) extractFrames(ctx context.Context, sessionID, videoPath string) ([]Frame, error) {
	files, err := p.ffmpeg.ExtractFrames(ctx, videoPath, p.sessionFramesDir(sessionID),
		p.cfg.FrameInterval(), p.cfg.MaxDuration())
	if err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	frames := make([]Frame, len(files))
	for i, f := range files {
		frames[i] = Frame{
			Index:       f.Index,
			Path:        f.Path,
			TimeSeconds: float64(f.Index-1) * p.cfg.FrameInterval(),
			Size:        f.Size,
		}
	}
	return frames, nil
}

// describeFrames fills in descriptions for the selected frames, consulting
// the cache first and fanning uncached work out to a bounded worker pool.
func (p *Processor) describeFrames(ctx context.Context, log *slog.Logger, frames []Frame) {
	workers := p.cfg.BatchSize()
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range frames {
		f := &frames[i]

		fp := cache.Fingerprint(f.Path, f.Size)
		if desc, ok := p.cache.Lookup(fp); ok {
			f.Description = desc
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			f.Description = p.analysis.DescribeFrame(ctx, f.Path)
			p.cache.Store(fp, f.Description)
		}()
	}
	wg.Wait()
}

func (p *Processor) writeResult(result *session.Result) error {
	if err := os.MkdirAll(p.cfg.OutputDir(), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode result: %w", err)
	}
	path := ResultPath(p.cfg, result.SessionID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write result: %w", err)
	}
	return nil
}

func (p *Processor) sessionFramesDir(sessionID string) string {
	return FramesDir(p.cfg, sessionID)
}

// FramesDir is a session's frame working directory. Its presence on disk
// means the session is still being processed.
func FramesDir(cfg config.Config, sessionID string) string {
	return filepath.Join(cfg.FramesDir(), sessionID)
}

// ResultPath is where a session's result document lives.
func ResultPath(cfg config.Config, sessionID string) string {
	return filepath.Join(cfg.OutputDir(), sessionID+"-result.json")
}

// LoadResult reads a persisted session result. Returns nil without error
// when the result does not exist yet.
func LoadResult(cfg config.Config, sessionID string) (*session.Result, error) {
	data, err := os.ReadFile(ResultPath(cfg, sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result session.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("cannot parse result for session %s: %w", sessionID, err)
	}
	return &result, nil
}
