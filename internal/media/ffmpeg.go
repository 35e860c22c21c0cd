// Package media wraps the ffmpeg and ffprobe binaries for frame and audio
// extraction.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/narravid/narravid-server/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	probeTimeout   = 30 * time.Second
	extractTimeout = 10 * time.Minute
)

// ProbeInfo describes a video file as reported by ffprobe.
type ProbeInfo struct {
	DurationSeconds float64
	HasAudio        bool
	Width           int
	Height          int
	Format          string
}

// FFmpeg is the media extraction contract used by the pipeline.
type FFmpeg interface {
	// Probe inspects a video file and returns its duration and streams.
	Probe(ctx context.Context, videoPath string) (*ProbeInfo, error)

	// ExtractFrames samples frames at a fixed interval into outDir as
	// frame-%04d.jpg, stopping at maxDuration seconds. Returns the
	// extracted frame files in index order.
	ExtractFrames(ctx context.Context, videoPath, outDir string, interval, maxDuration float64) ([]FrameFile, error)

	// ExtractAudio transcodes the audio track to an mp3 at outPath,
	// stopping at maxDuration seconds to match the frame window.
	ExtractAudio(ctx context.Context, videoPath, outPath, bitrate string, maxDuration float64) error
}

// FrameFile is one extracted frame image on disk.
type FrameFile struct {
	Path  string
	Index int // 1-based ffmpeg output index
	Size  int64
}

// Exec is the production FFmpeg implementation backed by subprocesses.
type Exec struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// NewExec resolves the ffmpeg and ffprobe binaries on PATH.
func NewExec(logger *slog.Logger) (*Exec, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found on PATH: %w", err)
	}
	return &Exec{ffmpegPath: ffmpeg, ffprobePath: ffprobe, logger: logger}, nil
}

type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (e *Exec) Probe(ctx context.Context, videoPath string) (*ProbeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)

	var stdout bytes.Buffer
	stderr := logging.NewTailWriter(maxStderrBytes)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, logging.Tail(stderr.String(), 512))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe output: %w", err)
	}

	info := &ProbeInfo{Format: out.Format.FormatName}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse duration %q: %w", out.Format.Duration, err)
		}
		info.DurationSeconds = d
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		}
	}
	return info, nil
}

func (e *Exec) ExtractFrames(ctx context.Context, videoPath, outDir string, interval, maxDuration float64) ([]FrameFile, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %v", interval)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create frames dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	pattern := filepath.Join(outDir, "frame-%04d.jpg")
	if err := e.run(ctx, frameArgs(videoPath, pattern, interval, maxDuration)); err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	frames, err := ListFrames(outDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", filepath.Base(videoPath))
	}

	e.logger.Info("extracted frames",
		"video", filepath.Base(videoPath),
		"frames", len(frames),
		"interval_s", interval,
	)
	return frames, nil
}

func (e *Exec) ExtractAudio(ctx context.Context, videoPath, outPath, bitrate string, maxDuration float64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("cannot create audio dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	if err := e.run(ctx, audioArgs(videoPath, outPath, bitrate, maxDuration)); err != nil {
		return fmt.Errorf("audio extraction failed: %w", err)
	}

	e.logger.Info("extracted audio", "video", filepath.Base(videoPath), "bitrate", bitrate)
	return nil
}

// frameArgs builds the ffmpeg invocation for frame sampling, bounded to the
// first maxDuration seconds of the clip.
func frameArgs(videoPath, pattern string, interval, maxDuration float64) []string {
	return []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", interval),
		"-t", fmt.Sprintf("%g", maxDuration),
		"-q:v", "2",
		"-y",
		pattern,
	}
}

// audioArgs builds the ffmpeg invocation for audio extraction, bounded to
// the same window the frames cover.
func audioArgs(videoPath, outPath, bitrate string, maxDuration float64) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", bitrate,
		"-t", fmt.Sprintf("%g", maxDuration),
		"-y",
		outPath,
	}
}

func (e *Exec) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr := logging.NewTailWriter(maxStderrBytes)
	cmd.Stderr = stderr
	cmd.Stdout = io.Discard

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		e.logger.Warn("ffmpeg failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", logging.Tail(stderr.String(), 512),
		)
		return fmt.Errorf("ffmpeg exited with code %d: %s", exitCode, logging.Tail(stderr.String(), 512))
	}

	e.logger.Debug("ffmpeg succeeded", "duration_ms", elapsed.Milliseconds())
	return nil
}

// ListFrames returns the frame-NNNN.jpg files in dir, sorted by index.
func ListFrames(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read frames dir: %w", err)
	}

	var frames []FrameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		idx, ok := parseFrameIndex(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		frames = append(frames, FrameFile{
			Path:  filepath.Join(dir, entry.Name()),
			Index: idx,
			Size:  info.Size(),
		})
	}

	// ReadDir sorts lexically; zero-padded names keep index order until a
	// 5-digit rollover, so sort by parsed index.
	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames, nil
}

func parseFrameIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "frame-") || !strings.HasSuffix(name, ".jpg") {
		return 0, false
	}
	num := strings.TrimSuffix(strings.TrimPrefix(name, "frame-"), ".jpg")
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 1 {
		return 0, false
	}
	return idx, true
}

