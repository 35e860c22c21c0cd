// Package youtube fetches video metadata and files through the yt-dlp binary.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/narravid/narravid-server/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024

	infoTimeout     = 60 * time.Second
	downloadTimeout = 15 * time.Minute

	// maxTitleLen bounds the sanitised title used in download filenames.
	maxTitleLen = 60
)

// ErrLiveContent is returned when a download is requested for a live or
// currently-streaming video, which has no bounded file to fetch.
var ErrLiveContent = errors.New("live content cannot be downloaded")

// videoIDPattern matches the watch, short-link, shorts, and embed URL forms
// and captures the 11-character video ID.
var videoIDPattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[?&#].*)?$`)

// ExtractID returns the video ID from a YouTube URL, or false if the URL is
// not a recognised YouTube form.
func ExtractID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidateURL reports whether the URL is a supported YouTube video link.
func ValidateURL(url string) bool {
	_, ok := ExtractID(url)
	return ok
}

// Info is the metadata subset the server exposes for a video.
type Info struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration"`
	Uploader        string  `json:"uploader"`
	ViewCount       int64   `json:"view_count"`
	IsLive          bool    `json:"is_live"`
}

// DownloadResult describes a completed download: where the file landed,
// whether an earlier download was reused, and the video's metadata.
type DownloadResult struct {
	Path   string
	Cached bool
	Info   *Info
}

// Downloader wraps yt-dlp for metadata lookups and video downloads.
type Downloader struct {
	binPath     string
	downloadDir string
	logger      *slog.Logger
}

// NewDownloader resolves yt-dlp on PATH. A missing binary is an error here
// so the caller can disable YouTube intake instead of failing per request.
func NewDownloader(downloadDir string, logger *slog.Logger) (*Downloader, error) {
	bin, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found on PATH: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create download dir: %w", err)
	}
	return &Downloader{binPath: bin, downloadDir: downloadDir, logger: logger}, nil
}

// GetInfo fetches metadata without downloading the video.
func (d *Downloader) GetInfo(ctx context.Context, url string) (*Info, error) {
	if !ValidateURL(url) {
		return nil, fmt.Errorf("not a valid YouTube URL")
	}

	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binPath, "-J", "--no-playlist", url)

	var stdout bytes.Buffer
	stderr := logging.NewTailWriter(maxStderrBytes)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp info failed: %w: %s", err, logging.Tail(stderr.String(), 512))
	}

	return parseInfo(stdout.Bytes())
}

func parseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("cannot parse yt-dlp output: %w", err)
	}
	return &info, nil
}

// Download fetches the video as an mp4 into the download directory. A
// previous download of the same video is reused unless force is set. Live
// streams are refused with ErrLiveContent.
func (d *Downloader) Download(ctx context.Context, url string, force bool) (*DownloadResult, error) {
	id, ok := ExtractID(url)
	if !ok {
		return nil, fmt.Errorf("not a valid YouTube URL")
	}

	info, err := d.GetInfo(ctx, url)
	if err != nil {
		return nil, err
	}

	cached, haveCached := d.findCached(id)
	if reuse, err := resolveDownload(info, cached, haveCached, force); err != nil {
		return nil, err
	} else if reuse != nil {
		d.logger.Info("reusing downloaded video", "id", id)
		return reuse, nil
	}

	outPath := filepath.Join(d.downloadDir, id+"-"+SanitizeTitle(info.Title)+".mp4")

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binPath,
		"--no-playlist",
		"-f", "mp4/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
		"-o", outPath,
		url,
	)

	stderr := logging.NewTailWriter(maxStderrBytes)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp download failed: %w: %s", err, logging.Tail(stderr.String(), 512))
	}

	d.logger.Info("downloaded video",
		"id", id,
		"title", info.Title,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &DownloadResult{Path: outPath, Info: info}, nil
}

// resolveDownload decides whether a download can proceed and whether an
// existing file satisfies it. A non-nil result means reuse the cached file;
// nil, nil means a fresh download is needed.
func resolveDownload(info *Info, cached string, haveCached, force bool) (*DownloadResult, error) {
	if info.IsLive {
		return nil, ErrLiveContent
	}
	if haveCached && !force {
		return &DownloadResult{Path: cached, Cached: true, Info: info}, nil
	}
	return nil, nil
}

// findCached looks for an existing download of the video ID.
func (d *Downloader) findCached(id string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(d.downloadDir, id+"-*.mp4"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

var unsafeTitleChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeTitle reduces a video title to a filesystem-safe slug.
func SanitizeTitle(title string) string {
	s := unsafeTitleChars.ReplaceAllString(title, "_")
	s = strings.Trim(s, "_.")
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	if s == "" {
		s = "video"
	}
	return s
}
