package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/narravid/narravid-server/internal/analysis"
	"github.com/narravid/narravid-server/internal/cache"
	"github.com/narravid/narravid-server/internal/config"
	"github.com/narravid/narravid-server/internal/db"
	"github.com/narravid/narravid-server/internal/media"
	"github.com/narravid/narravid-server/internal/pipeline"
	"github.com/narravid/narravid-server/internal/session"
)

type stubFFmpeg struct {
	frameSizes []int64
	probeErr   error
}

func (s *stubFFmpeg) Probe(ctx context.Context, videoPath string) (*media.ProbeInfo, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	return &media.ProbeInfo{DurationSeconds: float64(len(s.frameSizes))}, nil
}

func (s *stubFFmpeg) ExtractFrames(ctx context.Context, videoPath, outDir string, interval, maxDuration float64) ([]media.FrameFile, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	files := make([]media.FrameFile, len(s.frameSizes))
	for i, size := range s.frameSizes {
		path := filepath.Join(outDir, fmt.Sprintf("frame-%04d.jpg", i+1))
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			return nil, err
		}
		files[i] = media.FrameFile{Path: path, Index: i + 1, Size: size}
	}
	return files, nil
}

func (s *stubFFmpeg) ExtractAudio(ctx context.Context, videoPath, outPath, bitrate string, maxDuration float64) error {
	return os.WriteFile(outPath, []byte("mp3"), 0644)
}

func newTestServer(t *testing.T) (ServerConfig, *pipeline.Processor) {
	t.Helper()
	t.Setenv(config.EnvDataDir, t.TempDir())

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, dir := range config.ArtifactDirs(cfg) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	database, err := db.New(cfg.DBPath(), nil)
	if err != nil {
		t.Fatalf("db failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := session.NewRepository(database.Conn())
	ff := &stubFFmpeg{frameSizes: []int64{1000, 1000, 1000}}
	svc := analysis.NewService(nil, logger)
	c := cache.New(cfg.CacheDir(), cfg.CacheEnabled(), logger)
	proc := pipeline.NewProcessor(cfg, logger, ff, svc, c, repo)

	return ServerConfig{
		Config:     cfg,
		Processor:  proc,
		Repository: repo,
		FFmpeg:     ff,
		Downloader: nil,
		Tools:      media.ToolStatus{Available: map[string]bool{"ffmpeg": true, "ffprobe": true, "yt-dlp": false}},
		Logger:     logger,
		StartTime:  time.Now(),
	}, proc
}

func TestHealth(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
	if !resp.Tools["ffmpeg"] {
		t.Error("expected ffmpeg tool reported available")
	}
}

func TestPing(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pong") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	tests := []struct {
		url   string
		valid bool
	}{
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://example.com/video", false},
	}
	for _, tt := range tests {
		body, _ := json.Marshal(ValidateRequest{URL: tt.url})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/youtube/validate", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp ValidateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Valid != tt.valid {
			t.Errorf("valid(%q) = %v, want %v", tt.url, resp.Valid, tt.valid)
		}
	}
}

func TestProcessYouTubeInvalidURL(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	body, _ := json.Marshal(ProcessYouTubeRequest{URL: "https://example.com/x"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos/process-youtube", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessYouTubeWithoutDownloader(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	body, _ := json.Marshal(ProcessYouTubeRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos/process-youtube", bytes.NewReader(body)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestUploadAndStatus(t *testing.T) {
	cfg, proc := newTestServer(t)
	router := NewRouter(cfg)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", "demo.mp4")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake video bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ProcessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected session id")
	}

	proc.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/processing-status/"+resp.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "completed" {
		t.Errorf("session status = %q, want completed", status.Status)
	}
	if status.Result == nil || len(status.Result.Timeline) != 3 {
		t.Errorf("expected a 3-entry timeline in the result")
	}
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("video", "notes.txt")
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/videos/upload-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProcessingStatusNotFound(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/processing-status/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProcessingStatusWhileRunning(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	// A session with a working dir on disk is still processing, even before
	// any frames land in it.
	if err := cfg.Repository.Create(context.Background(), &session.Session{
		ID: "s1", Source: "upload:a.mp4", Status: session.StatusRunning,
	}); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(pipeline.FramesDir(cfg.Config, "s1"), 0755); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/processing-status/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "processing" {
		t.Errorf("status = %q, want processing", status.Status)
	}
}

func TestProcessingStatusAfterRetentionSweep(t *testing.T) {
	cfg, proc := newTestServer(t)
	router := NewRouter(cfg)

	id, err := proc.Start(context.Background(), "v.mp4", "upload:v.mp4")
	if err != nil {
		t.Fatal(err)
	}
	proc.Wait()

	// Once retention removes the result document the session is gone, no
	// matter what the registry row still says.
	if err := os.Remove(pipeline.ResultPath(cfg.Config, id)); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/processing-status/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after sweep", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	cfg, _ := newTestServer(t)
	router := NewRouter(cfg)

	if err := cfg.Repository.Create(context.Background(), &session.Session{
		ID: "s1", Source: "upload:a.mp4", Status: session.StatusCompleted,
	}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SessionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID != "s1" {
		t.Errorf("unexpected sessions: %+v", resp.Sessions)
	}
}
