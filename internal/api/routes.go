package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/narravid/narravid-server/internal/config"
	"github.com/narravid/narravid-server/internal/pipeline"
	"github.com/narravid/narravid-server/internal/session"
	"github.com/narravid/narravid-server/internal/youtube"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/health/ping", pingHandler())

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/process-youtube", processYouTubeHandler(cfg))
		r.Post("/upload-video", uploadVideoHandler(cfg))
		r.Get("/processing-status/{sessionID}", processingStatusHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
	})

	r.Route("/api/youtube", func(r chi.Router) {
		r.Post("/validate", validateHandler())
		r.Post("/info", infoHandler(cfg))
		r.Post("/download", downloadHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Tools:   cfg.Tools.Available,
		})
	}
}

func pingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"ping": "pong"})
	}
}

func processYouTubeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProcessYouTubeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
			return
		}
		if !youtube.ValidateURL(req.URL) {
			WriteError(w, http.StatusBadRequest, "not a valid YouTube URL", "INVALID_URL")
			return
		}
		if cfg.Downloader == nil {
			WriteError(w, http.StatusServiceUnavailable, "YouTube intake is disabled: yt-dlp not installed", "YTDLP_UNAVAILABLE")
			return
		}

		dl, err := cfg.Downloader.Download(r.Context(), req.URL, false)
		if err != nil {
			if errors.Is(err, youtube.ErrLiveContent) {
				WriteError(w, http.StatusBadRequest, "live streams cannot be processed", "LIVE_CONTENT")
				return
			}
			cfg.Logger.Error("download failed", "error", err)
			WriteError(w, http.StatusBadGateway, "failed to download video", "DOWNLOAD_FAILED")
			return
		}

		sessionID, err := cfg.Processor.Start(r.Context(), dl.Path, "youtube:"+req.URL)
		if err != nil {
			cfg.Logger.Error("cannot start session", "error", err)
			WriteError(w, http.StatusInternalServerError, "cannot start processing", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, ProcessResponse{SessionID: sessionID, Status: "processing"})
	}
}

func uploadVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Config.MaxUploadBytes())
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid or oversized multipart body", "BAD_UPLOAD")
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "missing video field", "BAD_UPLOAD")
			return
		}
		defer file.Close()

		if !allowedVideoName(header.Filename) {
			WriteError(w, http.StatusBadRequest, "unsupported video format", "BAD_UPLOAD")
			return
		}

		name := uuid.NewString() + "-" + filepath.Base(header.Filename)
		dstPath := filepath.Join(cfg.Config.UploadsDir(), name)
		dst, err := os.Create(dstPath)
		if err != nil {
			cfg.Logger.Error("cannot create upload file", "error", err)
			WriteError(w, http.StatusInternalServerError, "cannot store upload", "INTERNAL_ERROR")
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(dstPath)
			WriteError(w, http.StatusInternalServerError, "cannot store upload", "INTERNAL_ERROR")
			return
		}
		dst.Close()

		// Reject files ffprobe cannot make sense of before queueing work.
		if _, err := cfg.FFmpeg.Probe(r.Context(), dstPath); err != nil {
			os.Remove(dstPath)
			WriteError(w, http.StatusBadRequest, "uploaded file is not a readable video", "BAD_UPLOAD")
			return
		}

		sessionID, err := cfg.Processor.Start(r.Context(), dstPath, "upload:"+filepath.Base(header.Filename))
		if err != nil {
			cfg.Logger.Error("cannot start session", "error", err)
			WriteError(w, http.StatusInternalServerError, "cannot start processing", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, ProcessResponse{SessionID: sessionID, Status: "processing"})
	}
}

func processingStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		// Status comes from the artifacts on disk: a result document means
		// the session completed, a working dir means it is still running.
		// Once retention sweeps both away the session is gone. The registry
		// only supplies counts and failure detail.
		s, err := cfg.Repository.Get(r.Context(), sessionID)
		if err != nil {
			cfg.Logger.Error("cannot load session", "error", err)
			WriteError(w, http.StatusInternalServerError, "cannot load session", "INTERNAL_ERROR")
			return
		}

		result, err := pipeline.LoadResult(cfg.Config, sessionID)
		if err != nil {
			cfg.Logger.Warn("cannot load result document", "session_id", sessionID, "error", err)
		}

		resp := StatusResponse{SessionID: sessionID}
		if s != nil {
			resp.FrameCount = s.FrameCount
			resp.SignificantFrameCount = s.SignificantFrameCount
			resp.HasAudio = s.HasAudio
			resp.Error = s.Error
		}

		switch {
		case result != nil:
			resp.Status = statusLabel(session.StatusCompleted)
			resp.Result = result
		case s != nil && s.Status == session.StatusFailed:
			resp.Status = statusLabel(session.StatusFailed)
		case dirExists(pipeline.FramesDir(cfg.Config, sessionID)):
			resp.Status = statusLabel(session.StatusRunning)
		default:
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		sessions, err := cfg.Repository.List(r.Context(), limit)
		if err != nil {
			cfg.Logger.Error("cannot list sessions", "error", err)
			WriteError(w, http.StatusInternalServerError, "cannot list sessions", "INTERNAL_ERROR")
			return
		}
		if sessions == nil {
			sessions = []*session.Session{}
		}
		WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions})
	}
}

func validateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
			return
		}
		id, ok := youtube.ExtractID(req.URL)
		WriteJSON(w, http.StatusOK, ValidateResponse{Valid: ok, VideoID: id})
	}
}

func infoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
			return
		}
		if cfg.Downloader == nil {
			WriteError(w, http.StatusServiceUnavailable, "YouTube intake is disabled: yt-dlp not installed", "YTDLP_UNAVAILABLE")
			return
		}
		info, err := cfg.Downloader.GetInfo(r.Context(), req.URL)
		if err != nil {
			WriteError(w, http.StatusBadGateway, "failed to fetch video info", "INFO_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

func downloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
			return
		}
		if cfg.Downloader == nil {
			WriteError(w, http.StatusServiceUnavailable, "YouTube intake is disabled: yt-dlp not installed", "YTDLP_UNAVAILABLE")
			return
		}
		dl, err := cfg.Downloader.Download(r.Context(), req.URL, req.Force)
		if err != nil {
			if errors.Is(err, youtube.ErrLiveContent) {
				WriteError(w, http.StatusBadRequest, "live streams cannot be downloaded", "LIVE_CONTENT")
				return
			}
			WriteError(w, http.StatusBadGateway, "failed to download video", "DOWNLOAD_FAILED")
			return
		}
		WriteJSON(w, http.StatusOK, DownloadResponse{Path: dl.Path, Cached: dl.Cached, Info: dl.Info})
	}
}

func statusLabel(status string) string {
	if status == session.StatusRunning {
		return "processing"
	}
	return status
}

func allowedVideoName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return true
	}
	return false
}
