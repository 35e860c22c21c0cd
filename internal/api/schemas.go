package api

import (
	"github.com/narravid/narravid-server/internal/session"
	"github.com/narravid/narravid-server/internal/youtube"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	UptimeS int64           `json:"uptime_s"`
	Tools   map[string]bool `json:"tools"`
}

type ProcessYouTubeRequest struct {
	URL string `json:"url"`
}

type ProcessResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type StatusResponse struct {
	SessionID             string          `json:"session_id"`
	Status                string          `json:"status"`
	FrameCount            int             `json:"frame_count,omitempty"`
	SignificantFrameCount int             `json:"significant_frame_count,omitempty"`
	HasAudio              bool            `json:"has_audio"`
	Error                 string          `json:"error,omitempty"`
	Result                *session.Result `json:"result,omitempty"`
}

type SessionListResponse struct {
	Sessions []*session.Session `json:"sessions"`
}

type ValidateRequest struct {
	URL string `json:"url"`
}

type ValidateResponse struct {
	Valid   bool   `json:"valid"`
	VideoID string `json:"video_id,omitempty"`
}

type DownloadRequest struct {
	URL   string `json:"url"`
	Force bool   `json:"force"`
}

type DownloadResponse struct {
	Path   string        `json:"path"`
	Cached bool          `json:"cached"`
	Info   *youtube.Info `json:"info"`
}
