// Package session defines processing session records and their SQLite store.
package session

import "time"

// Status values for a processing session.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Session is one video processing run from intake to timeline.
type Session struct {
	ID                    string    `json:"id"`
	Source                string    `json:"source"`
	Status                string    `json:"status"`
	FrameCount            int       `json:"frame_count"`
	SignificantFrameCount int       `json:"significant_frame_count"`
	Summary               string    `json:"summary,omitempty"`
	HasAudio              bool      `json:"has_audio"`
	Error                 string    `json:"error,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TimelineEntry is one described moment of the video, with the transcript
// that overlaps its on-screen range.
type TimelineEntry struct {
	Timestamp         string  `json:"timestamp"`
	StartSeconds      float64 `json:"start_seconds"`
	EndSeconds        float64 `json:"end_seconds"`
	Description       string  `json:"description"`
	Transcript        string  `json:"transcript,omitempty"`
	IsAudioTranscript bool    `json:"is_audio_transcript"`
}

// Result is the persisted output of a completed session. Truncated is set
// when the source video ran longer than the processing window, in which case
// ProcessedDuration is the window that was actually analyzed.
type Result struct {
	SessionID             string          `json:"session_id"`
	Source                string          `json:"source"`
	Summary               string          `json:"summary"`
	Timeline              []TimelineEntry `json:"timeline"`
	FrameCount            int             `json:"frame_count"`
	SignificantFrameCount int             `json:"significant_frame_count"`
	HasAudio              bool            `json:"has_audio"`
	VideoDuration         float64         `json:"video_duration"`
	ProcessedDuration     float64         `json:"processed_duration"`
	Truncated             bool            `json:"truncated"`
	GeneratedAt           time.Time       `json:"generated_at"`
}
