package media

import (
	"os/exec"
	"time"
)

// ToolStatus reports which external binaries the server can reach.
type ToolStatus struct {
	Available map[string]bool `json:"available"`
	ProbedAt  time.Time       `json:"probed_at"`
}

// Ready reports whether the tools required for frame extraction are present.
// yt-dlp is optional; without it only uploads work.
func (s ToolStatus) Ready() bool {
	return s.Available["ffmpeg"] && s.Available["ffprobe"]
}

// ProbeTools checks PATH for the external binaries the pipeline shells out to.
func ProbeTools() ToolStatus {
	status := ToolStatus{
		Available: make(map[string]bool),
		ProbedAt:  time.Now().UTC(),
	}
	for _, name := range []string{"ffmpeg", "ffprobe", "yt-dlp"} {
		_, err := exec.LookPath(name)
		status.Available[name] = err == nil
	}
	return status
}
