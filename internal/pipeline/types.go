// Package pipeline implements the core video-to-timeline flow: significant
// frame selection, transcript alignment, timeline assembly, and session
// orchestration.
package pipeline

// Frame is one sampled frame of a video.
type Frame struct {
	Index       int     // 1-based extraction index
	Path        string  // frame image on disk
	TimeSeconds float64 // index mapped onto the sampling interval
	Size        int64   // encoded byte size
	Description string  // filled in by analysis
}
