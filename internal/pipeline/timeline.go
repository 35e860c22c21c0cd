package pipeline

import (
	"fmt"

	"github.com/narravid/narravid-server/internal/analysis"
	"github.com/narravid/narravid-server/internal/session"
)

// fallbackWindowSeconds is the window length assumed for the final frame,
// which has no successor to borrow an end time from.
const fallbackWindowSeconds = 3.0

// AssembleTimeline turns described frames and transcript segments into
// ordered timeline entries. Entry i ends where entry i+1 starts; the last
// entry gets a fixed fallback window. Each window is matched against the
// transcript by range first, then by nearest point.
func AssembleTimeline(frames []Frame, segments []analysis.TranscriptSegment) []session.TimelineEntry {
	entries := make([]session.TimelineEntry, 0, len(frames))
	for i, f := range frames {
		start := f.TimeSeconds
		var end float64
		if i+1 < len(frames) {
			end = frames[i+1].TimeSeconds
		} else {
			end = start + fallbackWindowSeconds
		}

		var label string
		if i == len(frames)-1 {
			label = formatTimestamp(start)
		} else {
			label = formatTimestamp(start) + " - " + formatTimestamp(end)
		}

		transcript, found := FindRange(start, end, segments)
		if !found {
			transcript, found = FindNearest(start, segments)
		}

		entries = append(entries, session.TimelineEntry{
			Timestamp:         label,
			StartSeconds:      start,
			EndSeconds:        end,
			Description:       f.Description,
			Transcript:        transcript,
			IsAudioTranscript: found,
		})
	}
	return entries
}

// formatTimestamp renders seconds as zero-padded HH:MM:SS.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
