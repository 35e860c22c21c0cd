package pipeline

import (
	"sort"
	"strings"

	"github.com/narravid/narravid-server/internal/analysis"
)

// maxNearestDistance bounds the point-lookup fallback; a segment farther
// than this from the query time is not worth attaching.
const maxNearestDistance = 5.0

// FindRange returns the transcript text overlapping the window
// [startTime, endTime). A segment overlaps if it starts within the window,
// ends strictly inside it, or fully contains it. Matches are joined in
// start-time order with single spaces. The second return is false when
// nothing overlaps.
func FindRange(startTime, endTime float64, segments []analysis.TranscriptSegment) (string, bool) {
	var matches []analysis.TranscriptSegment
	for _, seg := range segments {
		startsInRange := seg.Start >= startTime && seg.Start < endTime
		endsInRange := seg.End > startTime && seg.End < endTime
		containsRange := seg.Start <= startTime && seg.End >= endTime
		if startsInRange || endsInRange || containsRange {
			matches = append(matches, seg)
		}
	}
	if len(matches) == 0 {
		return "", false
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })

	parts := make([]string, len(matches))
	for i, seg := range matches {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " "), true
}

// FindNearest returns the transcript text for a single point in time. A
// segment containing the point wins outright; otherwise the segment whose
// boundary is closest is used, provided it is within maxNearestDistance
// seconds.
func FindNearest(t float64, segments []analysis.TranscriptSegment) (string, bool) {
	for _, seg := range segments {
		if seg.Start <= t && t <= seg.End {
			return seg.Text, true
		}
	}

	best := -1
	bestDist := 0.0
	for i, seg := range segments {
		d := absMin(t-seg.Start, t-seg.End)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 || bestDist > maxNearestDistance {
		return "", false
	}
	return segments[best].Text, true
}

func absMin(a, b float64) float64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a < b {
		return a
	}
	return b
}
