package pipeline

import "log/slog"

const (
	// minFilterInput is the sequence length below which filtering is skipped;
	// short videos keep every frame.
	minFilterInput = 5

	// maxEvenSample caps the degraded evenly-spaced fallback.
	maxEvenSample = 10
)

// SelectSignificant returns the subsequence of frames that represent
// meaningful visual change. The difference score between two frames is the
// relative magnitude difference of their encoded byte sizes, a cheap proxy
// for visual change. The first and last frames are always kept.
//
// If a size is unusable the filter degrades to an evenly spaced subsample
// rather than failing.
func SelectSignificant(frames []Frame, threshold float64, logger *slog.Logger) []Frame {
	if len(frames) <= minFilterInput {
		return frames
	}

	selected := []Frame{frames[0]}
	lastKept := frames[0]

	for _, f := range frames[1:] {
		score, ok := diffScore(lastKept, f)
		if !ok {
			logger.Warn("frame size comparison failed, falling back to even sampling",
				"frame", f.Index)
			return evenSample(frames, maxEvenSample)
		}
		if score > threshold {
			selected = append(selected, f)
			lastKept = f
		}
	}

	last := frames[len(frames)-1]
	if selected[len(selected)-1].Index != last.Index {
		selected = append(selected, last)
	}

	return selected
}

// diffScore returns |size(a)-size(b)| / max(size(a),size(b)).
func diffScore(a, b Frame) (float64, bool) {
	if a.Size <= 0 || b.Size <= 0 {
		return 0, false
	}
	diff := a.Size - b.Size
	if diff < 0 {
		diff = -diff
	}
	max := a.Size
	if b.Size > max {
		max = b.Size
	}
	return float64(diff) / float64(max), true
}

// evenSample picks first, last, and stride-selected middle frames, at most
// limit in total, preserving order.
func evenSample(frames []Frame, limit int) []Frame {
	if len(frames) <= limit {
		out := make([]Frame, len(frames))
		copy(out, frames)
		return out
	}

	out := make([]Frame, 0, limit)
	stride := float64(len(frames)-1) / float64(limit-1)
	prev := -1
	for i := 0; i < limit; i++ {
		idx := int(float64(i)*stride + 0.5)
		if idx >= len(frames) {
			idx = len(frames) - 1
		}
		if idx == prev {
			continue
		}
		out = append(out, frames[idx])
		prev = idx
	}
	return out
}
