package pipeline

import (
	"testing"

	"github.com/narravid/narravid-server/internal/analysis"
)

func TestAssembleTimelineNoTranscript(t *testing.T) {
	frames := []Frame{
		{Index: 1, TimeSeconds: 0, Description: "D0"},
		{Index: 6, TimeSeconds: 5, Description: "D1"},
		{Index: 11, TimeSeconds: 10, Description: "D2"},
	}

	entries := AssembleTimeline(frames, nil)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantEnds := []float64{5, 10, 13}
	for i, e := range entries {
		if e.EndSeconds != wantEnds[i] {
			t.Errorf("entry %d end = %v, want %v", i, e.EndSeconds, wantEnds[i])
		}
		if e.IsAudioTranscript {
			t.Errorf("entry %d should have no transcript", i)
		}
		if e.Description != frames[i].Description {
			t.Errorf("entry %d description = %q", i, e.Description)
		}
	}

	if entries[0].Timestamp != "00:00:00 - 00:00:05" {
		t.Errorf("entry 0 label = %q", entries[0].Timestamp)
	}
	if entries[2].Timestamp != "00:00:10" {
		t.Errorf("final entry should use a single timestamp, got %q", entries[2].Timestamp)
	}
}

func TestAssembleTimelineOrderAndNonOverlap(t *testing.T) {
	frames := []Frame{
		{Index: 1, TimeSeconds: 0},
		{Index: 3, TimeSeconds: 2},
		{Index: 7, TimeSeconds: 6},
		{Index: 9, TimeSeconds: 8},
	}
	entries := AssembleTimeline(frames, nil)
	for i := 1; i < len(entries); i++ {
		if entries[i].StartSeconds != entries[i-1].EndSeconds {
			t.Errorf("entry %d starts at %v, previous ends at %v",
				i, entries[i].StartSeconds, entries[i-1].EndSeconds)
		}
	}
}

func TestAssembleTimelineAttachesTranscript(t *testing.T) {
	frames := []Frame{
		{Index: 1, TimeSeconds: 0, Description: "intro"},
		{Index: 6, TimeSeconds: 5, Description: "demo"},
	}
	segments := []analysis.TranscriptSegment{
		{Start: 1, End: 3, Text: "hello and welcome"},
	}

	entries := AssembleTimeline(frames, segments)
	if !entries[0].IsAudioTranscript || entries[0].Transcript != "hello and welcome" {
		t.Errorf("entry 0 transcript = %q, flag = %v", entries[0].Transcript, entries[0].IsAudioTranscript)
	}
	// Second window [5, 8) misses the segment by 2s; the point fallback at
	// t=5 is within the 5s limit and still attaches it.
	if !entries[1].IsAudioTranscript || entries[1].Transcript != "hello and welcome" {
		t.Errorf("entry 1 transcript = %q, flag = %v", entries[1].Transcript, entries[1].IsAudioTranscript)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00"},
		{5, "00:00:05"},
		{65, "00:01:05"},
		{3661, "01:01:01"},
		{7325.9, "02:02:05"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.in); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
