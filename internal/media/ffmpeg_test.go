package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFrameIndex(t *testing.T) {
	tests := []struct {
		name string
		idx  int
		ok   bool
	}{
		{"frame-0001.jpg", 1, true},
		{"frame-0042.jpg", 42, true},
		{"frame-12345.jpg", 12345, true},
		{"frame-0000.jpg", 0, false},
		{"frame-abc.jpg", 0, false},
		{"frame-0001.png", 0, false},
		{"audio.mp3", 0, false},
	}
	for _, tt := range tests {
		idx, ok := parseFrameIndex(tt.name)
		if ok != tt.ok || idx != tt.idx {
			t.Errorf("parseFrameIndex(%q) = %d, %v; want %d, %v", tt.name, idx, ok, tt.idx, tt.ok)
		}
	}
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct {
		name string
		size int
	}{
		{"frame-0002.jpg", 200},
		{"frame-0001.jpg", 100},
		{"frame-0010.jpg", 300},
		{"notes.txt", 10},
	} {
		if err := os.WriteFile(filepath.Join(dir, f.name), make([]byte, f.size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	frames, err := ListFrames(dir)
	if err != nil {
		t.Fatalf("ListFrames failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, wantIdx := range []int{1, 2, 10} {
		if frames[i].Index != wantIdx {
			t.Errorf("frames[%d].Index = %d, want %d", i, frames[i].Index, wantIdx)
		}
	}
	if frames[0].Size != 100 {
		t.Errorf("frames[0].Size = %d, want 100", frames[0].Size)
	}
}

func TestListFramesEmpty(t *testing.T) {
	frames, err := ListFrames(t.TempDir())
	if err != nil {
		t.Fatalf("ListFrames failed: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("expected no frames, got %d", len(frames))
	}
}

func TestFrameArgsBoundsDuration(t *testing.T) {
	args := frameArgs("in.mp4", "/out/frame-%04d.jpg", 2, 300)
	want := []string{"-t", "300"}
	if !containsPair(args, want[0], want[1]) {
		t.Errorf("frameArgs missing %v, got %v", want, args)
	}
	if !containsPair(args, "-vf", "fps=1/2") {
		t.Errorf("frameArgs missing fps filter, got %v", args)
	}
}

func TestAudioArgsBoundsDuration(t *testing.T) {
	args := audioArgs("in.mp4", "/out/audio.mp3", "64k", 300)
	if !containsPair(args, "-t", "300") {
		t.Errorf("audioArgs missing duration bound, got %v", args)
	}
	if !containsPair(args, "-b:a", "64k") {
		t.Errorf("audioArgs missing bitrate, got %v", args)
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestToolStatusReady(t *testing.T) {
	s := ToolStatus{Available: map[string]bool{"ffmpeg": true, "ffprobe": true}}
	if !s.Ready() {
		t.Error("expected ready with ffmpeg and ffprobe")
	}
	s.Available["ffprobe"] = false
	if s.Ready() {
		t.Error("expected not ready without ffprobe")
	}
}
