package youtube

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		url  string
		id   string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"http://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://vimeo.com/12345678", "", false},
		{"not a url", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		id, ok := ExtractID(tt.url)
		if ok != tt.ok || id != tt.id {
			t.Errorf("ExtractID(%q) = %q, %v; want %q, %v", tt.url, id, ok, tt.id, tt.ok)
		}
	}
}

func TestValidateURL(t *testing.T) {
	if !ValidateURL("https://youtu.be/dQw4w9WgXcQ") {
		t.Error("expected valid")
	}
	if ValidateURL("https://example.com/watch?v=dQw4w9WgXcQ") {
		t.Error("expected invalid host")
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "Hello_World"},
		{"Go 1.24: What's New?", "Go_1.24_What_s_New"},
		{"///", "video"},
		{"", "video"},
		{"..dots..", "dots"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeTitle(string(long)); len(got) != maxTitleLen {
		t.Errorf("long title not capped, len = %d", len(got))
	}
}

func TestParseInfo(t *testing.T) {
	data := []byte(`{"id":"dQw4w9WgXcQ","title":"Talk","duration":212.5,"uploader":"chan","view_count":42,"is_live":true}`)
	info, err := parseInfo(data)
	if err != nil {
		t.Fatalf("parseInfo failed: %v", err)
	}
	if info.ID != "dQw4w9WgXcQ" || info.Title != "Talk" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.DurationSeconds != 212.5 {
		t.Errorf("duration = %v, want 212.5", info.DurationSeconds)
	}
	if !info.IsLive {
		t.Error("expected is_live to be parsed")
	}

	if _, err := parseInfo([]byte("not json")); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestFindCached(t *testing.T) {
	dir := t.TempDir()
	d := &Downloader{downloadDir: dir}

	if _, ok := d.findCached("dQw4w9WgXcQ"); ok {
		t.Error("expected no cached file in empty dir")
	}

	path := filepath.Join(dir, "dQw4w9WgXcQ-Talk.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}
	got, ok := d.findCached("dQw4w9WgXcQ")
	if !ok || got != path {
		t.Errorf("findCached = %q, %v; want %q, true", got, ok, path)
	}
}

func TestResolveDownload(t *testing.T) {
	live := &Info{ID: "dQw4w9WgXcQ", IsLive: true}
	if _, err := resolveDownload(live, "", false, false); err != ErrLiveContent {
		t.Errorf("live video: err = %v, want ErrLiveContent", err)
	}
	if _, err := resolveDownload(live, "/d/v.mp4", true, false); err != ErrLiveContent {
		t.Errorf("live video with cached file: err = %v, want ErrLiveContent", err)
	}

	vod := &Info{ID: "dQw4w9WgXcQ"}
	res, err := resolveDownload(vod, "/d/v.mp4", true, false)
	if err != nil {
		t.Fatalf("resolveDownload failed: %v", err)
	}
	if res == nil || !res.Cached || res.Path != "/d/v.mp4" {
		t.Errorf("expected cached reuse, got %+v", res)
	}

	res, err = resolveDownload(vod, "/d/v.mp4", true, true)
	if err != nil || res != nil {
		t.Errorf("force should bypass cache, got %+v, %v", res, err)
	}
	res, err = resolveDownload(vod, "", false, false)
	if err != nil || res != nil {
		t.Errorf("no cached file should trigger download, got %+v, %v", res, err)
	}
}
