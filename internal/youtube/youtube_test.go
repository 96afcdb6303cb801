package youtube

import "testing"

func TestExtractID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=abc123&t=42s", "abc123"},
		{"https://vimeo.com/12345", ""},
		{"https://example.com/watch?v=abc", ""},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractID(tt.url); got != tt.want {
			t.Errorf("ExtractID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestIsValidURL(t *testing.T) {
	if !IsValidURL("https://youtu.be/dQw4w9WgXcQ") {
		t.Error("youtu.be short link should be valid")
	}
	if IsValidURL("https://example.com/video") {
		t.Error("non-YouTube URL should be invalid")
	}
}

func TestEmbedURL(t *testing.T) {
	got := EmbedURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	want := "https://www.youtube.com/embed/dQw4w9WgXcQ?rel=0&modestbranding=1"
	if got != want {
		t.Errorf("EmbedURL = %q, want %q", got, want)
	}

	if got := EmbedURL("https://example.com/x"); got != "about:blank" {
		t.Errorf("unrecognized URL: got %q, want about:blank", got)
	}
}

func TestThumbnailURL(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{QualityDefault, "https://img.youtube.com/vi/abc/default.jpg"},
		{QualityMedium, "https://img.youtube.com/vi/abc/mqdefault.jpg"},
		{QualityHigh, "https://img.youtube.com/vi/abc/hqdefault.jpg"},
		{QualityMaxRes, "https://img.youtube.com/vi/abc/maxresdefault.jpg"},
		{"bogus", "https://img.youtube.com/vi/abc/hqdefault.jpg"},
	}
	for _, tt := range tests {
		if got := ThumbnailURL("https://youtu.be/abc", tt.quality); got != tt.want {
			t.Errorf("ThumbnailURL(%q) = %q, want %q", tt.quality, got, tt.want)
		}
	}

	if got := ThumbnailURL("https://example.com/x", QualityHigh); got != "" {
		t.Errorf("unrecognized URL: got %q, want empty", got)
	}
}
