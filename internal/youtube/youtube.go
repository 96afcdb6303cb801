// Package youtube extracts video IDs from the YouTube URL forms members
// paste into the admin screen and derives embed and thumbnail URLs.
package youtube

import (
	"net/url"
	"strings"
)

// ExtractID returns the video ID from a YouTube URL, or "" if the URL is
// not a recognized YouTube form. Supported: youtube.com/watch?v=,
// youtube.com/embed/, youtu.be/, and m.youtube.com/watch?v=.
func ExtractID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	switch u.Hostname() {
	case "www.youtube.com", "youtube.com", "m.youtube.com":
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			return strings.TrimPrefix(u.Path, "/embed/")
		}
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}

// IsValidURL reports whether rawURL is a YouTube video URL.
func IsValidURL(rawURL string) bool {
	return ExtractID(rawURL) != ""
}

// EmbedURL returns the embeddable player URL for a YouTube video URL, with
// related videos restricted to the same channel. Returns "about:blank" for
// unrecognized URLs.
func EmbedURL(rawURL string) string {
	id := ExtractID(rawURL)
	if id == "" {
		return "about:blank"
	}
	return "https://www.youtube.com/embed/" + id + "?rel=0&modestbranding=1"
}

// Thumbnail qualities.
const (
	QualityDefault = "default"
	QualityMedium  = "medium"
	QualityHigh    = "high"
	QualityMaxRes  = "maxres"
)

var thumbnailNames = map[string]string{
	QualityDefault: "default",
	QualityMedium:  "mqdefault",
	QualityHigh:    "hqdefault",
	QualityMaxRes:  "maxresdefault",
}

// ThumbnailURL returns the thumbnail image URL for a YouTube video URL at
// the requested quality, or "" for unrecognized URLs.
func ThumbnailURL(rawURL, quality string) string {
	id := ExtractID(rawURL)
	if id == "" {
		return ""
	}
	name, ok := thumbnailNames[quality]
	if !ok {
		name = "hqdefault"
	}
	return "https://img.youtube.com/vi/" + id + "/" + name + ".jpg"
}
