package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNoVideoID = errors.New("no video id")

// ExtractYouTubeID returns the video id of a youtu.be, /watch, /embed/,
// /v/ or /shorts/ link.
func ExtractYouTubeID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		if id := firstSegment(u.Path); id != "" {
			return id, nil
		}
	case "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			if id := u.Query().Get("v"); id != "" {
				return id, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if id := firstSegment(rest); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w in %q", errNoVideoID, raw)
}

// IsYouTubeURL reports whether raw is a YouTube link carrying a video id.
func IsYouTubeURL(raw string) bool {
	_, err := ExtractYouTubeID(raw)
	return err == nil
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
