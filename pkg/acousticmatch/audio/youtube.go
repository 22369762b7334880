package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/AcousticMatch/pkg/utils"
)

// ErrDownload wraps every failure to fetch a remote recording.
var ErrDownload = errors.New("download error")

const defaultDownloadTimeout = 3 * time.Minute

// RemoteMetadata is what yt-dlp reports about a video.
type RemoteMetadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Track      string  `json:"track"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// YouTubeFetcher downloads the best audio stream of a video with yt-dlp.
// The yt-dlp executable must be on PATH.
type YouTubeFetcher struct {
	Timeout time.Duration
}

// Fetch writes the audio of url into outDir and returns its path. The
// caller removes the file.
func (f YouTubeFetcher) Fetch(ctx context.Context, url, outDir string) (string, *RemoteMetadata, error) {
	ctx, cancel := withDefaultTimeout(ctx, orDuration(f.Timeout, defaultDownloadTimeout))
	defer cancel()

	if err := utils.MakeDir(outDir); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res, err := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("%w: yt-dlp metadata for %s: %v", ErrDownload, url, err)
	}
	meta, err := parseRemoteMetadata([]byte(res.Stdout))
	if err != nil {
		return "", nil, err
	}

	_, err = ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Format("ba").
		Output(filepath.Join(outDir, meta.ID+".%(ext)s")).
		Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("%w: yt-dlp download of %s: %v", ErrDownload, url, err)
	}

	path, err := findDownload(outDir, meta.ID)
	if err != nil {
		return "", nil, err
	}
	return path, meta, nil
}

func parseRemoteMetadata(raw []byte) (*RemoteMetadata, error) {
	var meta RemoteMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: parsing yt-dlp JSON: %v", ErrDownload, err)
	}
	if strings.TrimSpace(meta.ID) == "" {
		return nil, fmt.Errorf("%w: missing video id in yt-dlp output", ErrDownload)
	}
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = meta.Track
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, fmt.Errorf("%w: missing title in yt-dlp output", ErrDownload)
	}
	meta.Artist = pickArtist(meta)
	return &meta, nil
}

func pickArtist(meta RemoteMetadata) string {
	for _, v := range []string{meta.Artist, meta.Channel, meta.Uploader} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// findDownload locates the finished file yt-dlp wrote for id, skipping
// partial downloads.
func findDownload(dir, id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, id+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".part", ".ytdl", ".json":
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("%w: no audio file for video %s in %s", ErrDownload, id, dir)
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
