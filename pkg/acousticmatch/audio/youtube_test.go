package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRemoteMetadata(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantTitle  string
		wantArtist string
		wantErr    bool
	}{
		{
			name:       "artist field wins",
			raw:        `{"id":"abc","title":"Song","artist":"Band","channel":"BandVEVO","uploader":"someone","duration":212.5}`,
			wantTitle:  "Song",
			wantArtist: "Band",
		},
		{
			name:       "channel when no artist",
			raw:        `{"id":"abc","title":"Song","channel":"BandVEVO","uploader":"someone"}`,
			wantTitle:  "Song",
			wantArtist: "BandVEVO",
		},
		{
			name:       "uploader last",
			raw:        `{"id":"abc","title":"Song","uploader":"someone"}`,
			wantTitle:  "Song",
			wantArtist: "someone",
		},
		{
			name:       "track fills empty title",
			raw:        `{"id":"abc","title":"","track":"Track Name"}`,
			wantTitle:  "Track Name",
			wantArtist: "",
		},
		{name: "missing id", raw: `{"title":"Song"}`, wantErr: true},
		{name: "missing title", raw: `{"id":"abc"}`, wantErr: true},
		{name: "not json", raw: `ERROR: unavailable`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parseRemoteMetadata([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrDownload) {
					t.Fatalf("Expected ErrDownload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if meta.Title != tt.wantTitle || meta.Artist != tt.wantArtist {
				t.Errorf("Got title=%q artist=%q, want %q %q", meta.Title, meta.Artist, tt.wantTitle, tt.wantArtist)
			}
		})
	}
}

func TestFindDownload(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"abc.webm.part", "abc.m4a", "other.m4a"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	got, err := findDownload(dir, "abc")
	if err != nil {
		t.Fatalf("findDownload failed: %v", err)
	}
	if filepath.Base(got) != "abc.m4a" {
		t.Errorf("Expected abc.m4a, got %s", got)
	}

	if _, err := findDownload(dir, "missing"); !errors.Is(err, ErrDownload) {
		t.Errorf("Expected ErrDownload for missing id, got %v", err)
	}
}
