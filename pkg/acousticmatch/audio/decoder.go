package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

// DecoderConfig controls how sources are turned into signals.
type DecoderConfig struct {
	// SampleRate is the target rate. Zero keeps the source rate.
	SampleRate int
	// TempDir holds intermediate ffmpeg output.
	TempDir string
	Timeout time.Duration
}

type Decoder struct {
	cfg DecoderConfig
}

func NewDecoder(cfg DecoderConfig) *Decoder {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Decoder{cfg: cfg}
}

// Decode reads path as a mono signal. A WAV file already at the target rate
// is read directly; everything else goes through ffmpeg first.
func (d *Decoder) Decode(ctx context.Context, path string) (pcm.Signal, error) {
	if _, err := os.Stat(path); err != nil {
		return pcm.Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		sig, err := DecodeWAVFile(path)
		switch {
		case err == nil && (d.cfg.SampleRate == 0 || sig.SampleRate() == d.cfg.SampleRate):
			return sig, nil
		case err != nil && !errors.Is(err, ErrUnsupportedFormat):
			return pcm.Signal{}, err
		}
	}

	wavPath, err := ConvertToWAV(ctx, path, d.cfg.TempDir, ConvertWAVConfig{
		SampleRate: d.cfg.SampleRate,
		Timeout:    d.cfg.Timeout,
	})
	if err != nil {
		return pcm.Signal{}, fmt.Errorf("converting %s: %w", path, err)
	}
	defer os.Remove(wavPath)

	return DecodeWAVFile(wavPath)
}

// Metadata probes path with ffprobe.
func (d *Decoder) Metadata(ctx context.Context, path string) (*Metadata, error) {
	return ReadMetadata(ctx, path)
}
