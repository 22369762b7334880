package acousticmatch

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/matcher"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/metrics"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/pcm"
)

const (
	DefaultDBPath     = "acousticmatch.sqlite3"
	DefaultSampleRate = 11025
	// DefaultFFTThreshold switches pair scoring to the FFT path once
	// len(a)*len(b) exceeds it.
	DefaultFFTThreshold = 1 << 22
)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	// DownsampleFactor is applied to query and candidates during a match.
	DownsampleFactor int
	Workers          int
	FFTThreshold     int
	DecodeTimeout    time.Duration
	Logger           Logger
	Storage          Storage
	Decoder          Decoder
	Fetcher          Fetcher
	Metrics          *metrics.Metrics
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithSampleRate sets the rate every decoded source is resampled to.
// Zero keeps each source's own rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithDownsampleFactor(factor int) Option {
	return func(c *Config) {
		c.DownsampleFactor = factor
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithFFTThreshold sets the size product above which pair scoring uses the
// FFT correlator. Zero disables the FFT path.
func WithFFTThreshold(n int) Option {
	return func(c *Config) {
		c.FFTThreshold = n
	}
}

func WithDecodeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.DecodeTimeout = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithDecoder(dec Decoder) Option {
	return func(c *Config) {
		c.Decoder = dec
	}
}

// WithFetcher replaces the yt-dlp downloader used by AddYouTubeRecording.
func WithFetcher(f Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:           DefaultDBPath,
		TempDir:          os.TempDir(),
		SampleRate:       DefaultSampleRate,
		DownsampleFactor: matcher.DefaultFactor,
		Workers:          runtime.NumCPU(),
		FFTThreshold:     DefaultFFTThreshold,
	}
}

func (c *Config) validate() error {
	switch {
	case c.SampleRate < 0:
		return fmt.Errorf("%w: sample rate must be >= 0, got %d", pcm.ErrInvalidParameter, c.SampleRate)
	case c.DownsampleFactor < 1:
		return fmt.Errorf("%w: downsample factor must be >= 1, got %d", pcm.ErrInvalidParameter, c.DownsampleFactor)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", pcm.ErrInvalidParameter, c.Workers)
	case c.FFTThreshold < 0:
		return fmt.Errorf("%w: fft threshold must be >= 0, got %d", pcm.ErrInvalidParameter, c.FFTThreshold)
	}
	return nil
}
