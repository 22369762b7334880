// Package config loads AcousticMatch settings from a TOML file, a .env file
// and ACOUSTICMATCH_* environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/matcher"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
)

const (
	EnvConfig           = "ACOUSTICMATCH_CONFIG"
	EnvDBPath           = "ACOUSTICMATCH_DB_PATH"
	EnvTempDir          = "ACOUSTICMATCH_TEMP_DIR"
	EnvSampleRate       = "ACOUSTICMATCH_SAMPLE_RATE"
	EnvDownsampleFactor = "ACOUSTICMATCH_DOWNSAMPLE_FACTOR"
	EnvWorkers          = "ACOUSTICMATCH_WORKERS"
	EnvPort             = "ACOUSTICMATCH_PORT"

	// ProjectConfigFile is picked up from the working directory when no
	// path is given.
	ProjectConfigFile = "acousticmatch.toml"
)

type Storage struct {
	DBPath  string `toml:"db_path"`
	TempDir string `toml:"temp_dir"`
}

type Audio struct {
	SampleRate           int `toml:"sample_rate"`
	DecodeTimeoutSeconds int `toml:"decode_timeout_seconds"`
}

type Match struct {
	DownsampleFactor int `toml:"downsample_factor"`
	Workers          int `toml:"workers"`
	FFTThreshold     int `toml:"fft_threshold"`
}

type Server struct {
	Port        int    `toml:"port"`
	CORSOrigin  string `toml:"cors_origin"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type Logging struct {
	Level string `toml:"level"`
}

type Config struct {
	Storage Storage `toml:"storage"`
	Audio   Audio   `toml:"audio"`
	Match   Match   `toml:"match"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: Storage{
			DBPath:  acousticmatch.DefaultDBPath,
			TempDir: os.TempDir(),
		},
		Audio: Audio{
			SampleRate:           acousticmatch.DefaultSampleRate,
			DecodeTimeoutSeconds: 30,
		},
		Match: Match{
			DownsampleFactor: matcher.DefaultFactor,
			FFTThreshold:     acousticmatch.DefaultFFTThreshold,
		},
		Server: Server{
			Port:        8080,
			CORSOrigin:  "*",
			MaxUploadMB: 50,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads .env, then the TOML file at path (or ACOUSTICMATCH_CONFIG, or
// ./acousticmatch.toml), then applies environment overrides. It returns the
// resolved file path and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = ProjectConfigFile
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup(EnvDBPath); ok {
		c.Storage.DBPath = v
	}
	if v, ok := lookup(EnvTempDir); ok {
		c.Storage.TempDir = v
	}
	if v, ok := lookup(logger.EnvLevel); ok {
		c.Logging.Level = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{EnvSampleRate, &c.Audio.SampleRate},
		{EnvDownsampleFactor, &c.Match.DownsampleFactor},
		{EnvWorkers, &c.Match.Workers},
		{EnvPort, &c.Server.Port},
	}
	for _, kv := range ints {
		v, ok := lookup(kv.env)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", kv.env, v)
		}
		*kv.dst = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (c *Config) normalize() error {
	var err error
	if c.Storage.DBPath, err = expandPath(c.Storage.DBPath); err != nil {
		return fmt.Errorf("storage.db_path: %w", err)
	}
	if strings.TrimSpace(c.Storage.TempDir) == "" {
		c.Storage.TempDir = os.TempDir()
	}
	if c.Storage.TempDir, err = expandPath(c.Storage.TempDir); err != nil {
		return fmt.Errorf("storage.temp_dir: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Storage.DBPath) == "":
		return errors.New("storage.db_path must be set")
	case c.Audio.SampleRate < 0:
		return errors.New("audio.sample_rate must be >= 0 (0 keeps each source's rate)")
	case c.Audio.DecodeTimeoutSeconds < 0:
		return errors.New("audio.decode_timeout_seconds must be >= 0")
	case c.Match.DownsampleFactor < 1:
		return errors.New("match.downsample_factor must be >= 1")
	case c.Match.Workers < 0:
		return errors.New("match.workers must be >= 0 (0 uses every CPU)")
	case c.Match.FFTThreshold < 0:
		return errors.New("match.fft_threshold must be >= 0")
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.MaxUploadMB < 1:
		return errors.New("server.max_upload_mb must be >= 1")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// LogLevel returns the parsed logging level. Call after Validate.
func (c *Config) LogLevel() logger.LogLevel {
	lvl, _ := logger.ParseLevel(c.Logging.Level)
	return lvl
}

// Options converts the configuration into service options.
func (c *Config) Options() []acousticmatch.Option {
	opts := []acousticmatch.Option{
		acousticmatch.WithDBPath(c.Storage.DBPath),
		acousticmatch.WithTempDir(c.Storage.TempDir),
		acousticmatch.WithSampleRate(c.Audio.SampleRate),
		acousticmatch.WithDownsampleFactor(c.Match.DownsampleFactor),
		acousticmatch.WithFFTThreshold(c.Match.FFTThreshold),
		acousticmatch.WithDecodeTimeout(time.Duration(c.Audio.DecodeTimeoutSeconds) * time.Second),
	}
	if c.Match.Workers > 0 {
		opts = append(opts, acousticmatch.WithWorkers(c.Match.Workers))
	}
	return opts
}

func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
	}
	return p, nil
}
