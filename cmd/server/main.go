//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"strings"

	"github.com/himanishpuri/AcousticMatch/internal/config"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch/metrics"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
)

var (
	configPath     string
	port           int
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to TOML config (default $ACOUSTICMATCH_CONFIG or ./acousticmatch.toml)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
}

func parseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.SetLevel(cfg.LogLevel())
	if exists {
		log.Infof("Loaded config from %s", path)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if allowedOrigins != "" {
		cfg.Server.CORSOrigin = allowedOrigins
	}

	shutdown, err := metrics.InitProvider(context.Background(), metrics.ProviderConfig{ServiceVersion: "1.0.0"})
	if err != nil {
		log.Fatalf("Failed to initialise metrics: %v", err)
	}
	defer shutdown(context.Background())
	m := metrics.DefaultMetrics()

	opts := append(cfg.Options(), acousticmatch.WithLogger(log.With("service")), acousticmatch.WithMetrics(m))
	service, err := acousticmatch.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:             cfg.Server.Port,
		DBPath:           cfg.Storage.DBPath,
		TempDir:          cfg.Storage.TempDir,
		SampleRate:       cfg.Audio.SampleRate,
		DownsampleFactor: cfg.Match.DownsampleFactor,
		MaxUploadBytes:   int64(cfg.Server.MaxUploadMB) << 20,
		AllowedOrigins:   parseOrigins(cfg.Server.CORSOrigin),
	}, log.With("http"), m)

	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %v", err)
	}
}
