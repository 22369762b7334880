package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticMatch/internal/config"
	"github.com/himanishpuri/AcousticMatch/pkg/acousticmatch"
	"github.com/himanishpuri/AcousticMatch/pkg/logger"
)

type commandContext struct {
	configFlag   string
	dbFlag       string
	tempFlag     string
	rateFlag     int
	factorFlag   int
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

// ensureConfig loads the configuration once and lays explicitly set flags
// over it.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}

		flags := cmd.Flags()
		if flags.Changed("db") {
			cfg.Storage.DBPath = c.dbFlag
		}
		if flags.Changed("temp") {
			cfg.Storage.TempDir = c.tempFlag
		}
		if flags.Changed("rate") {
			cfg.Audio.SampleRate = c.rateFlag
		}
		if flags.Changed("factor") {
			cfg.Match.DownsampleFactor = c.factorFlag
		}
		if flags.Changed("log-level") {
			cfg.Logging.Level = strings.ToLower(c.logLevelFlag)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		logger.SetLevel(cfg.LogLevel())
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withService(cmd *cobra.Command, fn func(acousticmatch.Service) error) error {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := acousticmatch.NewService(cfg.Options()...)
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(svc)
}
