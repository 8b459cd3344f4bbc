package main

import (
	"log/slog"
	"strings"
	"sync"

	"dubber/internal/config"
	"dubber/internal/lipsync"
	"dubber/internal/logging"
	"dubber/internal/media/ffmpeg"
	"dubber/internal/services"
	"dubber/internal/synthesis"
	"dubber/internal/translate"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) ffmpegTool() (*ffmpeg.Tool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return ffmpeg.New(cfg.FFmpegBinary(), logger), nil
}

func (c *commandContext) translator() (*translate.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return translate.New(cfg.Translation, translate.WithLogger(logger))
}

func (c *commandContext) synthesizer() (*synthesis.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return synthesis.NewClient(cfg.TTS)
}

func (c *commandContext) lipsyncRunner() (*lipsync.Runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Lipsync.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "lipsync", "new runner",
			"lip-sync is disabled; set lipsync.enabled in the configuration", nil)
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := lipsync.NewClient(cfg.Lipsync)
	if err != nil {
		return nil, err
	}
	poller, err := lipsync.NewPoller(client, cfg.Lipsync, logger)
	if err != nil {
		return nil, err
	}
	return lipsync.NewRunner(client, poller), nil
}
