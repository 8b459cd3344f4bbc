package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranslation()
	c.normalizeTTS()
	c.normalizeLipsync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FFmpeg) == "" {
		c.Paths.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(c.Paths.FFprobe) == "" {
		c.Paths.FFprobe = "ffprobe"
	}
	return nil
}

func (c *Config) normalizeTranslation() {
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	if strings.TrimSpace(c.Translation.Model) == "" {
		c.Translation.Model = defaultTranslationModel
	}
	c.Translation.SourceLang = strings.ToLower(strings.TrimSpace(c.Translation.SourceLang))
	if c.Translation.SourceLang == "" {
		c.Translation.SourceLang = defaultSourceLang
	}
	c.Translation.TargetLang = strings.ToLower(strings.TrimSpace(c.Translation.TargetLang))
	if c.Translation.TargetLang == "" {
		c.Translation.TargetLang = defaultTargetLang
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = defaultTranslationTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	if strings.TrimSpace(c.TTS.ModelID) == "" {
		c.TTS.ModelID = defaultTTSModelID
	}
	if c.TTS.Workers <= 0 {
		c.TTS.Workers = defaultTTSWorkers
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
}

func (c *Config) normalizeLipsync() {
	c.Lipsync.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lipsync.BaseURL), "/")
	if c.Lipsync.BaseURL == "" {
		c.Lipsync.BaseURL = defaultLipsyncBaseURL
	}
	if strings.TrimSpace(c.Lipsync.Model) == "" {
		c.Lipsync.Model = defaultLipsyncModel
	}
	if strings.TrimSpace(c.Lipsync.SyncMode) == "" {
		c.Lipsync.SyncMode = defaultLipsyncSyncMode
	}
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}
