package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateLipsync(); err != nil {
		return err
	}
	if err := c.validateSpeaker(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.ToleranceRel < 0 {
		return errors.New("audio.tolerance_rel must not be negative")
	}
	if c.Audio.ToleranceAbsSeconds < 0 {
		return errors.New("audio.tolerance_abs_seconds must not be negative")
	}
	if c.Audio.StretchMin <= 0 || c.Audio.StretchMin > 1 {
		return errors.New("audio.stretch_min must be in (0, 1]")
	}
	if c.Audio.StretchMax < 1 {
		return errors.New("audio.stretch_max must be at least 1")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.SourceLang == c.Translation.TargetLang {
		return fmt.Errorf("translation.target_lang %q must differ from source_lang", c.Translation.TargetLang)
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.Stability < 0 || c.TTS.Stability > 1 {
		return errors.New("tts.stability must be between 0 and 1")
	}
	if c.TTS.SimilarityBoost < 0 || c.TTS.SimilarityBoost > 1 {
		return errors.New("tts.similarity_boost must be between 0 and 1")
	}
	if c.TTS.Style < 0 || c.TTS.Style > 1 {
		return errors.New("tts.style must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLipsync() error {
	if err := ensurePositiveMap(map[string]int{
		"lipsync.poll_interval_seconds": c.Lipsync.PollIntervalSeconds,
		"lipsync.max_wait_seconds":      c.Lipsync.MaxWaitSeconds,
		"lipsync.max_duration_seconds":  c.Lipsync.MaxDurationSeconds,
	}); err != nil {
		return err
	}
	if c.Lipsync.MaxWaitSeconds <= c.Lipsync.PollIntervalSeconds {
		return errors.New("lipsync.max_wait_seconds must be greater than lipsync.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateSpeaker() error {
	if c.Speaker.NumSegments <= 0 {
		return errors.New("speaker.num_segments must be positive")
	}
	if c.Speaker.MinSegmentSeconds <= 0 {
		return errors.New("speaker.min_segment_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
