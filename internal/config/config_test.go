package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubber/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Translation.TargetLang != "de" {
		t.Fatalf("target lang = %q, want de", cfg.Translation.TargetLang)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[audio]
sample_rate = 22050
stretch_min = 0.8

[translation]
target_lang = "fr"

[tts]
workers = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Fatalf("sample rate = %d, want 22050", cfg.Audio.SampleRate)
	}
	if cfg.Audio.StretchMin != 0.8 {
		t.Fatalf("stretch min = %v, want 0.8", cfg.Audio.StretchMin)
	}
	if cfg.Translation.TargetLang != "fr" {
		t.Fatalf("target lang = %q, want fr", cfg.Translation.TargetLang)
	}
	if cfg.TTS.Workers != 2 {
		t.Fatalf("workers = %d, want 2", cfg.TTS.Workers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero sample rate", func(c *config.Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"stretch min above one", func(c *config.Config) { c.Audio.StretchMin = 1.5 }, "stretch_min"},
		{"stretch max below one", func(c *config.Config) { c.Audio.StretchMax = 0.9 }, "stretch_max"},
		{"same languages", func(c *config.Config) { c.Translation.TargetLang = "en" }, "target_lang"},
		{"poll not below max wait", func(c *config.Config) { c.Lipsync.MaxWaitSeconds = c.Lipsync.PollIntervalSeconds }, "max_wait"},
		{"zero speaker segments", func(c *config.Config) { c.Speaker.NumSegments = 0 }, "num_segments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEnvOverridesApplyDuringLoad(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "env-key")
	t.Setenv("ELEVENLABS_VOICE_ID", "env-voice")
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.APIKey != "env-key" {
		t.Fatalf("tts api key = %q, want env-key", cfg.TTS.APIKey)
	}
	if cfg.TTS.VoiceID != "env-voice" {
		t.Fatalf("tts voice id = %q, want env-voice", cfg.TTS.VoiceID)
	}
}
