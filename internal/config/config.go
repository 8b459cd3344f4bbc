package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and tool configuration for pipeline artifacts.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Audio contains the target track parameters and aligner policy knobs.
type Audio struct {
	SampleRate          int     `toml:"sample_rate"`
	ToleranceRel        float64 `toml:"tolerance_rel"`
	ToleranceAbsSeconds float64 `toml:"tolerance_abs_seconds"`
	StretchMin          float64 `toml:"stretch_min"`
	StretchMax          float64 `toml:"stretch_max"`
}

// Translation contains configuration for the translation service.
type Translation struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	SourceLang     string `toml:"source_lang"`
	TargetLang     string `toml:"target_lang"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for the speech synthesis service.
type TTS struct {
	APIKey            string  `toml:"api_key"`
	VoiceID           string  `toml:"voice_id"`
	BaseURL           string  `toml:"base_url"`
	ModelID           string  `toml:"model_id"`
	Stability         float64 `toml:"stability"`
	SimilarityBoost   float64 `toml:"similarity_boost"`
	Style             float64 `toml:"style"`
	SpeakerBoost      bool    `toml:"speaker_boost"`
	Workers           int     `toml:"workers"`
	AllowMissingClips bool    `toml:"allow_missing_clips"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Lipsync contains configuration for the lip-sync service.
type Lipsync struct {
	Enabled             bool   `toml:"enabled"`
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	SyncMode            string `toml:"sync_mode"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `toml:"max_wait_seconds"`
	MaxDurationSeconds  int    `toml:"max_duration_seconds"`
}

// Speaker contains configuration for speaker reference extraction.
type Speaker struct {
	NumSegments       int     `toml:"num_segments"`
	MinSegmentSeconds float64 `toml:"min_segment_seconds"`
}

// Config is the root configuration for the dubbing pipeline.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Audio       Audio       `toml:"audio"`
	Translation Translation `toml:"translation"`
	TTS         TTS         `toml:"tts"`
	Lipsync     Lipsync     `toml:"lipsync"`
	Speaker     Speaker     `toml:"speaker"`
	LogLevel    string      `toml:"log_level"`
	LogFormat   string      `toml:"log_format"`
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the expanded default configuration location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubber.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Credentials may come from the environment instead of the config file so
// the file can be committed without secrets.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("TRANSLATE_API_KEY")); v != "" {
		c.Translation.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")); v != "" {
		c.TTS.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")); v != "" {
		c.TTS.VoiceID = v
	}
	if v := strings.TrimSpace(os.Getenv("SYNC_API_KEY")); v != "" {
		c.Lipsync.APIKey = v
	}
}

// EnsureDirectories creates the work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the configured ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Paths.FFmpeg) != "" {
		return c.Paths.FFmpeg
	}
	return "ffmpeg"
}

// FFprobeBinary returns the configured ffprobe executable.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Paths.FFprobe) != "" {
		return c.Paths.FFprobe
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
