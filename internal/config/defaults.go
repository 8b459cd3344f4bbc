package config

const (
	defaultWorkDir             = "~/.local/share/dubber/work"
	defaultLogDir              = "~/.local/share/dubber/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultSampleRate          = 16000
	defaultToleranceRel        = 0.2
	defaultToleranceAbs        = 0.4
	defaultStretchMin          = 0.7
	defaultStretchMax          = 1.3
	defaultTranslationBaseURL  = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultTranslationModel    = "gemini-2.5-flash"
	defaultTranslationTimeout  = 60
	defaultSourceLang          = "en"
	defaultTargetLang          = "de"
	defaultTTSBaseURL          = "https://api.elevenlabs.io"
	defaultTTSModelID          = "eleven_multilingual_v2"
	defaultTTSStability        = 0.6
	defaultTTSSimilarityBoost  = 0.85
	defaultTTSWorkers          = 4
	defaultTTSTimeout          = 60
	defaultLipsyncBaseURL      = "https://api.sync.so"
	defaultLipsyncModel        = "lipsync-2"
	defaultLipsyncSyncMode     = "cut_off"
	defaultLipsyncPollInterval = 10
	defaultLipsyncMaxWait      = 900
	defaultLipsyncMaxDuration  = 300
	defaultSpeakerNumSegments  = 3
	defaultSpeakerMinSeconds   = 1.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Audio: Audio{
			SampleRate:          defaultSampleRate,
			ToleranceRel:        defaultToleranceRel,
			ToleranceAbsSeconds: defaultToleranceAbs,
			StretchMin:          defaultStretchMin,
			StretchMax:          defaultStretchMax,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			Model:          defaultTranslationModel,
			SourceLang:     defaultSourceLang,
			TargetLang:     defaultTargetLang,
			TimeoutSeconds: defaultTranslationTimeout,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			ModelID:         defaultTTSModelID,
			Stability:       defaultTTSStability,
			SimilarityBoost: defaultTTSSimilarityBoost,
			SpeakerBoost:    true,
			Workers:         defaultTTSWorkers,
			TimeoutSeconds:  defaultTTSTimeout,
		},
		Lipsync: Lipsync{
			BaseURL:             defaultLipsyncBaseURL,
			Model:               defaultLipsyncModel,
			SyncMode:            defaultLipsyncSyncMode,
			PollIntervalSeconds: defaultLipsyncPollInterval,
			MaxWaitSeconds:      defaultLipsyncMaxWait,
			MaxDurationSeconds:  defaultLipsyncMaxDuration,
		},
		Speaker: Speaker{
			NumSegments:       defaultSpeakerNumSegments,
			MinSegmentSeconds: defaultSpeakerMinSeconds,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
