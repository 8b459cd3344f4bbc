package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
)

// MuxRequest describes an audio replacement mux.
type MuxRequest struct {
	VideoPath  string // Source video; its image stream is stream-copied untouched.
	AudioPath  string // Aligned track to become audio stream 0.
	OutputPath string
	// KeepOriginalAudio maps the source audio as a second track instead of
	// dropping it.
	KeepOriginalAudio bool
	// TargetLang / SourceLang set language metadata on the audio tracks
	// (ISO 639 codes; optional).
	TargetLang string
	SourceLang string
}

// Mux replaces the video's audio with the aligned track. The video stream is
// copied bit-for-bit; audio is re-encoded to AAC.
func (t *Tool) Mux(ctx context.Context, req MuxRequest) error {
	if strings.TrimSpace(req.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "mux", "", "video path is required", nil)
	}
	if strings.TrimSpace(req.AudioPath) == "" {
		return services.Wrap(services.ErrValidation, "mux", "", "audio path is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "mux", "", "output path is required", nil)
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return services.Wrap(services.ErrNotFound, "mux", "", fmt.Sprintf("video not found: %v", err), nil)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return services.Wrap(services.ErrNotFound, "mux", "", fmt.Sprintf("audio not found: %v", err), nil)
	}

	args := []string{
		"-y",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	if req.KeepOriginalAudio {
		args = append(args, "-map", "0:a:0")
	}
	args = append(args, "-c:v", "copy", "-c:a", "aac")
	if lang := strings.TrimSpace(req.TargetLang); lang != "" {
		args = append(args, "-metadata:s:a:0", "language="+language.Code3(lang))
	}
	if req.KeepOriginalAudio {
		if lang := strings.TrimSpace(req.SourceLang); lang != "" {
			args = append(args, "-metadata:s:a:1", "language="+language.Code3(lang))
		}
	}
	args = append(args, "-shortest")

	t.logger.Info("muxing aligned track",
		logging.String("video", req.VideoPath),
		logging.String("audio", req.AudioPath),
		logging.String("output", req.OutputPath),
		logging.Bool("keep_original_audio", req.KeepOriginalAudio),
	)

	return t.produce(ctx, "mux", req.OutputPath, args)
}
