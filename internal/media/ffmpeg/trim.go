package ffmpeg

import (
	"context"
	"fmt"

	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/services"
)

// TrimTail removes the last trimSeconds from a media file with a stream
// copy, keeping codecs untouched. Used to bring inputs under the lip-sync
// provider's duration ceiling.
func (t *Tool) TrimTail(ctx context.Context, probeBinary, inputPath, outputPath string, trimSeconds float64) error {
	if trimSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "trim", "", "trim seconds must be positive", nil)
	}

	result, err := ffprobe.Inspect(ctx, probeBinary, inputPath)
	if err != nil {
		return services.Wrap(services.ErrMediaTool, "trim", "probe", "", err)
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrMediaTool, "trim", "probe", fmt.Sprintf("no duration reported for %s", inputPath), nil)
	}
	newDuration := duration - trimSeconds
	if newDuration <= 0 {
		return services.Wrap(services.ErrValidation, "trim", "",
			fmt.Sprintf("trim of %.3fs exceeds file duration %.3fs", trimSeconds, duration), nil)
	}

	t.logger.Info("trimming trailing duration",
		logging.String("input", inputPath),
		logging.Float64("duration_sec", duration),
		logging.Float64("new_duration_sec", newDuration),
	)

	args := []string{
		"-y",
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", newDuration),
		"-c", "copy",
	}
	return t.produce(ctx, "trim", outputPath, args)
}
