package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Tool runs ffmpeg operations for the pipeline. Every operation that
// produces a file writes to a temporary path in the destination directory
// and renames on success, so a failed invocation never leaves a partial
// output in place.
type Tool struct {
	binary string
	logger *slog.Logger
	run    commandRunner
}

// New constructs an ffmpeg tool wrapper. An empty binary defaults to
// "ffmpeg" from PATH.
func New(binary string, logger *slog.Logger) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (t *Tool) WithCommandRunner(r commandRunner) {
	if t != nil && r != nil {
		t.run = r
	}
}

// defaultCommandRunner executes ffmpeg and folds the tool's combined output
// into the error on non-zero exit.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio pulls the audio track from a video as mono PCM WAV at the
// given sample rate.
func (t *Tool) ExtractAudio(ctx context.Context, videoPath, audioPath string, sampleRate int) error {
	if sampleRate <= 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "extract", "sample rate must be positive", nil)
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
	}
	return t.produce(ctx, "extract", audioPath, args)
}

// DecodeClip transcodes a synthesized clip (typically mp3) to mono PCM WAV
// at the target sample rate so the aligner can consume it.
func (t *Tool) DecodeClip(ctx context.Context, clipPath, wavPath string, sampleRate int) error {
	if sampleRate <= 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "decode", "sample rate must be positive", nil)
	}
	args := []string{
		"-y",
		"-i", clipPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
	}
	return t.produce(ctx, "decode", wavPath, args)
}

// produce runs ffmpeg with args followed by a temporary output path, then
// renames into place.
func (t *Tool) produce(ctx context.Context, operation, outputPath string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("ensure output directory: %w", err)
	}
	tmpPath := tempOutputPath(outputPath)
	args = append(args, tmpPath)

	t.logger.Debug("executing ffmpeg",
		logging.String("operation", operation),
		logging.String("output", outputPath),
	)

	if err := t.run(ctx, t.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrMediaTool, "ffmpeg", operation, "", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize %s output: %w", operation, err)
	}
	return nil
}

// tempOutputPath keeps the original extension so ffmpeg still infers the
// container format.
func tempOutputPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, ".tmp-"+base)
}
