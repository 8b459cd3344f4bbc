// Package speaker builds a voice-cloning reference recording by sampling
// the original speaker's audio at subtitle-timed positions.
package speaker

import (
	"fmt"
	"log/slog"
	"math"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/media/pcm"
	"dubber/internal/segment"
	"dubber/internal/services"
)

// Options select which subtitle segments contribute to the reference.
type Options struct {
	// NumSegments caps how many qualifying segments are concatenated.
	NumSegments int
	// MinSegmentSeconds filters out segments too short to carry usable
	// speech.
	MinSegmentSeconds float64
}

// OptionsFromConfig copies the speaker settings into extraction options.
func OptionsFromConfig(cfg config.Speaker) Options {
	return Options{
		NumSegments:       cfg.NumSegments,
		MinSegmentSeconds: cfg.MinSegmentSeconds,
	}
}

// ExtractReference concatenates the first qualifying subtitle slots of the
// source audio into one clip suitable for voice cloning. Segments shorter
// than the minimum are skipped; extraction stops once NumSegments slots
// have been taken.
func ExtractReference(source pcm.Clip, segments []segment.Segment, opts Options, logger *slog.Logger) (pcm.Clip, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(source.Samples) == 0 || source.SampleRate <= 0 {
		return pcm.Clip{}, services.Wrap(services.ErrValidation, "speaker", "extract", "source audio is empty", nil)
	}
	if opts.NumSegments <= 0 {
		return pcm.Clip{}, services.Wrap(services.ErrConfiguration, "speaker", "extract", "num segments must be positive", nil)
	}

	var out []float64
	taken := 0
	for _, seg := range segments {
		if taken >= opts.NumSegments {
			break
		}
		if seg.DurationSec() < opts.MinSegmentSeconds {
			continue
		}
		start := int(math.Round(seg.StartSec * float64(source.SampleRate)))
		end := int(math.Round(seg.EndSec * float64(source.SampleRate)))
		if start >= len(source.Samples) {
			break
		}
		if end > len(source.Samples) {
			end = len(source.Samples)
		}
		if end <= start {
			continue
		}
		out = append(out, source.Samples[start:end]...)
		taken++
		logger.Debug("added speaker segment",
			logging.Int("segment", seg.Index),
			logging.Float64("duration_sec", seg.DurationSec()))
	}
	if taken == 0 {
		return pcm.Clip{}, services.Wrap(services.ErrValidation, "speaker", "extract",
			fmt.Sprintf("no segments of at least %.1fs to sample", opts.MinSegmentSeconds), nil)
	}
	ref := pcm.Clip{Samples: out, SampleRate: source.SampleRate}
	logger.Info("extracted speaker reference",
		logging.Int("segments", taken),
		logging.Float64("duration_sec", ref.DurationSec()))
	return ref, nil
}
