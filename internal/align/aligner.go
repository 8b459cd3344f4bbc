package align

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

// Options control how clips are fitted into their slots.
type Options struct {
	SampleRate int
	// ToleranceRel is the relative duration mismatch above which a clip is
	// time-stretched instead of trimmed or padded.
	ToleranceRel float64
	// ToleranceAbsSeconds gates stretching alongside ToleranceRel: both must
	// be exceeded. Zero disables the absolute gate.
	ToleranceAbsSeconds float64
	StretchMin          float64
	StretchMax          float64
}

// OptionsFromConfig copies the audio settings into aligner options.
func OptionsFromConfig(cfg config.Audio) Options {
	return Options{
		SampleRate:          cfg.SampleRate,
		ToleranceRel:        cfg.ToleranceRel,
		ToleranceAbsSeconds: cfg.ToleranceAbsSeconds,
		StretchMin:          cfg.StretchMin,
		StretchMax:          cfg.StretchMax,
	}
}

// Aligner places synthesized clips into their subtitle time slots and
// renders a single continuous track.
type Aligner struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Aligner, error) {
	if opts.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "align", "new", "sample rate must be positive", nil)
	}
	if opts.StretchMin <= 0 || opts.StretchMax < opts.StretchMin {
		return nil, services.Wrap(services.ErrConfiguration, "align", "new",
			fmt.Sprintf("invalid stretch bounds [%.2f, %.2f]", opts.StretchMin, opts.StretchMax), nil)
	}
	if opts.ToleranceRel < 0 || opts.ToleranceAbsSeconds < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "align", "new", "tolerances must be non-negative", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{opts: opts, logger: logger}, nil
}

// Render assembles the output track. Clips are keyed by segment index;
// a missing or empty clip leaves its slot silent. Segments are processed in
// order, so a later segment overwrites any samples an earlier one wrote past
// its own slot boundary. The result always has exactly
// round(totalDurationSec * SampleRate) samples.
func (a *Aligner) Render(segments []segment.Segment, clips map[int]pcm.Clip, totalDurationSec float64) (pcm.Clip, error) {
	if totalDurationSec <= 0 {
		return pcm.Clip{}, services.Wrap(services.ErrValidation, "align", "render", "total duration must be positive", nil)
	}
	slots, err := slotsForSegments(segments, a.opts.SampleRate)
	if err != nil {
		return pcm.Clip{}, err
	}
	totalSamples := int(math.Round(totalDurationSec * float64(a.opts.SampleRate)))
	out := make([]float64, totalSamples)

	for _, slot := range slots {
		clip, ok := clips[slot.Index]
		if !ok || len(clip.Samples) == 0 {
			a.logger.Warn("no clip for segment, leaving slot silent",
				logging.Int("segment", slot.Index))
			continue
		}
		if clip.SampleRate != a.opts.SampleRate {
			return pcm.Clip{}, services.Wrap(services.ErrValidation, "align", "render",
				fmt.Sprintf("clip for segment %d has sample rate %d, want %d", slot.Index, clip.SampleRate, a.opts.SampleRate), nil)
		}
		fitted := a.fit(slot, clip.Samples)
		start := slot.StartSample
		if start >= totalSamples {
			a.logger.Warn("slot starts past end of track, skipping",
				logging.Int("segment", slot.Index))
			continue
		}
		end := start + len(fitted)
		if end > totalSamples {
			end = totalSamples
		}
		copy(out[start:end], fitted[:end-start])
	}
	return pcm.Clip{Samples: out, SampleRate: a.opts.SampleRate}, nil
}

// fit makes a clip exactly slot-length. Within the tolerance band the clip
// is trimmed or zero-padded as is; outside it the clip is first stretched
// toward the slot duration, with the rate clamped to the configured bounds,
// then trimmed or padded to cover any residual mismatch.
func (a *Aligner) fit(slot Slot, samples []float64) []float64 {
	slotLen := slot.Len()
	clipDur := float64(len(samples)) / float64(a.opts.SampleRate)
	slotDur := float64(slotLen) / float64(a.opts.SampleRate)
	diff := math.Abs(slotDur - clipDur)
	relDiff := diff / slotDur

	needStretch := relDiff > a.opts.ToleranceRel
	if a.opts.ToleranceAbsSeconds > 0 && diff <= a.opts.ToleranceAbsSeconds {
		needStretch = false
	}
	if !needStretch {
		return trimOrPad(samples, slotLen)
	}

	rate := clipDur / slotDur
	clamped := rate
	if clamped < a.opts.StretchMin {
		clamped = a.opts.StretchMin
	}
	if clamped > a.opts.StretchMax {
		clamped = a.opts.StretchMax
	}
	if clamped != rate {
		a.logger.Warn("stretch rate clamped",
			logging.Int("segment", slot.Index),
			logging.Float64("wanted_rate", rate),
			logging.Float64("clamped_rate", clamped))
	}
	stretched := timeStretch(samples, clamped)
	return trimOrPad(stretched, slotLen)
}

// trimOrPad returns a copy of samples with exactly n entries, padding the
// tail with silence when the clip is short.
func trimOrPad(samples []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, samples)
	return out
}
